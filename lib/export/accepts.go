// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package export

import "context"

// Accepts reports whether the named variant can export the target.
// Pure predicate: it performs no writes and never fails — resolution
// problems during the check degrade to false.
//
// The decision runs on the target's effective type: a record's own
// type, or the type of an ensemble's first still-resolving member
// (members share a type, so one is representative). A target with no
// effective type — an empty ensemble, or one whose members were all
// deleted — is refused. Non-exportable types are refused for every
// variant. Otherwise the variant accepts iff the effective type is,
// or descends from, one of its supported types.
func (e *Exporter) Accepts(ctx context.Context, target Target, variantName string) bool {
	variant, ok := e.registry.Variant(variantName)
	if !ok {
		e.logger.Debug("unknown export variant", "variant", variantName)
		return false
	}

	if target.IsGroup() && !variant.Groups {
		return false
	}

	typeName, ok := e.effectiveType(ctx, target)
	if !ok {
		return false
	}
	if !e.registry.Exportable(typeName) {
		return false
	}

	for _, supported := range variant.Supports {
		if e.registry.IsSubtype(typeName, supported) {
			return true
		}
	}
	return false
}

// effectiveType resolves the type name capability checks run against.
func (e *Exporter) effectiveType(ctx context.Context, target Target) (string, bool) {
	if target.Record != nil {
		return target.Record.TypeName, true
	}
	if target.Group == nil {
		return "", false
	}

	members, err := e.gateway.ListMembers(ctx, target.Group.Gid)
	if err != nil {
		e.logger.Debug("member listing failed during capability check",
			"group", target.Group.Gid, "error", err)
		return "", false
	}
	for _, member := range members {
		if member.TypeName != "" {
			return member.TypeName, true
		}
	}
	return "", false
}
