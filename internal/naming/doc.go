// Package naming canonicalizes taxpayer owner names for bucket keys and
// derives the display names persisted when pages join a group.
//
// NormalizeOwner is pure and deterministic: buckets built from its output are
// the only barrier preventing two people's documents from being compared, so
// the canonical form must be stable across passes and retries.
package naming
