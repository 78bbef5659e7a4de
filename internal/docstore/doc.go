// Package docstore persists documents, groups, and grouping-run checkpoints
// in SQLite and is the single source of truth for group membership.
//
// Every write path except LinkContinuation is structured to be idempotent so
// the engine can re-apply a step after a crash or retry and land in the same
// state. LinkContinuation is the one operation with serializable transaction
// semantics: concurrent continuations targeting the same group must never
// receive the same page number.
//
// Schema changes bump the version in schema.go; the store refuses to open a
// database with a mismatched version.
package docstore
