// Package main hosts the sheaf CLI entrypoint and command graph.
//
// The Cobra-based command tree wires configuration resolution, logging setup
// and the engine stack (document store, match oracle, artifact store) so
// subcommands can focus on invocation and output: running a full case,
// grouping a single new document, inspecting case status, and configuration
// scaffolding.
package main
