// Package main hosts the podsum CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into pipeline runs
// (process, poll, serve), identity previews (resolve), ledger inspection, and
// configuration scaffolding. Configuration loading and component wiring live
// in commandContext and internal/app so subcommands stay declarative.
package main
