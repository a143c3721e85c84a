// Package cadcore implements the project store at the core of a CAD
// application's data substrate.
//
// A [Project] is a linear log of [Change]s grouped into [LogEntry] values.
// Replaying the log through a [Registry] of registered [Module] types
// produces a [ProjectView]: an immutable, cheap-to-share snapshot exposing
// scoped read access to [DocumentView]s and [DataView]s. Modifications are
// staged into a [ChangeBuilder] and applied atomically to a [Project],
// advancing its version and appending a single [LogEntry] to the log.
//
// Modules are the extension point: each module contributes four data
// section flavors (persistent/shared, persistent/per-user, ephemeral/shared,
// ephemeral/per-user — see [Module]) plus a pure, typed transaction contract
// per section. The core never knows a module's concrete data types; it
// dispatches through a [Registry] of per-module vtables, keyed by
// [ModuleId].
//
// The companion package cadcore/computegraph implements the typed,
// dynamic dependency graph ("Core B") that CAD viewport and evaluation code
// builds on top of project data; cadcore/tracked implements the
// access-tracking machinery that lets a compute cache stay valid across
// project edits that did not affect the data a node actually read.
package cadcore
