/*
Package graphstore is a durable, Neo4j-backed persistence backend for a
[cadcore.Project]'s log: each [cadcore.LogEntry] is stored as its own node,
ordered by an integer index unique per project, so Append and Load are plain
range operations rather than anything resembling a live graph.

This is intentionally the one place in this module that talks to a network
database: spec.md's filesystem/network persistence transport is out of
scope as a full replication protocol, but a project still has to survive a
process restart somehow, and Store is that somehow — a single caller
(whichever process currently owns the project) appending to and loading
from one durable log, not a multi-writer replication scheme.
*/
package graphstore
