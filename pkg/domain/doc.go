/*
Package domain defines the core entities of the flow engine: the authored
graph (Flow, Node, Edge), the per-conversation execution snapshot
(ExecutionState), validation issues, lifecycle events and shared sentinel
errors.

The package is intentionally free of behavior beyond pure lookups on the
graph; the execution semantics live in internal/runtime and the static
analysis in internal/validator.
*/
package domain
