// Package model defines the incentive-compensation object graph: the named
// entities produced by the compiler, read by the validator and linter, and
// mirrored into the remote ICM system by the deployment orchestrator.
//
// Entities carry no behavior beyond formula rendering. Cross-references
// between entities are by Name only; the remote system assigns surrogate ids
// during deployment and those never appear in the graph itself.
package model
