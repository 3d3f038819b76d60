// Package dag models deployment stage dependencies as a Directed Acyclic
// Graph. The orchestrator builds a graph of object stages, verifies it is
// cycle-free, and deploys in topological order so every object's
// prerequisites exist remotely before the object itself is created.
package dag
