package deploy

import "fmt"

// ConflictError reports an object that could neither be created nor adopted:
// the remote rejected the create and the follow-up query found no match.
type ConflictError struct {
	Object  string
	Name    string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q conflicts with remote state: %s", e.Object, e.Name, e.Message)
}

// DependencyError reports an object whose prerequisite is missing or
// unusable remotely, e.g. a plan component referencing an expression the
// remote marked invalid.
type DependencyError struct {
	Object     string
	Name       string
	Dependency string
	Reason     string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s %q depends on %s: %s", e.Object, e.Name, e.Dependency, e.Reason)
}

// RemoteError reports an unexpected remote response.
type RemoteError struct {
	Object string
	Name   string
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote returned %d for %s %q: %s", e.Status, e.Object, e.Name, e.Detail)
}
