package services

import "strings"

// User-facing validation messages
const (
	MsgUserDoesNotExist = "You cannot follow a user that does not exist."
	MsgAlreadyFollowing = "You are already following this user."
	MsgNotFollowing     = "You cannot stop following someone you do not already follow."
	MsgCannotFollowSelf = "You cannot follow yourself."
)

// ValidationError carries the messages accumulated while validating a
// follow request. Callers show them to the user and let them retry.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, " ")
}

// Has reports whether msg is one of the accumulated messages
func (e *ValidationError) Has(msg string) bool {
	for _, m := range e.Messages {
		if m == msg {
			return true
		}
	}
	return false
}

// QueryError reports a store failure. Error() is opaque; the cause is only
// reachable through Unwrap.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return "follow query failed"
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
