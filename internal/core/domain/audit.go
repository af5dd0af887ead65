package domain

import "time"

// AuditOutcome classifies the result recorded by an audit entry.
type AuditOutcome string

const (
	AuditSuccess AuditOutcome = "success"
	AuditFailure AuditOutcome = "failure"
	AuditWarning AuditOutcome = "warning"
)

// AuditEntry is an immutable record of a security-relevant event. Entries
// are append-only; nothing in the system mutates or removes one. IDs are
// ULIDs so lexical order matches issue time.
type AuditEntry struct {
	ID         string
	Action     string
	Resource   Resource
	ResourceID string
	ActorID    string
	ActorRole  Role
	IPAddress  string
	Outcome    AuditOutcome
	Before     map[string]any
	After      map[string]any
	At         time.Time
}

// AuditFilter narrows an audit query. Zero values mean "no constraint".
type AuditFilter struct {
	Action   string
	ActorID  string
	Resource Resource
	Outcome  AuditOutcome
	Search   string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
