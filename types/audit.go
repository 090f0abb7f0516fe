package types

import "time"

// AuditResult classifies the outcome an audit entry records.
type AuditResult string

// Supported audit results.
const (
	// AuditOK records a permitted action.
	AuditOK AuditResult = "ok"

	// AuditDeny records a user-caused permission denial.
	AuditDeny AuditResult = "deny"

	// AuditError records an operator-side fault, distinguished from
	// ordinary permission denials for later analysis.
	AuditError AuditResult = "error"
)

// AuditEntry is one immutable record of an authorization-relevant action
// and its outcome. Entries are append-only: never updated or deleted.
type AuditEntry struct {
	// ID is the unique identifier of the entry.
	ID int `json:"id" db:"id"`

	// ActorID identifies the acting user. Nil for failed authentication
	// attempts with no resolvable identity.
	ActorID *int `json:"actor_id,omitempty" db:"actor_id"`

	// Action names the operation, drawn from a fixed vocabulary
	// (e.g. "login", "upload_sample", "download_dataset").
	Action string `json:"action" db:"action"`

	// ResourceType is the kind of the affected resource, if any.
	ResourceType string `json:"resource_type,omitempty" db:"resource_type"`

	// ResourceID identifies the affected resource, if any.
	ResourceID *int `json:"resource_id,omitempty" db:"resource_id"`

	// IP is the caller address, best-effort: the first hop of a
	// forwarded-for header, falling back to the connection address.
	IP string `json:"ip,omitempty" db:"ip"`

	// Result is the outcome of the action.
	Result AuditResult `json:"result" db:"result"`

	// Detail is a short machine-readable cause string for forensic review.
	Detail string `json:"detail,omitempty" db:"detail"`

	// CreatedAt is the timestamp when the entry was appended.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
