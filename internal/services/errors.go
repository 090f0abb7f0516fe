package services

import "errors"

// Denial reasons surfaced by the gates. Handlers translate these into
// HTTP statuses; the same strings are written to the audit log detail
// field so later forensic review can tell the causes apart.
var (
	// ErrForbidden signals a role, ownership, or visibility mismatch.
	ErrForbidden = errors.New("forbidden")

	// ErrNoApproval signals that no approval record exists for the
	// (applicant, resource) pair.
	ErrNoApproval = errors.New("no_approval")

	// ErrNotApproved signals that the latest approval is pending or rejected.
	ErrNotApproved = errors.New("not_approved")

	// ErrApprovalExpired signals that the latest approval was approved but
	// its grant has expired.
	ErrApprovalExpired = errors.New("approval_expired")

	// ErrStorageMissing signals that the stored artifact is absent. This
	// is an operator fault and is audited as an error, not a deny.
	ErrStorageMissing = errors.New("storage_missing")
)
