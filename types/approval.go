package types

import "time"

// ResourceType identifies the kind of resource an approval or audit entry
// refers to.
type ResourceType string

// Supported resource types.
const (
	ResourceDataset ResourceType = "dataset"
	ResourceSample  ResourceType = "sample"
)

// Valid reports whether the resource type is one of the supported values.
func (t ResourceType) Valid() bool {
	return t == ResourceDataset || t == ResourceSample
}

// Decision is the review state of an approval. Approvals start as pending;
// approved and rejected are terminal, reached exactly once.
type Decision string

// Supported decision values.
const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Approval represents a researcher's request to download a dataset or
// sample, and its review outcome. When multiple approvals exist for the
// same (applicant, resource) pair, the most recently created one is
// authoritative for download authorization; older ones are historical only.
type Approval struct {
	// ID is the unique identifier of the approval.
	ID int `json:"id" db:"id"`

	// ApplicantID identifies the requesting user.
	ApplicantID int `json:"applicant_id" db:"applicant_id"`

	// ResourceType is the kind of the target resource.
	ResourceType ResourceType `json:"resource_type" db:"resource_type"`

	// ResourceID identifies the target resource.
	ResourceID int `json:"resource_id" db:"resource_id"`

	// Purpose is the applicant's stated purpose for the download.
	Purpose string `json:"purpose,omitempty" db:"purpose"`

	// Decision is the review state of the approval.
	Decision Decision `json:"decision" db:"decision"`

	// ExpiresAt bounds an approved grant in time. A nil ExpiresAt on an
	// approved record means the grant never expires. This is specified
	// behavior, not a bug, and operators should be aware of it: reviewing
	// without a TTL issues a permanent grant.
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`

	// ReviewedBy identifies the reviewing user, once reviewed.
	ReviewedBy *int `json:"reviewed_by,omitempty" db:"reviewed_by"`

	// ReviewedAt is the review timestamp, once reviewed.
	ReviewedAt *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`

	// CreatedAt is the timestamp when the request was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
