package types

import "time"

// AnnoType identifies the geometry or label kind of an annotation.
type AnnoType string

// Supported annotation types.
const (
	AnnoBBox    AnnoType = "bbox"
	AnnoPolygon AnnoType = "polygon"
	AnnoBrush   AnnoType = "brush"
	AnnoTag     AnnoType = "tag"
)

// Valid reports whether the annotation type is one of the supported values.
func (t AnnoType) Valid() bool {
	switch t {
	case AnnoBBox, AnnoPolygon, AnnoBrush, AnnoTag:
		return true
	}
	return false
}

// AnnoStatus is the review state of an annotation. Annotations start as
// submitted; approved and rejected are terminal.
type AnnoStatus string

// Supported annotation statuses.
const (
	AnnoSubmitted AnnoStatus = "submitted"
	AnnoApproved  AnnoStatus = "approved"
	AnnoRejected  AnnoStatus = "rejected"
)

// Annotation represents a labeling artifact attached to a sample.
// Annotations are immutable history once created; only the status field
// mutates, exactly once, when reviewed.
type Annotation struct {
	// ID is the unique identifier of the annotation.
	ID int `json:"id" db:"id"`

	// SampleID identifies the annotated sample.
	SampleID int `json:"sample_id" db:"sample_id"`

	// AuthorID identifies the user who created the annotation.
	AuthorID int `json:"author_id" db:"author_id"`

	// AnnoType is the kind of annotation.
	AnnoType AnnoType `json:"anno_type" db:"anno_type"`

	// PayloadJSON is the annotation geometry/label payload, treated as an
	// uninterpreted string by the server.
	PayloadJSON string `json:"payload_json" db:"payload_json"`

	// Status is the review state of the annotation.
	Status AnnoStatus `json:"status" db:"status"`

	// Version is the annotation's version number, monotonically increasing
	// per sample starting at 1. Never reused, never decremented.
	Version int `json:"version" db:"version"`

	// ReviewedBy identifies the reviewing user, once reviewed.
	ReviewedBy *int `json:"reviewed_by,omitempty" db:"reviewed_by"`

	// ReviewedAt is the review timestamp, once reviewed.
	ReviewedAt *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`

	// CreatedAt is the timestamp when the annotation was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
