package types

import "time"

// Visibility controls default read access to a dataset, relative to the
// viewing user. It is orthogonal to the approval workflow, which controls
// download.
type Visibility string

// Supported visibility values.
const (
	// VisibilityGroup makes the dataset visible to every authenticated user.
	VisibilityGroup Visibility = "group"

	// VisibilityPrivate makes the dataset visible only to its creator and
	// to privileged users.
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether the visibility is one of the supported values.
func (v Visibility) Valid() bool {
	return v == VisibilityGroup || v == VisibilityPrivate
}

// Dataset represents a named collection of image samples.
type Dataset struct {
	// ID is the unique identifier of the dataset.
	ID int `json:"id" db:"id"`

	// Name is the unique human-readable name of the dataset.
	Name string `json:"name" db:"name"`

	// Description is an optional free-form description.
	Description string `json:"description,omitempty" db:"description"`

	// Version is an optional dataset version label.
	Version string `json:"version,omitempty" db:"version"`

	// Visibility controls who may read the dataset and its samples.
	Visibility Visibility `json:"visibility" db:"visibility"`

	// CreatedBy identifies the user who created the dataset.
	CreatedBy int `json:"created_by" db:"created_by"`

	// CreatedAt is the timestamp when the dataset was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Sample represents a single stored image file belonging to a dataset.
// Samples inherit their parent dataset's visibility for read purposes but
// carry an independent ownership-based deletion right.
type Sample struct {
	// ID is the unique identifier of the sample.
	ID int `json:"id" db:"id"`

	// DatasetID identifies the parent dataset.
	DatasetID int `json:"dataset_id" db:"dataset_id"`

	// FilePath is the storage key of the file, relative to the storage
	// root ("dataset_<id>/<filename>"). Never absolute.
	FilePath string `json:"file_path" db:"file_path"`

	// SHA256 is the hex-encoded SHA-256 digest of the file contents.
	// Unique across the whole system: the same bytes are never stored
	// twice, regardless of dataset.
	SHA256 string `json:"sha256" db:"sha256"`

	// MIME is the content type hint reported at upload time.
	MIME string `json:"mime,omitempty" db:"mime"`

	// CreatedBy identifies the user who uploaded the sample.
	CreatedBy int `json:"created_by" db:"created_by"`

	// CreatedAt is the timestamp when the sample was uploaded.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
