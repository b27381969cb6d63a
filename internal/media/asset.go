// Package media implements the polymorphic image-attachment core: assets
// owned by arbitrary listing kinds, a single-primary-image guarantee per
// owner, and time-limited signed delivery URLs backed by a private bucket.
package media

import (
	"errors"
	"fmt"
	"time"
)

// OwnerRef identifies the record an asset belongs to. Kind is an open set
// from this package's point of view; the CRUD layer owns the mapping from
// kinds to concrete tables and enforces referential integrity.
type OwnerRef struct {
	Kind string
	ID   int64
}

func (r OwnerRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// Asset is an image attached to an owning record. StorageKey is unique and
// immutable once assigned; it is never reused, even after deletion.
type Asset struct {
	ID         int64     `json:"id"`
	OwnerKind  string    `json:"ownerKind"`
	OwnerID    int64     `json:"ownerId"`
	StorageKey string    `json:"-"`
	Caption    *string   `json:"caption,omitempty"`
	IsPrimary  bool      `json:"isPrimary"`
	Order      int       `json:"order"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Owner returns the asset's owner reference.
func (a *Asset) Owner() OwnerRef {
	return OwnerRef{Kind: a.OwnerKind, ID: a.OwnerID}
}

// Upload carries everything needed to attach a new image.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Caption     *string
	Order       int
	MarkPrimary bool
}

// ErrNotFound is returned when an asset does not exist for the given owner.
var ErrNotFound = errors.New("media asset not found")

// ErrInvalidFilename is returned when an uploaded filename has no extension.
var ErrInvalidFilename = errors.New("filename has no extension")

// ValidationError marks a malformed attach request (bad owner kind, negative
// order, missing file). Handlers map it to a 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
