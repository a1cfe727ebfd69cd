package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrAssessmentNotFound     = errors.New("assessment not found")
	ErrBundleNotFound         = errors.New("bundle not found")
	ErrPageNotFound           = errors.New("page image not found")
	ErrBundleNameTaken        = errors.New("bundle name already exists with different content")
	ErrBundleHashExists       = errors.New("bundle content already uploaded under a different name")
	ErrBundleAlreadyCommitted = errors.New("bundle is already committed")
	ErrStaleState             = errors.New("page state changed since it was read")
	ErrSlotOccupied           = errors.New("target slot already occupied in permanent storage")
	ErrDuplicateImage         = errors.New("identical page image already committed")
	ErrMagicMismatch          = errors.New("magic code does not match assessment")
	ErrExtraNotAssignable     = errors.New("extra page assignment requires an uncommitted bundle")
	ErrDuplicateAssessment    = errors.New("assessment name already exists")
	ErrEmptyBundle            = errors.New("uploaded PDF contains no pages")
)

// RangeError reports an out-of-range codec input.
type RangeError struct {
	Field string
	Value int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("value %d out of range for %s", e.Value, e.Field)
}

// FormatError reports a malformed code string.
type FormatError struct {
	Code   string
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed code %q: %s", e.Code, e.Detail)
}

// InconsistentError reports contradictory corner readings on one page.
// The reason is stored verbatim on the page for human diagnosis.
type InconsistentError struct {
	Reason string
}

func (e *InconsistentError) Error() string {
	return "inconsistent corner readings: " + e.Reason
}

// InvalidTransitionError reports an illegal cast between classification states.
type InvalidTransitionError struct {
	From Classification
	To   Classification
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// BundleNotReadyError reports pages still lacking a terminal classification.
type BundleNotReadyError struct {
	Unresolved []uuid.UUID
}

func (e *BundleNotReadyError) Error() string {
	return fmt.Sprintf("bundle not ready: %d pages unresolved", len(e.Unresolved))
}

// InternalCollisionError reports duplicate-identity groups within a bundle.
type InternalCollisionError struct {
	Groups []CollisionGroup
}

func (e *InternalCollisionError) Error() string {
	return fmt.Sprintf("internal collisions: %d groups", len(e.Groups))
}

// ExternalCollisionError reports pages colliding with committed storage.
type ExternalCollisionError struct {
	Conflicts []ExternalCollision
}

func (e *ExternalCollisionError) Error() string {
	return fmt.Sprintf("external collisions: %d pages", len(e.Conflicts))
}
