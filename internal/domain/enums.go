package domain

// Classification is the mutually exclusive state of a page image.
type Classification string

const (
	ClassUnknown Classification = "unknown"
	ClassKnown   Classification = "known"
	ClassExtra   Classification = "extra"
	ClassDiscard Classification = "discard"
	ClassError   Classification = "error"
)

// Valid reports whether c is one of the five classification states.
func (c Classification) Valid() bool {
	switch c {
	case ClassUnknown, ClassKnown, ClassExtra, ClassDiscard, ClassError:
		return true
	}
	return false
}

// Terminal reports whether a page in this state is actionable for push.
// Unknown and Error pages block a bundle from being pushed.
func (c Classification) Terminal() bool {
	switch c {
	case ClassKnown, ClassExtra, ClassDiscard:
		return true
	}
	return false
}

// BundleStatus tracks a bundle through the classification pipeline.
type BundleStatus string

const (
	BundleStatusPending     BundleStatus = "pending"
	BundleStatusClassifying BundleStatus = "classifying"
	BundleStatusClassified  BundleStatus = "classified"
)

// Corner labels the four physical corners of a scanned page.
type Corner string

const (
	CornerNE Corner = "NE"
	CornerNW Corner = "NW"
	CornerSW Corner = "SW"
	CornerSE Corner = "SE"
)

// Corners lists all four corners in a fixed order.
var Corners = []Corner{CornerNE, CornerNW, CornerSW, CornerSE}

// Orientation is the canonical orientation of a scanned page relative to
// upright.
type Orientation string

const (
	OrientUpright     Orientation = "upright"
	OrientTurnedRight Orientation = "turned_right"
	OrientTurnedLeft  Orientation = "turned_left"
	OrientUpsideDown  Orientation = "upside_down"
)

// RotationAngle returns the signed correction angle, in degrees
// counter-clockwise, that makes a page with this orientation upright.
func (o Orientation) RotationAngle() int {
	switch o {
	case OrientTurnedRight:
		return 90
	case OrientTurnedLeft:
		return -90
	case OrientUpsideDown:
		return 180
	default:
		return 0
	}
}
