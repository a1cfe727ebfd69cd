package domain

// CanCast reports whether a page may move from one classification state to
// another. The rules:
//
//   - Unknown may move to Known, Extra, or Error (automatic classification).
//   - Any state except Discard may move to Discard.
//   - Any state except Unknown may move back to Unknown (un-classify).
//   - Known and Extra may move to Error: the push coordinator re-flags a
//     page whose slot turns out to be occupied. Error may be re-flagged
//     Error with a new reason.
//   - Self-transitions are otherwise illegal; re-discarding a discarded page
//     signals duplicate caller-side work.
func CanCast(from, to Classification) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	switch to {
	case ClassDiscard:
		return from != ClassDiscard
	case ClassUnknown:
		return from != ClassUnknown
	case ClassKnown, ClassExtra:
		return from == ClassUnknown
	case ClassError:
		return from != ClassDiscard
	}
	return false
}

// ValidateCast returns an InvalidTransitionError when the cast is illegal.
func ValidateCast(from, to Classification) error {
	if !CanCast(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
