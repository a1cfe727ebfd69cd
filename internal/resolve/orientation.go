package resolve

import "paperscan/internal/domain"

// expectedDigit gives, for each canonical orientation, the orientation digit
// a code read at each physical corner would carry. Digits name logical
// corners (NE=1, NW=2, SW=3, SE=4); rotating the page moves logical corners
// to different physical positions.
var expectedDigit = map[domain.Orientation]map[domain.Corner]int{
	domain.OrientUpright: {
		domain.CornerNE: 1, domain.CornerNW: 2, domain.CornerSW: 3, domain.CornerSE: 4,
	},
	domain.OrientTurnedRight: {
		domain.CornerNE: 2, domain.CornerNW: 3, domain.CornerSW: 4, domain.CornerSE: 1,
	},
	domain.OrientTurnedLeft: {
		domain.CornerNE: 4, domain.CornerNW: 1, domain.CornerSW: 2, domain.CornerSE: 3,
	},
	domain.OrientUpsideDown: {
		domain.CornerNE: 3, domain.CornerNW: 4, domain.CornerSW: 1, domain.CornerSE: 2,
	},
}

// resolveOrientation finds the single canonical orientation consistent with
// every present corner digit. Returns false when no corners are present or
// the implied orientations disagree.
func resolveOrientation(digits map[domain.Corner]int) (domain.Orientation, bool) {
	if len(digits) == 0 {
		return "", false
	}
	for orient, expected := range expectedDigit {
		match := true
		for corner, digit := range digits {
			if expected[corner] != digit {
				match = false
				break
			}
		}
		if match {
			return orient, true
		}
	}
	return "", false
}
