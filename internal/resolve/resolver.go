// Package resolve turns raw per-corner QR readings into a single page
// identity and orientation decision. It is pure computation: no I/O, fully
// deterministic, suitable for direct fuzzing.
package resolve

import (
	"paperscan/internal/domain"
	"paperscan/internal/tpv"
)

// IdentityKind tags the outcome of corner resolution.
type IdentityKind string

const (
	// KindNoCodes means every corner list was empty. Not an error; the
	// page stays queued for human triage.
	KindNoCodes IdentityKind = "no_codes"
	// KindKnown means all present corners agreed on one (paper, page,
	// version) triple.
	KindKnown IdentityKind = "known"
	// KindExtra means the page carries the extra-page marker code.
	KindExtra IdentityKind = "extra"
	// KindInconsistent means readings were present but contradictory.
	KindInconsistent IdentityKind = "inconsistent"
)

// Reasons recorded on inconsistent resolutions. Stored verbatim on the page
// for diagnosis, so the wording is part of the contract.
const (
	ReasonMultipleCodes   = "multiple codes at one corner"
	ReasonUnparseable     = "unparseable code"
	ReasonMixedTypes      = "mixed page types"
	ReasonMagicMismatch   = "magic code mismatch"
	ReasonPaperMismatch   = "paper number mismatch"
	ReasonPageMismatch    = "page number mismatch"
	ReasonVersionMismatch = "version mismatch"
	ReasonOrientDisagree  = "orientation disagreement"
)

// CornerReadings maps each physical corner to the raw code strings decoded
// near it. Missing corners are represented by absent keys or empty lists.
type CornerReadings map[domain.Corner][]string

// Resolution is the resolver's output for one page.
type Resolution struct {
	Kind        IdentityKind
	Paper       int
	Page        int
	Version     int
	Magic       string
	Orientation domain.Orientation
	Reason      string
}

func inconsistent(reason string) Resolution {
	return Resolution{Kind: KindInconsistent, Reason: reason}
}

// Resolve implements the four-corner consistency and orientation algorithm.
//
// Occluded corners (a staple typically hides one QR code) are normal and
// never an error by themselves; only disagreement among present corners is.
func Resolve(readings CornerReadings) Resolution {
	// Collapse each corner to at most one code.
	present := map[domain.Corner]string{}
	for _, corner := range domain.Corners {
		codes := readings[corner]
		if len(codes) == 0 {
			continue
		}
		if len(codes) > 1 {
			return inconsistent(ReasonMultipleCodes)
		}
		present[corner] = codes[0]
	}
	if len(present) == 0 {
		return Resolution{Kind: KindNoCodes}
	}

	// Parse every present code and require a single page type.
	tpvs := map[domain.Corner]*tpv.TPV{}
	extras := map[domain.Corner]*tpv.ShortCode{}
	for corner, code := range present {
		if t, err := tpv.ParseTPV(code); err == nil {
			tpvs[corner] = t
			continue
		}
		if sc, err := tpv.ParseExtraCode(code); err == nil {
			extras[corner] = sc
			continue
		}
		return inconsistent(ReasonUnparseable)
	}
	if len(tpvs) > 0 && len(extras) > 0 {
		return inconsistent(ReasonMixedTypes)
	}

	// Extra pages carry no magic; identity is the marker itself.
	if len(extras) > 0 {
		digits := map[domain.Corner]int{}
		for corner, sc := range extras {
			digits[corner] = sc.Orientation
		}
		orient, ok := resolveOrientation(digits)
		if !ok {
			return inconsistent(ReasonOrientDisagree)
		}
		return Resolution{Kind: KindExtra, Orientation: orient}
	}

	// TPV pages must agree on every identity field.
	var ref *tpv.TPV
	for _, corner := range domain.Corners {
		t, ok := tpvs[corner]
		if !ok {
			continue
		}
		if ref == nil {
			ref = t
			continue
		}
		switch {
		case t.Magic != ref.Magic:
			return inconsistent(ReasonMagicMismatch)
		case t.Paper != ref.Paper:
			return inconsistent(ReasonPaperMismatch)
		case t.Page != ref.Page:
			return inconsistent(ReasonPageMismatch)
		case t.Version != ref.Version:
			return inconsistent(ReasonVersionMismatch)
		}
	}

	digits := map[domain.Corner]int{}
	for corner, t := range tpvs {
		digits[corner] = t.Orientation
	}
	orient, ok := resolveOrientation(digits)
	if !ok {
		return inconsistent(ReasonOrientDisagree)
	}

	return Resolution{
		Kind:        KindKnown,
		Paper:       ref.Paper,
		Page:        ref.Page,
		Version:     ref.Version,
		Magic:       ref.Magic,
		Orientation: orient,
	}
}
