// Package tpv implements the structured code printed in the QR symbols on
// exam pages: the 17-digit TPV code (paper, page, version, orientation,
// magic) and the three short alphanumeric codes for extra pages, scrap
// paper, and bundle separator sheets.
//
// All functions are pure and round-trip exact.
package tpv

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"paperscan/internal/domain"
)

// TPVLength is the fixed width of an encoded TPV code:
// 5-digit paper, 3-digit page, 2-digit version, 1-digit orientation,
// 6-digit magic.
const TPVLength = 17

// Short code prefixes. The trailing character of a short code is the
// orientation digit.
const (
	ExtraPrefix     = "plomX"
	ScrapPrefix     = "plomS"
	SeparatorPrefix = "plomB"

	shortCodeLength = 6
)

// Some decoders prepend this to every symbol they read.
const decoderPrefix = "QR-Code:"

// TPV is a decoded 17-digit page code.
type TPV struct {
	Paper       int
	Page        int
	Version     int
	Orientation int // 1=NE 2=NW 3=SW 4=SE, 0 reserved
	Magic       string
}

// EncodeTPV produces the 17-digit code for one page corner.
func EncodeTPV(paper, page, version, orientation int, magic string) (string, error) {
	if err := checkRanges(paper, page, version); err != nil {
		return "", err
	}
	if orientation < 0 || orientation > 4 {
		return "", &domain.RangeError{Field: "orientation", Value: orientation}
	}
	if len(magic) != 6 || !allDigits(magic) {
		return "", &domain.FormatError{Code: magic, Detail: "magic must be exactly 6 digits"}
	}
	return fmt.Sprintf("%05d%03d%02d%d%s", paper, page, version, orientation, magic), nil
}

// ParseTPV decodes a 17-digit code, tolerating the optional decoder prefix.
func ParseTPV(code string) (*TPV, error) {
	raw := strings.TrimPrefix(code, decoderPrefix)
	if len(raw) != TPVLength || !allDigits(raw) {
		return nil, &domain.FormatError{Code: code, Detail: "expected exactly 17 numeric characters"}
	}
	paper, _ := strconv.Atoi(raw[0:5])
	page, _ := strconv.Atoi(raw[5:8])
	version, _ := strconv.Atoi(raw[8:10])
	orientation, _ := strconv.Atoi(raw[10:11])
	return &TPV{
		Paper:       paper,
		Page:        page,
		Version:     version,
		Orientation: orientation,
		Magic:       raw[11:17],
	}, nil
}

// EncodePaperPageVersion produces the 10-digit prefix of a TPV, used as the
// short collision-detection key.
func EncodePaperPageVersion(paper, page, version int) (string, error) {
	if err := checkRanges(paper, page, version); err != nil {
		return "", err
	}
	return fmt.Sprintf("%05d%03d%02d", paper, page, version), nil
}

// EncodeExtraCode produces the short extra-page code for one corner.
func EncodeExtraCode(orientation int) (string, error) {
	return encodeShort(ExtraPrefix, orientation)
}

// EncodeScrapCode produces the short scrap-paper code for one corner.
func EncodeScrapCode(orientation int) (string, error) {
	return encodeShort(ScrapPrefix, orientation)
}

// EncodeSeparatorCode produces the short bundle-separator code for one corner.
func EncodeSeparatorCode(orientation int) (string, error) {
	return encodeShort(SeparatorPrefix, orientation)
}

func encodeShort(prefix string, orientation int) (string, error) {
	if orientation < 1 || orientation > 4 {
		return "", &domain.RangeError{Field: "orientation", Value: orientation}
	}
	return fmt.Sprintf("%s%d", prefix, orientation), nil
}

// ShortCode is a decoded 6-character special-purpose code.
type ShortCode struct {
	Prefix      string // ExtraPrefix, ScrapPrefix, or SeparatorPrefix
	Orientation int    // normalized to 1..4
}

// ParseShortCode decodes any of the three 6-character codes. Orientation
// digits 5-8 are legacy duplicates of 1-4: accepted on decode, never emitted.
func ParseShortCode(code string) (*ShortCode, error) {
	raw := strings.TrimPrefix(code, decoderPrefix)
	if len(raw) != shortCodeLength {
		return nil, &domain.FormatError{Code: code, Detail: "expected exactly 6 characters"}
	}
	prefix := raw[:5]
	switch prefix {
	case ExtraPrefix, ScrapPrefix, SeparatorPrefix:
	default:
		return nil, &domain.FormatError{Code: code, Detail: "unrecognized short code prefix"}
	}
	d := int(raw[5] - '0')
	if d < 1 || d > 8 {
		return nil, &domain.FormatError{Code: code, Detail: "orientation digit must be 1-8"}
	}
	return &ShortCode{Prefix: prefix, Orientation: (d-1)%4 + 1}, nil
}

// ParseExtraCode decodes a short code and requires the extra-page prefix.
func ParseExtraCode(code string) (*ShortCode, error) {
	return parseShortWithPrefix(code, ExtraPrefix)
}

// ParseScrapCode decodes a short code and requires the scrap-paper prefix.
func ParseScrapCode(code string) (*ShortCode, error) {
	return parseShortWithPrefix(code, ScrapPrefix)
}

// ParseSeparatorCode decodes a short code and requires the separator prefix.
func ParseSeparatorCode(code string) (*ShortCode, error) {
	return parseShortWithPrefix(code, SeparatorPrefix)
}

func parseShortWithPrefix(code, prefix string) (*ShortCode, error) {
	sc, err := ParseShortCode(code)
	if err != nil {
		return nil, err
	}
	if sc.Prefix != prefix {
		return nil, &domain.FormatError{Code: code, Detail: "expected prefix " + prefix}
	}
	return sc, nil
}

// NewMagicCode returns a 6-digit magic code. A non-zero seed makes the
// result deterministic; seed 0 uses the current time. Called once per
// assessment at creation, never on the classification hot path.
func NewMagicCode(seed int64) string {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))
	return fmt.Sprintf("%06d", r.Intn(1000000))
}

func checkRanges(paper, page, version int) error {
	switch {
	case paper < 0 || paper > 99999:
		return &domain.RangeError{Field: "paper", Value: paper}
	case page < 1 || page > 999:
		return &domain.RangeError{Field: "page", Value: page}
	case version < 1 || version > 99:
		return &domain.RangeError{Field: "version", Value: version}
	}
	return nil
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
