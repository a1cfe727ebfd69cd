package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"paperscan/internal/domain"
)

func TestCanCast(t *testing.T) {
	cases := []struct {
		from, to domain.Classification
		want     bool
	}{
		// Automatic classification and human triage start from unknown.
		{domain.ClassUnknown, domain.ClassKnown, true},
		{domain.ClassUnknown, domain.ClassExtra, true},
		{domain.ClassUnknown, domain.ClassDiscard, true},
		{domain.ClassUnknown, domain.ClassError, true},
		{domain.ClassUnknown, domain.ClassUnknown, false},

		// Any non-discard page can be discarded or sent back to unknown.
		{domain.ClassKnown, domain.ClassDiscard, true},
		{domain.ClassExtra, domain.ClassDiscard, true},
		{domain.ClassError, domain.ClassDiscard, true},
		{domain.ClassKnown, domain.ClassUnknown, true},
		{domain.ClassError, domain.ClassUnknown, true},
		{domain.ClassDiscard, domain.ClassUnknown, true},

		// Direct reclassification must pass through unknown.
		{domain.ClassKnown, domain.ClassExtra, false},
		{domain.ClassExtra, domain.ClassKnown, false},
		{domain.ClassError, domain.ClassKnown, false},
		{domain.ClassDiscard, domain.ClassKnown, false},

		// Push-time collision flagging hits known and extra pages.
		{domain.ClassKnown, domain.ClassError, true},
		{domain.ClassExtra, domain.ClassError, true},
		{domain.ClassError, domain.ClassError, true},
		{domain.ClassDiscard, domain.ClassError, false},

		{domain.ClassDiscard, domain.ClassDiscard, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, domain.CanCast(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanCast_InvalidStates(t *testing.T) {
	assert.False(t, domain.CanCast("bogus", domain.ClassKnown))
	assert.False(t, domain.CanCast(domain.ClassUnknown, "bogus"))
}

func TestValidateCast(t *testing.T) {
	assert.NoError(t, domain.ValidateCast(domain.ClassUnknown, domain.ClassKnown))

	err := domain.ValidateCast(domain.ClassDiscard, domain.ClassError)
	var transitionErr *domain.InvalidTransitionError
	assert.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, domain.ClassDiscard, transitionErr.From)
	assert.Equal(t, domain.ClassError, transitionErr.To)
}
