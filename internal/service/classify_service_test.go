package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"paperscan/internal/domain"
	"paperscan/internal/service"
	"paperscan/internal/tpv"
	"paperscan/mocks"
)

const testMagic = "938491"

func testAssessment() *domain.Assessment {
	return &domain.Assessment{
		ID:            uuid.New(),
		Name:          "Midterm 1",
		MagicCode:     testMagic,
		NumPapers:     50,
		PagesPerPaper: 6,
		NumVersions:   2,
		QuestionPages: json.RawMessage(`{"1":[2,3],"2":[4,5,6]}`),
	}
}

func testBundle(assessmentID uuid.UUID) *domain.Bundle {
	return &domain.Bundle{
		ID:           uuid.New(),
		AssessmentID: assessmentID,
		Name:         "scanner-batch-01",
		PDFHash:      "abc",
		PageCount:    1,
		Status:       domain.BundleStatusPending,
	}
}

func unknownPage(bundleID uuid.UUID, order int) domain.PageImage {
	return domain.PageImage{
		ID:          uuid.New(),
		BundleID:    bundleID,
		BundleOrder: order,
		ImageHash:   "hash",
		S3Bucket:    "bucket",
		S3Key:       "key",
		State:       domain.ClassUnknown,
	}
}

func uprightCodes(t *testing.T, paper, page, version int) map[domain.Corner][]string {
	t.Helper()
	digits := map[domain.Corner]int{
		domain.CornerNE: 1, domain.CornerNW: 2, domain.CornerSW: 3, domain.CornerSE: 4,
	}
	out := map[domain.Corner][]string{}
	for corner, d := range digits {
		code, err := tpv.EncodeTPV(paper, page, version, d, testMagic)
		require.NoError(t, err)
		out[corner] = []string{code}
	}
	return out
}

func newClassifyFixture() (*mocks.MockBundleRepo, *mocks.MockPageImageRepo, *mocks.MockAssessmentRepo, *mocks.MockObjectStorage, *mocks.MockCornerReader, service.ClassifyService) {
	bundles := new(mocks.MockBundleRepo)
	pages := new(mocks.MockPageImageRepo)
	assessments := new(mocks.MockAssessmentRepo)
	storage := new(mocks.MockObjectStorage)
	reader := new(mocks.MockCornerReader)
	svc := service.NewClassifyService(bundles, pages, assessments, storage, reader, 2)
	return bundles, pages, assessments, storage, reader, svc
}

func TestClassifyBundle_KnownPage(t *testing.T) {
	bundles, pages, assessments, storage, reader, svc := newClassifyFixture()

	assessment := testAssessment()
	bundle := testBundle(assessment.ID)
	page := unknownPage(bundle.ID, 0)

	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	bundles.On("SetStatus", mock.Anything, bundle.ID, domain.BundleStatusPending, domain.BundleStatusClassifying).Return(nil)
	bundles.On("SetStatus", mock.Anything, bundle.ID, domain.BundleStatusClassifying, domain.BundleStatusClassified).Return(nil)
	assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	pages.On("ListByBundle", mock.Anything, bundle.ID).Return([]domain.PageImage{page}, nil)
	storage.On("Download", mock.Anything, "bucket", "key").Return([]byte("png"), nil)
	reader.On("ReadCorners", mock.Anything, []byte("png")).Return(uprightCodes(t, 6, 4, 1), nil)

	var cast *domain.PageImage
	pages.On("Cast", mock.Anything, mock.AnythingOfType("*domain.PageImage"), domain.ClassUnknown).
		Run(func(args mock.Arguments) { cast = args.Get(1).(*domain.PageImage) }).
		Return(nil)

	err := svc.ClassifyBundle(context.Background(), bundle.ID)
	require.NoError(t, err)

	require.NotNil(t, cast)
	assert.Equal(t, domain.ClassKnown, cast.State)
	assert.Equal(t, 6, *cast.Paper)
	assert.Equal(t, 4, *cast.Page)
	assert.Equal(t, 1, *cast.Version)
	assert.Equal(t, 0, cast.Rotation)
	assert.NotEmpty(t, cast.CornerCodes)
}

func TestClassifyBundle_MagicMismatchBecomesError(t *testing.T) {
	bundles, pages, assessments, storage, reader, svc := newClassifyFixture()

	assessment := testAssessment()
	bundle := testBundle(assessment.ID)
	page := unknownPage(bundle.ID, 0)

	wrongMagic, err := tpv.EncodeTPV(6, 4, 1, 1, "111111")
	require.NoError(t, err)

	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	bundles.On("SetStatus", mock.Anything, bundle.ID, mock.Anything, mock.Anything).Return(nil)
	assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	pages.On("ListByBundle", mock.Anything, bundle.ID).Return([]domain.PageImage{page}, nil)
	storage.On("Download", mock.Anything, "bucket", "key").Return([]byte("png"), nil)
	reader.On("ReadCorners", mock.Anything, mock.Anything).
		Return(map[domain.Corner][]string{domain.CornerNE: {wrongMagic}}, nil)

	var cast *domain.PageImage
	pages.On("Cast", mock.Anything, mock.AnythingOfType("*domain.PageImage"), domain.ClassUnknown).
		Run(func(args mock.Arguments) { cast = args.Get(1).(*domain.PageImage) }).
		Return(nil)

	require.NoError(t, svc.ClassifyBundle(context.Background(), bundle.ID))
	require.NotNil(t, cast)
	assert.Equal(t, domain.ClassError, cast.State)
	assert.Contains(t, cast.Reason, "different assessment")
}

func TestClassifyBundle_NoCodesStaysUnknown(t *testing.T) {
	bundles, pages, assessments, storage, reader, svc := newClassifyFixture()

	assessment := testAssessment()
	bundle := testBundle(assessment.ID)
	page := unknownPage(bundle.ID, 0)

	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	bundles.On("SetStatus", mock.Anything, bundle.ID, mock.Anything, mock.Anything).Return(nil)
	assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	pages.On("ListByBundle", mock.Anything, bundle.ID).Return([]domain.PageImage{page}, nil)
	storage.On("Download", mock.Anything, "bucket", "key").Return([]byte("png"), nil)
	reader.On("ReadCorners", mock.Anything, mock.Anything).Return(map[domain.Corner][]string{}, nil)

	require.NoError(t, svc.ClassifyBundle(context.Background(), bundle.ID))
	pages.AssertNotCalled(t, "Cast", mock.Anything, mock.Anything, mock.Anything)
}

func TestClassifyBundle_HumanDecisionWins(t *testing.T) {
	bundles, pages, assessments, storage, reader, svc := newClassifyFixture()

	assessment := testAssessment()
	bundle := testBundle(assessment.ID)
	page := unknownPage(bundle.ID, 0)

	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	bundles.On("SetStatus", mock.Anything, bundle.ID, mock.Anything, mock.Anything).Return(nil)
	assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	pages.On("ListByBundle", mock.Anything, bundle.ID).Return([]domain.PageImage{page}, nil)
	storage.On("Download", mock.Anything, "bucket", "key").Return([]byte("png"), nil)
	reader.On("ReadCorners", mock.Anything, mock.Anything).Return(uprightCodes(t, 6, 4, 1), nil)
	// Someone discarded the page while the decoder was running.
	pages.On("Cast", mock.Anything, mock.Anything, domain.ClassUnknown).Return(domain.ErrStaleState)

	assert.NoError(t, svc.ClassifyBundle(context.Background(), bundle.ID))
}

func TestClassifyBundle_CommittedBundleRejected(t *testing.T) {
	bundles, _, _, _, _, svc := newClassifyFixture()

	bundle := testBundle(uuid.New())
	bundle.Committed = true
	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)

	err := svc.ClassifyBundle(context.Background(), bundle.ID)
	assert.ErrorIs(t, err, domain.ErrBundleAlreadyCommitted)
}

func TestCast_ManualKnown(t *testing.T) {
	bundles, pages, assessments, _, _, svc := newClassifyFixture()

	assessment := testAssessment()
	bundle := testBundle(assessment.ID)
	page := unknownPage(bundle.ID, 0)

	pages.On("GetByID", mock.Anything, page.ID).Return(&page, nil)
	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)

	var cast *domain.PageImage
	pages.On("Cast", mock.Anything, mock.AnythingOfType("*domain.PageImage"), domain.ClassUnknown).
		Run(func(args mock.Arguments) { cast = args.Get(1).(*domain.PageImage) }).
		Return(nil)

	got, err := svc.Cast(context.Background(), &service.CastInput{
		PageID:   page.ID,
		Expected: domain.ClassUnknown,
		Target:   domain.ClassKnown,
		Paper:    12,
		Page:     3,
		Version:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ClassKnown, got.State)
	assert.Equal(t, 12, *cast.Paper)
}

func TestCast_KnownRequiresValidPage(t *testing.T) {
	bundles, pages, assessments, _, _, svc := newClassifyFixture()

	assessment := testAssessment() // 6 pages per paper
	bundle := testBundle(assessment.ID)
	page := unknownPage(bundle.ID, 0)

	pages.On("GetByID", mock.Anything, page.ID).Return(&page, nil)
	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)

	_, err := svc.Cast(context.Background(), &service.CastInput{
		PageID:   page.ID,
		Expected: domain.ClassUnknown,
		Target:   domain.ClassKnown,
		Paper:    12,
		Page:     7,
		Version:  1,
	})
	var rangeErr *domain.RangeError
	assert.True(t, errors.As(err, &rangeErr))
}

func TestCast_IllegalTransition(t *testing.T) {
	bundles, pages, _, _, _, svc := newClassifyFixture()

	bundle := testBundle(uuid.New())
	page := unknownPage(bundle.ID, 0)
	page.State = domain.ClassKnown

	pages.On("GetByID", mock.Anything, page.ID).Return(&page, nil)
	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)

	_, err := svc.Cast(context.Background(), &service.CastInput{
		PageID:   page.ID,
		Expected: domain.ClassKnown,
		Target:   domain.ClassExtra,
	})
	var transitionErr *domain.InvalidTransitionError
	assert.True(t, errors.As(err, &transitionErr))
}

func TestCast_DiscardRequiresReason(t *testing.T) {
	bundles, pages, _, _, _, svc := newClassifyFixture()

	bundle := testBundle(uuid.New())
	page := unknownPage(bundle.ID, 0)

	pages.On("GetByID", mock.Anything, page.ID).Return(&page, nil)
	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)

	_, err := svc.Cast(context.Background(), &service.CastInput{
		PageID:   page.ID,
		Expected: domain.ClassUnknown,
		Target:   domain.ClassDiscard,
	})
	assert.Error(t, err)
}

func TestCast_StaleStatePropagates(t *testing.T) {
	bundles, pages, _, _, _, svc := newClassifyFixture()

	bundle := testBundle(uuid.New())
	page := unknownPage(bundle.ID, 0)

	pages.On("GetByID", mock.Anything, page.ID).Return(&page, nil)
	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	pages.On("Cast", mock.Anything, mock.Anything, domain.ClassUnknown).Return(domain.ErrStaleState)

	_, err := svc.Cast(context.Background(), &service.CastInput{
		PageID:   page.ID,
		Expected: domain.ClassUnknown,
		Target:   domain.ClassDiscard,
		Reason:   "blank page",
	})
	assert.ErrorIs(t, err, domain.ErrStaleState)
}

func TestCast_CommittedPageImmutable(t *testing.T) {
	_, pages, _, _, _, svc := newClassifyFixture()

	page := unknownPage(uuid.New(), 0)
	page.State = domain.ClassKnown
	page.Committed = true
	pages.On("GetByID", mock.Anything, page.ID).Return(&page, nil)

	_, err := svc.Cast(context.Background(), &service.CastInput{
		PageID:   page.ID,
		Expected: domain.ClassKnown,
		Target:   domain.ClassDiscard,
		Reason:   "changed my mind",
	})
	assert.ErrorIs(t, err, domain.ErrBundleAlreadyCommitted)
}

func TestAssignExtra(t *testing.T) {
	bundles, pages, assessments, _, _, svc := newClassifyFixture()

	assessment := testAssessment()
	bundle := testBundle(assessment.ID)
	page := unknownPage(bundle.ID, 0)
	page.State = domain.ClassExtra

	pages.On("GetByID", mock.Anything, page.ID).Return(&page, nil)
	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	pages.On("AssignExtra", mock.Anything, page.ID, 12, []int{1, 2}).Return(nil)

	_, err := svc.AssignExtra(context.Background(), page.ID, 12, []int{1, 2})
	assert.NoError(t, err)
	pages.AssertCalled(t, "AssignExtra", mock.Anything, page.ID, 12, []int{1, 2})
}

func TestAssignExtra_UnknownQuestionRejected(t *testing.T) {
	bundles, pages, assessments, _, _, svc := newClassifyFixture()

	assessment := testAssessment() // questions 1 and 2 only
	bundle := testBundle(assessment.ID)
	page := unknownPage(bundle.ID, 0)
	page.State = domain.ClassExtra

	pages.On("GetByID", mock.Anything, page.ID).Return(&page, nil)
	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)

	_, err := svc.AssignExtra(context.Background(), page.ID, 12, []int{9})
	var rangeErr *domain.RangeError
	assert.True(t, errors.As(err, &rangeErr))
}

func TestAssignExtra_NonExtraPageRejected(t *testing.T) {
	_, pages, _, _, _, svc := newClassifyFixture()

	page := unknownPage(uuid.New(), 0)
	pages.On("GetByID", mock.Anything, page.ID).Return(&page, nil)

	_, err := svc.AssignExtra(context.Background(), page.ID, 12, []int{1})
	var transitionErr *domain.InvalidTransitionError
	assert.True(t, errors.As(err, &transitionErr))
}
