package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"paperscan/internal/config"
	"paperscan/internal/domain"
	"paperscan/internal/port"
	"paperscan/internal/service"
	"paperscan/mocks"
)

type bundleFixture struct {
	bundles     *mocks.MockBundleRepo
	pages       *mocks.MockPageImageRepo
	assessments *mocks.MockAssessmentRepo
	storage     *mocks.MockObjectStorage
	rasterizer  *mocks.MockRasterizer
	svc         service.BundleService
}

func newBundleFixture() *bundleFixture {
	f := &bundleFixture{
		bundles:     new(mocks.MockBundleRepo),
		pages:       new(mocks.MockPageImageRepo),
		assessments: new(mocks.MockAssessmentRepo),
		storage:     new(mocks.MockObjectStorage),
		rasterizer:  new(mocks.MockRasterizer),
	}
	cfg := &config.S3Config{Bucket: "paperscan-pages", MaxFileSizeMB: 200, PresignExpiry: 3600}
	f.svc = service.NewBundleService(f.bundles, f.pages, f.assessments, f.storage, f.rasterizer, cfg)
	return f
}

func hashOf(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func TestIngest_CreatesBundleAndPages(t *testing.T) {
	f := newBundleFixture()

	assessment := testAssessment()
	pdf := []byte("%PDF-1.7 fake")

	f.assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	f.bundles.On("GetByName", mock.Anything, "batch-01").Return(nil, domain.ErrNotFound)
	f.bundles.On("GetByHash", mock.Anything, hashOf(pdf)).Return(nil, domain.ErrNotFound)
	f.rasterizer.On("PageCount", mock.Anything, pdf).Return(2, nil)
	f.rasterizer.On("Rasterize", mock.Anything, pdf).Return([]port.PageBitmap{
		{Order: 0, Data: []byte("page0"), ContentType: "image/png"},
		{Order: 1, Data: []byte("page1"), ContentType: "image/png"},
	}, nil)
	f.storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Return(&port.UploadOutput{Location: "s3://x"}, nil)

	var created *domain.Bundle
	f.bundles.On("Create", mock.Anything, mock.AnythingOfType("*domain.Bundle")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Bundle) }).
		Return(nil)

	var pages []domain.PageImage
	f.pages.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]domain.PageImage")).
		Run(func(args mock.Arguments) { pages = args.Get(1).([]domain.PageImage) }).
		Return(nil)

	bundle, err := f.svc.Ingest(context.Background(), &service.IngestInput{
		AssessmentID: assessment.ID,
		Name:         "batch-01",
		PDF:          pdf,
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, bundle.ID)
	assert.Equal(t, hashOf(pdf), bundle.PDFHash)
	assert.Equal(t, 2, bundle.PageCount)
	assert.Equal(t, domain.BundleStatusPending, bundle.Status)

	require.Len(t, pages, 2)
	assert.Equal(t, domain.ClassUnknown, pages[0].State)
	assert.Equal(t, 0, pages[0].BundleOrder)
	assert.Equal(t, hashOf([]byte("page0")), pages[0].ImageHash)
	// 2 page images plus the source PDF
	f.storage.AssertNumberOfCalls(t, "Upload", 3)
}

func TestIngest_SameNameSameContentIsIdempotent(t *testing.T) {
	f := newBundleFixture()

	assessment := testAssessment()
	pdf := []byte("%PDF-1.7 fake")
	existing := testBundle(assessment.ID)
	existing.Name = "batch-01"
	existing.PDFHash = hashOf(pdf)

	f.assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	f.bundles.On("GetByName", mock.Anything, "batch-01").Return(existing, nil)

	bundle, err := f.svc.Ingest(context.Background(), &service.IngestInput{
		AssessmentID: assessment.ID,
		Name:         "batch-01",
		PDF:          pdf,
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, bundle.ID)
	f.rasterizer.AssertNotCalled(t, "Rasterize", mock.Anything, mock.Anything)
	f.bundles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngest_SameNameDifferentContentRejected(t *testing.T) {
	f := newBundleFixture()

	assessment := testAssessment()
	existing := testBundle(assessment.ID)
	existing.Name = "batch-01"
	existing.PDFHash = hashOf([]byte("other content"))

	f.assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	f.bundles.On("GetByName", mock.Anything, "batch-01").Return(existing, nil)

	_, err := f.svc.Ingest(context.Background(), &service.IngestInput{
		AssessmentID: assessment.ID,
		Name:         "batch-01",
		PDF:          []byte("%PDF-1.7 fake"),
	})
	assert.ErrorIs(t, err, domain.ErrBundleNameTaken)
}

func TestIngest_SameContentDifferentNameRejected(t *testing.T) {
	f := newBundleFixture()

	assessment := testAssessment()
	pdf := []byte("%PDF-1.7 fake")
	existing := testBundle(assessment.ID)
	existing.Name = "batch-01"
	existing.PDFHash = hashOf(pdf)

	f.assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	f.bundles.On("GetByName", mock.Anything, "batch-02").Return(nil, domain.ErrNotFound)
	f.bundles.On("GetByHash", mock.Anything, hashOf(pdf)).Return(existing, nil)

	_, err := f.svc.Ingest(context.Background(), &service.IngestInput{
		AssessmentID: assessment.ID,
		Name:         "batch-02",
		PDF:          pdf,
	})
	assert.ErrorIs(t, err, domain.ErrBundleHashExists)
}

func TestIngest_EmptyPDFRejected(t *testing.T) {
	f := newBundleFixture()

	_, err := f.svc.Ingest(context.Background(), &service.IngestInput{
		AssessmentID: uuid.New(),
		Name:         "batch-01",
		PDF:          nil,
	})
	assert.ErrorIs(t, err, domain.ErrEmptyBundle)
}

func TestIngest_ZeroPagePDFRejected(t *testing.T) {
	f := newBundleFixture()

	assessment := testAssessment()
	pdf := []byte("%PDF-1.7 fake")

	f.assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	f.bundles.On("GetByName", mock.Anything, "batch-01").Return(nil, domain.ErrNotFound)
	f.bundles.On("GetByHash", mock.Anything, hashOf(pdf)).Return(nil, domain.ErrNotFound)
	f.rasterizer.On("PageCount", mock.Anything, pdf).Return(0, nil)

	_, err := f.svc.Ingest(context.Background(), &service.IngestInput{
		AssessmentID: assessment.ID,
		Name:         "batch-01",
		PDF:          pdf,
	})
	assert.ErrorIs(t, err, domain.ErrEmptyBundle)
}

func TestIngest_RasterizeFailureRemovesUploadedPDF(t *testing.T) {
	f := newBundleFixture()

	assessment := testAssessment()
	pdf := []byte("%PDF-1.7 fake")

	f.assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	f.bundles.On("GetByName", mock.Anything, "batch-01").Return(nil, domain.ErrNotFound)
	f.bundles.On("GetByHash", mock.Anything, hashOf(pdf)).Return(nil, domain.ErrNotFound)
	f.rasterizer.On("PageCount", mock.Anything, pdf).Return(2, nil)
	f.storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Return(&port.UploadOutput{}, nil)
	f.rasterizer.On("Rasterize", mock.Anything, pdf).
		Return(nil, errors.New("pdftoppm: exit status 1"))

	var removed []string
	f.storage.On("Delete", mock.Anything, "paperscan-pages", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { removed = append(removed, args.Get(2).(string)) }).
		Return(nil)

	_, err := f.svc.Ingest(context.Background(), &service.IngestInput{
		AssessmentID: assessment.ID,
		Name:         "batch-01",
		PDF:          pdf,
	})
	require.Error(t, err)

	require.Len(t, removed, 1)
	assert.Contains(t, removed[0], "source.pdf")
	f.bundles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngest_LostCreateRaceRemovesOwnObjects(t *testing.T) {
	f := newBundleFixture()

	assessment := testAssessment()
	pdf := []byte("%PDF-1.7 fake")
	winner := testBundle(assessment.ID)
	winner.Name = "batch-01"
	winner.PDFHash = hashOf(pdf)

	f.assessments.On("GetByID", mock.Anything, assessment.ID).Return(assessment, nil)
	// Nothing exists at the dedupe reads; the concurrent upload lands after.
	f.bundles.On("GetByName", mock.Anything, "batch-01").Return(nil, domain.ErrNotFound).Once()
	f.bundles.On("GetByHash", mock.Anything, hashOf(pdf)).Return(nil, domain.ErrNotFound)
	f.rasterizer.On("PageCount", mock.Anything, pdf).Return(1, nil)
	f.rasterizer.On("Rasterize", mock.Anything, pdf).Return([]port.PageBitmap{
		{Order: 0, Data: []byte("page0"), ContentType: "image/png"},
	}, nil)
	f.storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Return(&port.UploadOutput{}, nil)
	f.bundles.On("Create", mock.Anything, mock.AnythingOfType("*domain.Bundle")).
		Return(domain.ErrBundleHashExists)
	f.bundles.On("GetByName", mock.Anything, "batch-01").Return(winner, nil)
	f.storage.On("Delete", mock.Anything, "paperscan-pages", mock.AnythingOfType("string")).
		Return(nil)

	bundle, err := f.svc.Ingest(context.Background(), &service.IngestInput{
		AssessmentID: assessment.ID,
		Name:         "batch-01",
		PDF:          pdf,
	})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, bundle.ID)
	// The loser's pdf and page objects are both removed.
	f.storage.AssertNumberOfCalls(t, "Delete", 2)
	f.pages.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestPageURL(t *testing.T) {
	f := newBundleFixture()

	page := unknownPage(uuid.New(), 0)
	f.pages.On("GetByID", mock.Anything, page.ID).Return(&page, nil)
	f.storage.On("GetPresignedURL", mock.Anything, "bucket", "key", int64(3600)).
		Return("https://signed.example/page", nil)

	url, err := f.svc.PageURL(context.Background(), page.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/page", url)
}
