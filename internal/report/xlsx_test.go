package report_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"paperscan/internal/domain"
	"paperscan/internal/report"
	"paperscan/internal/service"
)

func TestBuildBundleWorkbook(t *testing.T) {
	paper, page, version := 6, 4, 1
	bundle := &domain.Bundle{
		ID:        uuid.New(),
		Name:      "batch-01",
		PageCount: 2,
		Status:    domain.BundleStatusClassified,
	}
	pages := []domain.PageImage{
		{
			ID: uuid.New(), BundleOrder: 0, State: domain.ClassKnown,
			Paper: &paper, Page: &page, Version: &version,
		},
		{
			ID: uuid.New(), BundleOrder: 1, State: domain.ClassExtra,
			ExtraPaper: &paper, ExtraQuestions: json.RawMessage(`[2]`),
		},
	}
	collisions := &service.CollisionReport{
		BundleID: bundle.ID,
		External: []domain.ExternalCollision{{
			PageImageID: pages[0].ID, BundleOrder: 0, Paper: 6, Page: 4,
			CommittedPageID: uuid.New(), CommittedBundle: uuid.New(),
		}},
	}

	data, err := report.BuildBundleWorkbook(bundle, pages, collisions)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	state, err := f.GetCellValue("Pages", "B2")
	require.NoError(t, err)
	assert.Equal(t, "known", state)

	kind, err := f.GetCellValue("Collisions", "A2")
	require.NoError(t, err)
	assert.Equal(t, "external", kind)
}
