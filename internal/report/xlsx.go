// Package report renders human-facing workbooks summarizing a bundle's
// classification and collision status. Graders triage unknown and error
// pages from these sheets before pushing.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"paperscan/internal/domain"
	"paperscan/internal/service"
)

const (
	sheetPages      = "Pages"
	sheetCollisions = "Collisions"
)

// BuildBundleWorkbook renders one bundle into an xlsx workbook: a Pages
// sheet with every page's classification, and a Collisions sheet listing
// internal groups and external conflicts.
func BuildBundleWorkbook(bundle *domain.Bundle, pages []domain.PageImage, collisions *service.CollisionReport) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	f.SetSheetName("Sheet1", sheetPages)
	if err := writePagesSheet(f, bundle, pages); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetCollisions); err != nil {
		return nil, fmt.Errorf("creating collisions sheet: %w", err)
	}
	if err := writeCollisionsSheet(f, collisions); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writePagesSheet(f *excelize.File, bundle *domain.Bundle, pages []domain.PageImage) error {
	headers := []interface{}{"Position", "State", "Paper", "Page", "Version", "Rotation", "Committed", "Reason"}
	if err := f.SetSheetRow(sheetPages, "A1", &headers); err != nil {
		return fmt.Errorf("writing pages header: %w", err)
	}

	for i, p := range pages {
		row := []interface{}{
			p.BundleOrder + 1,
			string(p.State),
			cellInt(p.Paper),
			cellInt(p.Page),
			cellInt(p.Version),
			p.Rotation,
			p.Committed,
			p.Reason,
		}
		if p.State == domain.ClassExtra {
			row[2] = cellInt(p.ExtraPaper)
			if qs, err := p.ExtraQuestionList(); err == nil && len(qs) > 0 {
				row[7] = fmt.Sprintf("questions %v", qs)
			}
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetPages, cell, &row); err != nil {
			return fmt.Errorf("writing page row %d: %w", i, err)
		}
	}

	// One summary line above the data keeps the sheet self-describing when
	// exported out of context.
	title := fmt.Sprintf("Bundle %s (%s), %d pages, status %s", bundle.Name, bundle.ID, bundle.PageCount, bundle.Status)
	return f.SetCellValue(sheetPages, "J1", title)
}

func writeCollisionsSheet(f *excelize.File, collisions *service.CollisionReport) error {
	headers := []interface{}{"Kind", "Paper", "Page", "Version", "Position", "Detail"}
	if err := f.SetSheetRow(sheetCollisions, "A1", &headers); err != nil {
		return fmt.Errorf("writing collisions header: %w", err)
	}

	rowNum := 2
	for _, g := range collisions.Internal {
		for _, m := range g.Members {
			row := []interface{}{
				"internal", g.Paper, g.Page, g.Version, m.Position,
				fmt.Sprintf("page image %s", m.PageImageID),
			}
			if err := f.SetSheetRow(sheetCollisions, fmt.Sprintf("A%d", rowNum), &row); err != nil {
				return fmt.Errorf("writing internal collision row: %w", err)
			}
			rowNum++
		}
	}
	for _, c := range collisions.External {
		row := []interface{}{
			"external", c.Paper, c.Page, "", c.BundleOrder + 1,
			fmt.Sprintf("slot held by committed page %s from bundle %s", c.CommittedPageID, c.CommittedBundle),
		}
		if err := f.SetSheetRow(sheetCollisions, fmt.Sprintf("A%d", rowNum), &row); err != nil {
			return fmt.Errorf("writing external collision row: %w", err)
		}
		rowNum++
	}
	return nil
}

func cellInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
