// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

const (
	evidenceSheet = "Evidence"
	bulletsSheet  = "Bullets"
)

var (
	evidenceHeader = []any{"ID", "Section", "Quote", "Block Type", "Source", "URL", "Cited"}
	bulletsHeader  = []any{"Section", "Required", "Bullet", "Evidence IDs"}
)

// EvidenceRegister writes an xlsx workbook with every evidence item of the
// run on the Evidence sheet and every report bullet on the Bullets sheet.
func EvidenceRegister(w io.Writer, report *types.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", evidenceSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(bulletsSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	cited := make(map[string]bool)
	for _, id := range report.CitedIDs() {
		cited[id] = true
	}

	rows := [][]any{evidenceHeader}
	for _, it := range report.Evidence.Items() {
		rows = append(rows, []any{
			it.ID, it.Section, it.Quote, string(it.BlockType),
			it.SourcePath(), it.Source.URL, cited[it.ID],
		})
	}
	if err := writeRows(f, evidenceSheet, rows, header); err != nil {
		return err
	}

	rows = [][]any{bulletsHeader}
	for _, sec := range report.Sections {
		for _, b := range sec.Bullets {
			rows = append(rows, []any{sec.Name, sec.Required, b.Text, strings.Join(b.EvidenceIDs, ", ")})
		}
	}
	if err := writeRows(f, bulletsSheet, rows, header); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}
