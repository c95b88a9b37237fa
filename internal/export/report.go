// Package export renders day balance reports in CSV, XLSX and PDF.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"energy-balance/internal/interval/domain"
	market "energy-balance/internal/market/domain"
)

// DayReport is the material for one day's balance report: the reconciled
// records, the slots still missing, and the projected imbalance volumes.
type DayReport struct {
	Day     time.Time
	Records []*domain.Record
	Gaps    []time.Time
	Volumes []market.ImbalanceVolume
}

// NewDayReport validates and assembles a report.
func NewDayReport(day time.Time, records []*domain.Record, gaps []time.Time, volumes []market.ImbalanceVolume) (*DayReport, error) {
	if day.IsZero() {
		return nil, domain.ErrInvalidDay
	}
	return &DayReport{Day: domain.DayStart(day), Records: records, Gaps: gaps, Volumes: volumes}, nil
}

var csvHeader = []string{
	"slot", "total_production", "total_consumption", "imports", "exports",
	"net_balance", "nuclear", "coal", "gas", "wind", "hydro", "solar", "other",
	"flow_data_complete",
}

// BuildCSV renders the report's records as CSV, one row per slot.
func (r *DayReport) BuildCSV() ([]byte, error) {
	if r == nil {
		return nil, errors.New("export: nil report")
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, record := range r.Records {
		row := []string{
			record.Timestamp.Format(time.RFC3339),
			formatMW(record.TotalProduction),
			formatMW(record.TotalConsumption),
			formatMW(record.Imports),
			formatMW(record.Exports),
			formatMW(record.NetBalance),
			formatMW(record.Generation.Nuclear),
			formatMW(record.Generation.Coal),
			formatMW(record.Generation.Gas),
			formatMW(record.Generation.Wind),
			formatMW(record.Generation.Hydro),
			formatMW(record.Generation.Solar),
			formatMW(record.Generation.Other),
			strconv.FormatBool(record.FlowDataComplete),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildXLSX renders the report as a workbook: a records sheet, a gaps
// sheet and an imbalance sheet.
func (r *DayReport) BuildXLSX() ([]byte, error) {
	if r == nil {
		return nil, errors.New("export: nil report")
	}

	f := excelize.NewFile()
	recordsSheet := "records"
	gapsSheet := "gaps"
	imbalanceSheet := "imbalance"
	f.SetSheetName("Sheet1", recordsSheet)
	f.NewSheet(gapsSheet)
	f.NewSheet(imbalanceSheet)

	for i, title := range csvHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(recordsSheet, cell, title)
	}
	for i, record := range r.Records {
		row := i + 2
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("A%d", row), record.Timestamp.Format(time.RFC3339))
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("B%d", row), record.TotalProduction)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("C%d", row), record.TotalConsumption)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("D%d", row), record.Imports)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("E%d", row), record.Exports)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("F%d", row), record.NetBalance)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("G%d", row), record.Generation.Nuclear)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("H%d", row), record.Generation.Coal)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("I%d", row), record.Generation.Gas)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("J%d", row), record.Generation.Wind)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("K%d", row), record.Generation.Hydro)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("L%d", row), record.Generation.Solar)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("M%d", row), record.Generation.Other)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("N%d", row), record.FlowDataComplete)
	}

	_ = f.SetCellValue(gapsSheet, "A1", "missing_slot")
	for i, gap := range r.Gaps {
		_ = f.SetCellValue(gapsSheet, fmt.Sprintf("A%d", i+2), gap.Format(time.RFC3339))
	}

	_ = f.SetCellValue(imbalanceSheet, "A1", "slot")
	_ = f.SetCellValue(imbalanceSheet, "B1", "import_mw")
	_ = f.SetCellValue(imbalanceSheet, "C1", "export_mw")
	_ = f.SetCellValue(imbalanceSheet, "D1", "net_mw")
	_ = f.SetCellValue(imbalanceSheet, "E1", "status")
	for i, volume := range r.Volumes {
		row := i + 2
		_ = f.SetCellValue(imbalanceSheet, fmt.Sprintf("A%d", row), volume.Slot.Format(time.RFC3339))
		_ = f.SetCellValue(imbalanceSheet, fmt.Sprintf("B%d", row), volume.Import)
		_ = f.SetCellValue(imbalanceSheet, fmt.Sprintf("C%d", row), volume.Export)
		_ = f.SetCellValue(imbalanceSheet, fmt.Sprintf("D%d", row), volume.Net)
		_ = f.SetCellValue(imbalanceSheet, fmt.Sprintf("E%d", row), string(volume.Status))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPDF renders a summary PDF: day totals followed by the per-slot
// balance table.
func (r *DayReport) BuildPDF() ([]byte, error) {
	if r == nil {
		return nil, errors.New("export: nil report")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Energy Balance Day Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Day: %s", r.Day.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Slots recorded: %d / %d", len(r.Records), domain.SlotsPerDay))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Missing slots: %d", len(r.Gaps)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(30, 6, "Slot", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Production", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Consumption", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Imports", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Exports", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Net", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, record := range r.Records {
		pdf.CellFormat(30, 6, record.Timestamp.Format("15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, formatMW(record.TotalProduction), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, formatMW(record.TotalConsumption), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, formatMW(record.Imports), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, formatMW(record.Exports), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, formatMW(record.NetBalance), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(r.Gaps) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 9)
		pdf.Cell(0, 6, "Missing slots")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		for _, gap := range r.Gaps {
			pdf.Cell(0, 5, gap.Format("15:04"))
			pdf.Ln(4)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatMW(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64)
}
