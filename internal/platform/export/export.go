// Package export renders tabular reports as PDF or XLSX documents.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Field is a labelled value printed above the table.
type Field struct {
	Label string
	Value string
}

type Table struct {
	Title   string
	Fields  []Field
	Headers []string
	Rows    [][]string
	Notes   []string
}

// ContentType returns the MIME type for format.
func ContentType(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatPDF:
		return "application/pdf", nil
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func Write(w io.Writer, format string, t Table) error {
	switch strings.ToLower(format) {
	case FormatPDF:
		return WritePDF(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func WritePDF(w io.Writer, t Table) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, t.Title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	for _, f := range t.Fields {
		pdf.Cell(0, 7, fmt.Sprintf("%s: %s", f.Label, f.Value))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	if len(t.Headers) > 0 {
		pageWidth, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		colWidth := (pageWidth - left - right) / float64(len(t.Headers))

		pdf.SetFont("Helvetica", "B", 10)
		for _, h := range t.Headers {
			pdf.CellFormat(colWidth, 7, h, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 10)
		for _, row := range t.Rows {
			for i := range t.Headers {
				value := ""
				if i < len(row) {
					value = row[i]
				}
				pdf.CellFormat(colWidth, 7, value, "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if len(t.Notes) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		for _, note := range t.Notes {
			pdf.MultiCell(0, 6, note, "", "L", false)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

const sheetName = "Report"

func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	row := 1
	if err := setRow(f, row, []string{t.Title}); err != nil {
		return err
	}
	row++
	for _, field := range t.Fields {
		if err := setRow(f, row, []string{field.Label, field.Value}); err != nil {
			return err
		}
		row++
	}
	row++

	if len(t.Headers) > 0 {
		if err := setRow(f, row, t.Headers); err != nil {
			return err
		}
		row++
	}
	for _, r := range t.Rows {
		if err := setRow(f, row, r); err != nil {
			return err
		}
		row++
	}
	if len(t.Notes) > 0 {
		row++
		for _, note := range t.Notes {
			if err := setRow(f, row, []string{note}); err != nil {
				return err
			}
			row++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("render xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []string) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
