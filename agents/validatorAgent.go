package agents

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const validatorModel = "structural-rules-v1"

// numericHeaderHints marks columns whose cells must parse as decimal figures.
var numericHeaderHints = []string{"amount", "value", "balance", "total", "exposure", "ratio"}

// XLSXValidator is the bundled structural validator. It parses the uploaded
// spreadsheet and applies format rules; an unreadable file is a confident
// invalid outcome, not a capability failure.
type XLSXValidator struct{}

func NewXLSXValidator() *XLSXValidator {
	return &XLSXValidator{}
}

func (v *XLSXValidator) Validate(ctx context.Context, doc Document) (*models.ValidationOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	if err != nil {
		return &models.ValidationOutcome{
			IsValid:    false,
			Confidence: 1.0,
			Errors: []models.ValidationIssue{{
				Column: "file",
				Row:    0,
				Issue:  fmt.Sprintf("cannot read XLSX file: %v", err),
			}},
			Warnings:   []string{},
			AgentModel: validatorModel,
			ElapsedMs:  time.Since(start).Milliseconds(),
		}, nil
	}
	defer f.Close()

	issues := []models.ValidationIssue{}
	warnings := []string{}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		issues = append(issues, models.ValidationIssue{Column: "file", Row: 0, Issue: "workbook has no sheets"})
	}

	var rows [][]string
	if len(sheets) > 0 {
		rows, err = f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
		}
		if len(sheets) > 1 {
			warnings = append(warnings, fmt.Sprintf("workbook has %d sheets; only %q is validated", len(sheets), sheets[0]))
		}
	}

	var headers []string
	if len(rows) == 0 {
		issues = append(issues, models.ValidationIssue{Column: "file", Row: 0, Issue: "sheet is empty"})
	} else {
		headers = rows[0]
		seen := map[string]bool{}
		for i, h := range headers {
			name := strings.TrimSpace(h)
			if name == "" {
				issues = append(issues, models.ValidationIssue{
					Column: columnName(i),
					Row:    1,
					Issue:  "header cell is empty",
				})
				continue
			}
			key := strings.ToLower(name)
			if seen[key] {
				warnings = append(warnings, fmt.Sprintf("duplicate header %q", name))
			}
			seen[key] = true
		}
		if len(rows) == 1 {
			issues = append(issues, models.ValidationIssue{Column: "file", Row: 1, Issue: "sheet has headers but no data rows"})
		}
	}

	// Figure columns must hold parseable decimals.
	for colIdx, header := range headers {
		if !isNumericHeader(header) {
			continue
		}
		for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
			row := rows[rowIdx]
			if colIdx >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[colIdx])
			if cell == "" {
				continue
			}
			if _, err := decimal.NewFromString(normalizeFigure(cell)); err != nil {
				issues = append(issues, models.ValidationIssue{
					Column: strings.TrimSpace(header),
					Row:    rowIdx + 1,
					Issue:  fmt.Sprintf("value %q is not a number", cell),
				})
			}
		}
	}

	confidence := 0.95
	if len(warnings) > 0 {
		confidence = 0.9
	}
	if len(issues) > 0 {
		confidence = 0.92
	}

	return &models.ValidationOutcome{
		IsValid:    len(issues) == 0,
		Confidence: confidence,
		Errors:     issues,
		Warnings:   warnings,
		AgentModel: validatorModel,
		ElapsedMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (v *XLSXValidator) Health(ctx context.Context) error { return ctx.Err() }

func isNumericHeader(header string) bool {
	h := strings.ToLower(header)
	for _, hint := range numericHeaderHints {
		if strings.Contains(h, hint) {
			return true
		}
	}
	return false
}

// normalizeFigure strips formatting that is legitimate in filed reports
// (thousands separators, surrounding spaces) before decimal parsing.
func normalizeFigure(cell string) string {
	cell = strings.ReplaceAll(cell, " ", "")
	cell = strings.ReplaceAll(cell, ",", "")
	return cell
}

// columnName converts a zero-based index to the spreadsheet column label.
func columnName(idx int) string {
	name, err := excelize.ColumnNumberToName(idx + 1)
	if err != nil {
		return fmt.Sprintf("col%d", idx+1)
	}
	return name
}
