package agents

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"bitbucket.org/consolelogwin/veritas_backend/models"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes a single-sheet workbook with the given rows and
// returns the serialized bytes, the same shape an upload hands the validator.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestValidate_WellFormedWorkbook(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"position", "amount", "currency"},
		{"cash", "1200.50", "PLN"},
		{"bonds", "3 400,25", "PLN"},
	})

	outcome, err := NewXLSXValidator().Validate(context.Background(), Document{
		FileName: "q1.xlsx", Data: data, Kind: models.ReportKindLiquidity,
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !outcome.IsValid {
		t.Fatalf("outcome invalid: %+v", outcome.Errors)
	}
	if outcome.Confidence != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", outcome.Confidence)
	}
	if outcome.AgentModel != "structural-rules-v1" {
		t.Fatalf("agent model = %q", outcome.AgentModel)
	}
}

func TestValidate_NonNumericFigure(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"position", "amount"},
		{"cash", "abc"},
	})

	outcome, err := NewXLSXValidator().Validate(context.Background(), Document{Data: data})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if outcome.IsValid {
		t.Fatal("outcome must be invalid for a non-numeric amount")
	}
	if len(outcome.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", outcome.Errors)
	}
	issue := outcome.Errors[0]
	if issue.Column != "amount" || issue.Row != 2 {
		t.Fatalf("issue pinned to %s:%d, want amount:2", issue.Column, issue.Row)
	}
	if !strings.Contains(issue.Issue, `"abc"`) {
		t.Fatalf("issue = %q, must quote the offending value", issue.Issue)
	}
}

func TestValidate_EmptyHeaderAndNoData(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"position", "", "amount"},
	})

	outcome, err := NewXLSXValidator().Validate(context.Background(), Document{Data: data})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if outcome.IsValid {
		t.Fatal("outcome must be invalid")
	}

	var sawEmptyHeader, sawNoData bool
	for _, issue := range outcome.Errors {
		if issue.Column == "B" && issue.Row == 1 {
			sawEmptyHeader = true
		}
		if strings.Contains(issue.Issue, "no data rows") {
			sawNoData = true
		}
	}
	if !sawEmptyHeader || !sawNoData {
		t.Fatalf("errors = %+v, want empty header at B1 and a no-data issue", outcome.Errors)
	}
}

func TestValidate_UnreadableFile_IsConfidentInvalid(t *testing.T) {
	outcome, err := NewXLSXValidator().Validate(context.Background(), Document{
		FileName: "garbage.xlsx", Data: []byte("this is not a workbook"),
	})
	if err != nil {
		t.Fatalf("unreadable file must not be a capability failure: %v", err)
	}
	if outcome.IsValid {
		t.Fatal("outcome must be invalid")
	}
	if outcome.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0 for an unreadable file", outcome.Confidence)
	}
	if len(outcome.Errors) != 1 || !strings.Contains(outcome.Errors[0].Issue, "cannot read") {
		t.Fatalf("errors = %+v", outcome.Errors)
	}
}

func TestValidate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewXLSXValidator().Validate(ctx, Document{Data: []byte{}})
	if err == nil {
		t.Fatal("cancelled context must surface as an error")
	}
}
