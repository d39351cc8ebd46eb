// Package export writes monthly reports to a Google Sheets spreadsheet.
// Auth is a service account; credentials come from the environment.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/services"
)

type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// NewSheetsExporter creates an exporter for the given spreadsheet.
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewSheetsExporter(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentExport),
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportReport replaces the report sheet's contents with the month's
// summaries across all three dimensions.
func (e *SheetsExporter) ExportReport(ctx context.Context, report services.MonthReport) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rows := reportRows(report)

	clearRange := fmt.Sprintf("%s!A:J", e.sheetName)
	_, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear report sheet %s: %w", e.sheetName, err)
	}

	writeRange := fmt.Sprintf("%s!A1", e.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write report sheet %s: %w", e.sheetName, err)
	}

	e.logger.InfoContext(ctx, "Exported month report",
		log.FieldYear, report.Year,
		log.FieldMonth, report.Month,
		log.FieldSheetsRange, writeRange,
		"rows", len(rows))
	return nil
}

// reportRows flattens a report into spreadsheet rows. Amounts are written
// as decimal units, not cents.
func reportRows(report services.MonthReport) [][]any {
	rows := [][]any{
		{fmt.Sprintf("%04d-%02d", report.Year, report.Month)},
		{"Dimension", "Group", "Net", "Expenses", "Income", "Transfers", "Count", "Average", "Highest", "Lowest"},
	}

	appendDim := func(dimension string, ms services.MonthSummaries) {
		for _, s := range ms.Summaries {
			if s.TotalCount == 0 && s.TotalCents == 0 &&
				s.ExpenseCents == 0 && s.IncomeCents == 0 && s.TransferCents == 0 {
				continue
			}
			rows = append(rows, []any{
				dimension, s.Name,
				units(s.TotalCents), units(s.ExpenseCents), units(s.IncomeCents), units(s.TransferCents),
				s.TotalCount,
				units(s.AverageCents), units(s.HighestCents), units(s.LowestCents),
			})
		}
	}
	appendDim("category", services.MonthSummaries{Summaries: filterDirect(report.Categories.Summaries)})
	appendDim("tag", report.Tags)
	appendDim("person", report.People)
	return rows
}

// filterDirect keeps the rows a reader of the spreadsheet cares about:
// children and standalone categories, skipping pure roll-up parents.
func filterDirect(sums []core.Summary) []core.Summary {
	out := make([]core.Summary, 0, len(sums))
	for _, s := range sums {
		if s.IsParent && s.TotalCount == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

func units(cents int64) float64 {
	return float64(cents) / 100.0
}
