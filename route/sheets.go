package route

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type SheetsConfig struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
}

// SheetsSource reads the route table from a Google spreadsheet. The first row
// of the range holds the column headers.
type SheetsSource struct {
	svc           *sheets.Service
	spreadsheetID string
	readRange     string
}

func NewSheetsSource(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*SheetsSource, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}

	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	if f := strings.TrimSpace(cfg.CredentialsFile); f != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(f))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	ss, err := svc.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: open spreadsheet %s: %w", id, err)
	}

	readRange := strings.TrimSpace(cfg.Range)
	if readRange == "" {
		if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
			return nil, fmt.Errorf("sheets: spreadsheet %s has no worksheets", id)
		}
		readRange = quoteSheetTitle(ss.Sheets[0].Properties.Title)
	}

	return &SheetsSource{
		svc:           svc,
		spreadsheetID: id,
		readRange:     readRange,
	}, nil
}

// Rows keeps numbers numeric but renders date and time cells as their
// displayed text, so "7:30 AM" does not reach the model as a serial number.
func (s *SheetsSource) Rows(ctx context.Context) ([]Record, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %s: %w", s.readRange, err)
	}
	return recordsFromValues(resp.Values)
}

// recordsFromValues turns a header row plus data rows into records. Short
// rows are padded with empty strings.
func recordsFromValues(values [][]interface{}) ([]Record, error) {
	if len(values) == 0 {
		return nil, nil
	}

	headers := make([]string, len(values[0]))
	seen := make(map[string]struct{}, len(values[0]))
	for i, h := range values[0] {
		name := strings.TrimSpace(fmt.Sprint(h))
		if name != "" {
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("sheets: duplicate header %q", name)
			}
			seen[name] = struct{}{}
		}
		headers[i] = name
	}

	records := make([]Record, 0, len(values)-1)
	for _, row := range values[1:] {
		rec := make(Record, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func quoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
