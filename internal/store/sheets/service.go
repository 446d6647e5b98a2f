package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	RecordsSheet    string
	WorkersSheet    string
	CredentialsJSON string
	CredentialsFile string
}

// grid is the slice of the Sheets API the store needs. Row indexes are
// zero based and include the header row.
type grid interface {
	Read(ctx context.Context, sheet string) ([][]any, error)
	WriteRow(ctx context.Context, sheet string, row int, values []any) error
	AppendRow(ctx context.Context, sheet string, values []any) error
	DeleteRow(ctx context.Context, sheet string, row int) error
	// Replace clears the tab and writes rows from the top.
	Replace(ctx context.Context, sheet string, rows [][]any) error
	// Counter returns the id high-water mark kept for a tab, 0 if unset.
	Counter(ctx context.Context, sheet string) (int64, error)
	SetCounter(ctx context.Context, sheet string, next int64) error
}

// apiGrid talks to a real spreadsheet.
type apiGrid struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetIDs      map[string]int64
}

func newAPIGrid(ctx context.Context, cfg Config) (*apiGrid, error) {
	creds, err := credentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	// DeleteDimension addresses tabs by numeric id, not by title.
	meta, err := svc.Spreadsheets.Get(cfg.SpreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", cfg.SpreadsheetID, err)
	}
	ids := make(map[string]int64, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}
	for _, name := range []string{cfg.RecordsSheet, cfg.WorkersSheet} {
		if _, ok := ids[name]; !ok {
			return nil, fmt.Errorf("spreadsheet %s has no sheet %q", cfg.SpreadsheetID, name)
		}
	}

	slog.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", cfg.SpreadsheetID,
		"records_sheet", cfg.RecordsSheet,
		"workers_sheet", cfg.WorkersSheet)
	return &apiGrid{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetIDs: ids}, nil
}

// credentials resolves service account JSON: inline, from a file, or from
// GOOGLE_APPLICATION_CREDENTIALS.
func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (g *apiGrid) Read(ctx context.Context, sheet string) ([][]any, error) {
	// Unformatted so a currency or grouping format on a cell cannot leak
	// separators into the amount text.
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, quote(sheet)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	return resp.Values, nil
}

func (g *apiGrid) WriteRow(ctx context.Context, sheet string, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d", quote(sheet), row+1)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}

func (g *apiGrid) AppendRow(ctx context.Context, sheet string, values []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, quote(sheet), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	return nil
}

func (g *apiGrid) DeleteRow(ctx context.Context, sheet string, row int) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    g.sheetIDs[sheet],
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row + 1),
					// Sheet id 0 is valid and would otherwise be omitted.
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", row+1, sheet, err)
	}
	return nil
}

func (g *apiGrid) Replace(ctx context.Context, sheet string, rows [][]any) error {
	if _, err := g.svc.Spreadsheets.Values.Clear(g.spreadsheetID, quote(sheet), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil
	}
	rng := quote(sheet) + "!A1"
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}
	return nil
}

// The id counters live in spreadsheet developer metadata, one key per tab.
func (g *apiGrid) counterKey(sheet string) string {
	return fmt.Sprintf("wagebook.next_id.%d", g.sheetIDs[sheet])
}

func (g *apiGrid) findCounter(ctx context.Context, sheet string) (*gsheet.DeveloperMetadata, error) {
	req := &gsheet.SearchDeveloperMetadataRequest{
		DataFilters: []*gsheet.DataFilter{{
			DeveloperMetadataLookup: &gsheet.DeveloperMetadataLookup{MetadataKey: g.counterKey(sheet)},
		}},
	}
	resp, err := g.svc.Spreadsheets.DeveloperMetadata.Search(g.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search id counter of %s: %w", sheet, err)
	}
	for _, m := range resp.MatchedDeveloperMetadata {
		if m.DeveloperMetadata != nil {
			return m.DeveloperMetadata, nil
		}
	}
	return nil, nil
}

func (g *apiGrid) Counter(ctx context.Context, sheet string) (int64, error) {
	md, err := g.findCounter(ctx, sheet)
	if err != nil || md == nil {
		return 0, err
	}
	n, err := strconv.ParseInt(md.MetadataValue, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id counter of %s: invalid value %q", sheet, md.MetadataValue)
	}
	return n, nil
}

func (g *apiGrid) SetCounter(ctx context.Context, sheet string, next int64) error {
	md, err := g.findCounter(ctx, sheet)
	if err != nil {
		return err
	}
	value := strconv.FormatInt(next, 10)

	var r *gsheet.Request
	if md == nil {
		r = &gsheet.Request{CreateDeveloperMetadata: &gsheet.CreateDeveloperMetadataRequest{
			DeveloperMetadata: &gsheet.DeveloperMetadata{
				MetadataKey:   g.counterKey(sheet),
				MetadataValue: value,
				Location:      &gsheet.DeveloperMetadataLocation{Spreadsheet: true},
				Visibility:    "DOCUMENT",
			},
		}}
	} else {
		r = &gsheet.Request{UpdateDeveloperMetadata: &gsheet.UpdateDeveloperMetadataRequest{
			DataFilters: []*gsheet.DataFilter{{
				DeveloperMetadataLookup: &gsheet.DeveloperMetadataLookup{MetadataId: md.MetadataId},
			}},
			DeveloperMetadata: &gsheet.DeveloperMetadata{MetadataValue: value},
			Fields:            "metadataValue",
		}}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{r}}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("store id counter of %s: %w", sheet, err)
	}
	return nil
}

func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}
