package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"license-binding-server/internal/model"
)

const sheetColumns = "A%d:I%d"

// SheetSyncService mirrors licenses into a Google Sheet, one row per license keyed by column A.
type SheetSyncService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// NewSheetSyncService loads service account credentials from credentialPath.
// It returns nil when sync is disabled.
func NewSheetSyncService(ctx context.Context, enableSync bool, credentialPath, spreadsheetID, sheetName string, logger *slog.Logger) (*SheetSyncService, error) {
	if !enableSync {
		return nil, nil
	}

	b, err := os.ReadFile(credentialPath)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("load sheets credentials: %w", err)
	}
	return NewSheetSyncServiceWithOptions(ctx, spreadsheetID, sheetName, logger, option.WithCredentials(creds))
}

// NewSheetSyncServiceWithOptions builds the mirror from explicit client options.
func NewSheetSyncServiceWithOptions(ctx context.Context, spreadsheetID, sheetName string, logger *slog.Logger, opts ...option.ClientOption) (*SheetSyncService, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetSyncService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

// SyncLicense updates the row of license, appending one when the key is not in the sheet yet.
func (s *SheetSyncService) SyncLicense(ctx context.Context, license model.License) error {
	if s == nil {
		return nil
	}

	row, found, err := s.findRow(ctx, license.Key)
	if err != nil {
		return err
	}

	values := [][]interface{}{licenseRow(license)}
	if found {
		rng := fmt.Sprintf("%s!"+sheetColumns, s.sheetName, row, row)
		_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
	} else {
		_, err = s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!A2:I", &sheets.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("sync license %s to sheet: %w", license.Key, err)
	}

	s.logger.Debug("license synced to sheet", slog.String("key", license.Key), slog.Bool("updated", found))
	return nil
}

// RemoveLicense clears the row of key. A key that is not in the sheet is ignored.
func (s *SheetSyncService) RemoveLicense(ctx context.Context, key string) error {
	if s == nil {
		return nil
	}

	row, found, err := s.findRow(ctx, key)
	if err != nil || !found {
		return err
	}
	rng := fmt.Sprintf("%s!"+sheetColumns, s.sheetName, row, row)
	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear license %s from sheet: %w", key, err)
	}
	return nil
}

// SyncAll replaces every data row of the sheet with licenses.
func (s *SheetSyncService) SyncAll(ctx context.Context, licenses []model.License) error {
	if s == nil {
		return nil
	}

	dataRange := s.sheetName + "!A2:I"
	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, dataRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	if len(licenses) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(licenses))
	for _, l := range licenses {
		values = append(values, licenseRow(l))
	}
	rng := fmt.Sprintf("%s!"+sheetColumns, s.sheetName, 2, len(licenses)+1)
	if _, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch sync licenses: %w", err)
	}

	s.logger.Info("licenses synced to sheet", slog.Int("count", len(licenses)))
	return nil
}

func (s *SheetSyncService) findRow(ctx context.Context, key string) (int, bool, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A2:A").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read sheet keys: %w", err)
	}
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == key {
			// data starts at row 2
			return i + 2, true, nil
		}
	}
	return 0, false, nil
}

func licenseRow(l model.License) []interface{} {
	return []interface{}{
		l.Key,
		l.User,
		l.HWID,
		l.CreatedAt.Format(time.RFC3339),
		formatOptionalTime(l.Expiration),
		strconv.FormatBool(l.Used),
		formatOptionalTime(l.UsedAt),
		l.UsedBy,
		strconv.FormatBool(l.Blocked),
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
