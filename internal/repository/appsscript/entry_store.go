package appsscript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
	client "github.com/mamadbah2/farebook/pkg/clients/appsscript"
)

// EntryStore persists entries through the Apps Script web app.
type EntryStore struct {
	client client.Client
	logger *zap.Logger
}

var _ repository.EntryStore = (*EntryStore)(nil)

// NewEntryStore wires an entry store over an Apps Script client.
func NewEntryStore(c client.Client, logger *zap.Logger) *EntryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryStore{client: c, logger: logger}
}

// Add sends an addEntry action.
func (s *EntryStore) Add(ctx context.Context, entry models.Entry) error {
	req := models.ActionRequest{Action: string(models.ActionAddEntry), Entry: &entry}
	if err := s.client.Call(ctx, req, nil); err != nil {
		return fmt.Errorf("save entry %d: %w", entry.EntryID, mapError(err))
	}
	return nil
}

// List sends a getEntries action and decodes each row on its own. Blank
// cells arrive as "" and read as zero values; rows written before the status
// column existed are treated as pending. Rows that still fail to decode are
// skipped.
func (s *EntryStore) List(ctx context.Context) ([]models.Entry, error) {
	var rows []json.RawMessage
	req := models.ActionRequest{Action: string(models.ActionGetEntries)}
	if err := s.client.Call(ctx, req, &rows); err != nil {
		return nil, fmt.Errorf("load entries: %w", mapError(err))
	}

	entries := make([]models.Entry, 0, len(rows))
	for i, raw := range rows {
		entry, err := decodeRow(raw)
		if err != nil {
			s.logger.Debug("skip entry row", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	s.logger.Debug("entries loaded from apps script",
		zap.Int("count", len(entries)),
		zap.Int("skipped", len(rows)-len(entries)))
	return entries, nil
}

func decodeRow(raw json.RawMessage) (models.Entry, error) {
	var cells map[string]json.RawMessage
	if err := json.Unmarshal(raw, &cells); err != nil {
		return models.Entry{}, fmt.Errorf("decode row: %w", err)
	}
	for key, value := range cells {
		if string(value) == `""` || string(value) == "null" {
			delete(cells, key)
		}
	}
	cleaned, err := json.Marshal(cells)
	if err != nil {
		return models.Entry{}, fmt.Errorf("encode row: %w", err)
	}

	var entry models.Entry
	if err := json.Unmarshal(cleaned, &entry); err != nil {
		return models.Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	if entry.EntryID == 0 {
		return models.Entry{}, errors.New("row has no entryId")
	}
	if !entry.Type.Valid() {
		return models.Entry{}, fmt.Errorf("entry %d: unknown type %q", entry.EntryID, entry.Type)
	}
	if entry.EntryStatus == "" {
		entry.EntryStatus = models.StatusPending
	}
	if !entry.EntryStatus.Valid() {
		return models.Entry{}, fmt.Errorf("entry %d: unknown status %q", entry.EntryID, entry.EntryStatus)
	}
	return entry, nil
}

// Get lists and looks the entry up; the web app has no single-row read.
func (s *EntryStore) Get(ctx context.Context, id int64) (models.Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return models.Entry{}, err
	}
	for _, e := range entries {
		if e.EntryID == id {
			return e, nil
		}
	}
	return models.Entry{}, fmt.Errorf("entry %d: %w", id, repository.ErrEntryNotFound)
}

// Update sends an updateEntry action carrying the whole row.
func (s *EntryStore) Update(ctx context.Context, entry models.Entry) error {
	req := models.ActionRequest{Action: string(models.ActionUpdateEntry), Entry: &entry}
	if err := s.client.Call(ctx, req, nil); err != nil {
		return fmt.Errorf("update entry %d: %w", entry.EntryID, mapError(err))
	}
	return nil
}

// Delete sends a deleteEntry action.
func (s *EntryStore) Delete(ctx context.Context, id int64) error {
	req := models.ActionRequest{Action: string(models.ActionDeleteEntry), EntryID: id}
	if err := s.client.Call(ctx, req, nil); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, mapError(err))
	}
	return nil
}

func mapError(err error) error {
	var scriptErr *client.ScriptError
	if errors.As(err, &scriptErr) && strings.Contains(strings.ToLower(scriptErr.Message), "not found") {
		return fmt.Errorf("%s: %w", scriptErr.Message, repository.ErrEntryNotFound)
	}
	return err
}
