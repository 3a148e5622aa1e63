package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sheet-broadcast/internal/broadcast"

	"github.com/rs/zerolog/log"
	gsheets "google.golang.org/api/sheets/v4"
)

var ErrRowMoved = errors.New("sheet row no longer matches the fetched contact")

// ServiceProvider yields an authorized Sheets API client.
type ServiceProvider interface {
	Service(ctx context.Context) (*gsheets.Service, error)
}

// Store reads the contact table from one spreadsheet and writes status
// cells back to it.
type Store struct {
	provider      ServiceProvider
	spreadsheetID string
	rangeA1       string
	verifyRows    bool
}

func NewStore(provider ServiceProvider, spreadsheetID, rangeA1 string, verifyRows bool) *Store {
	return &Store{
		provider:      provider,
		spreadsheetID: spreadsheetID,
		rangeA1:       rangeA1,
		verifyRows:    verifyRows,
	}
}

// Fetch loads the whole configured range once.
func (s *Store) Fetch(ctx context.Context) (*Table, error) {
	rng, err := ParseA1Range(s.rangeA1)
	if err != nil {
		return nil, err
	}

	svc, err := s.provider.Service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeA1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	table, err := ParseTable(rng, resp.Values)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("spreadsheet_id", s.spreadsheetID).
		Str("range", s.rangeA1).
		Int("contacts", len(table.Contacts)).
		Msg("contact sheet fetched")

	return table, nil
}

// Marker returns a StatusMarker that writes into the given table's layout.
func (s *Store) Marker(ctx context.Context, table *Table) (broadcast.StatusMarker, error) {
	svc, err := s.provider.Service(ctx)
	if err != nil {
		return nil, err
	}
	return &rowMarker{store: s, svc: svc, layout: table.Layout}, nil
}

// WriteCell writes a single raw value at column (letters) and 1-based row on
// the configured sheet.
func (s *Store) WriteCell(ctx context.Context, row int, column, value string) error {
	rng, err := ParseA1Range(s.rangeA1)
	if err != nil {
		return err
	}
	col, err := ColumnIndex(column)
	if err != nil {
		return fmt.Errorf("invalid column %q: %w", column, err)
	}

	svc, err := s.provider.Service(ctx)
	if err != nil {
		return err
	}
	return s.writeCell(ctx, svc, rng.Cell(col, row), value)
}

func (s *Store) writeCell(ctx context.Context, svc *gsheets.Service, cell, value string) error {
	body := &gsheets.ValueRange{Values: [][]interface{}{{value}}}

	_, err := svc.Spreadsheets.Values.Update(s.spreadsheetID, cell, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", cell, err)
	}
	return nil
}

type rowMarker struct {
	store  *Store
	svc    *gsheets.Service
	layout Layout
}

func (m *rowMarker) MarkSent(ctx context.Context, contact broadcast.Contact) error {
	if m.store.verifyRows {
		if err := m.verify(ctx, contact); err != nil {
			return err
		}
	}

	cell := m.layout.Range.Cell(m.layout.SentCol, contact.Row)
	return m.store.writeCell(ctx, m.svc, cell, broadcast.SentMarker)
}

// verify re-reads the row and checks it still holds the same name and phone.
func (m *rowMarker) verify(ctx context.Context, contact broadcast.Contact) error {
	from := min(m.layout.NameCol, m.layout.PhoneCol)
	to := max(m.layout.NameCol, m.layout.PhoneCol)
	span := m.layout.Range.Span(from, to, contact.Row)

	resp, err := m.svc.Spreadsheets.Values.Get(m.store.spreadsheetID, span).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to verify row %d: %w", contact.Row, err)
	}

	var row []string
	if len(resp.Values) > 0 {
		row = toStrings(resp.Values[0])
	}

	name := strings.TrimSpace(at(row, m.layout.NameCol-from))
	phone := strings.TrimSpace(at(row, m.layout.PhoneCol-from))
	if name != contact.Name || phone != contact.Phone {
		return fmt.Errorf("%w: row %d now holds %q / %q", ErrRowMoved, contact.Row, name, phone)
	}
	return nil
}
