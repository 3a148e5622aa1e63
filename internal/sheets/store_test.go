package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sheet-broadcast/internal/broadcast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const testSpreadsheetID = "sheet-id"

type cellUpdate struct {
	Range  string
	Option string
	Values [][]interface{}
}

// fakeSheetsAPI serves values.get and values.update for one spreadsheet laid
// out from A1.
type fakeSheetsAPI struct {
	mu         sync.Mutex
	values     [][]interface{}
	updates    []cellUpdate
	failGet    bool
	failUpdate bool
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/v4/spreadsheets/" + testSpreadsheetID + "/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)

	switch r.Method {
	case http.MethodGet:
		if f.failGet {
			http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(gsheets.ValueRange{Range: rng, Values: f.read(rng)})

	case http.MethodPut:
		if f.failUpdate {
			http.Error(w, `{"error":{"code":403,"message":"permission denied"}}`, http.StatusForbidden)
			return
		}
		var body gsheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.updates = append(f.updates, cellUpdate{
			Range:  rng,
			Option: r.URL.Query().Get("valueInputOption"),
			Values: body.Values,
		})
		_ = json.NewEncoder(w).Encode(gsheets.UpdateValuesResponse{UpdatedCells: 1, UpdatedRange: rng})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// read returns the whole sheet for a column range, or one row for a
// single-row span such as Sheet1!A3:B3.
func (f *fakeSheetsAPI) read(rng string) [][]interface{} {
	a1, err := ParseA1Range(rng)
	if err != nil || !strings.Contains(rng, ":") {
		return nil
	}
	end := rng[strings.LastIndex(rng, ":")+1:]
	if strings.TrimLeft(end, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") == "" {
		return f.values
	}
	if a1.StartRow > len(f.values) {
		return nil
	}
	row := f.values[a1.StartRow-1]
	if a1.StartCol >= len(row) {
		return [][]interface{}{{}}
	}
	return [][]interface{}{row[a1.StartCol:min(len(row), a1.StartCol+2)]}
}

func (f *fakeSheetsAPI) Updates() []cellUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cellUpdate(nil), f.updates...)
}

type staticProvider struct {
	svc *gsheets.Service
	err error
}

func (p staticProvider) Service(context.Context) (*gsheets.Service, error) {
	return p.svc, p.err
}

func newTestStore(t *testing.T, api *fakeSheetsAPI, verify bool) *Store {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := gsheets.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)

	return NewStore(staticProvider{svc: svc}, testSpreadsheetID, "Sheet1!A:C", verify)
}

func sampleValues() [][]interface{} {
	return [][]interface{}{
		{"Name", "Phone", "Sent"},
		{"Alice", "+15551230001", ""},
		{"Bob", "", ""},
		{"Carol", "+15551230003", "Yes"},
	}
}

func TestStore_Fetch(t *testing.T) {
	t.Parallel()

	api := &fakeSheetsAPI{values: sampleValues()}
	store := newTestStore(t, api, false)

	table, err := store.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, table.Contacts, 3)
	assert.Equal(t, broadcast.Contact{Row: 2, Name: "Alice", Phone: "+15551230001"}, table.Contacts[0])
	assert.Equal(t, "Yes", table.Contacts[2].SentStatus)
}

func TestStore_Fetch_Empty(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, &fakeSheetsAPI{}, false)

	_, err := store.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestStore_Fetch_APIError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, &fakeSheetsAPI{failGet: true}, false)

	_, err := store.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}

func TestStore_Fetch_NoToken(t *testing.T) {
	t.Parallel()

	store := NewStore(staticProvider{err: ErrNoToken}, testSpreadsheetID, "Sheet1!A:C", false)

	_, err := store.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestStore_MarkSent(t *testing.T) {
	t.Parallel()

	api := &fakeSheetsAPI{values: sampleValues()}
	store := newTestStore(t, api, true)

	table, err := store.Fetch(context.Background())
	require.NoError(t, err)

	marker, err := store.Marker(context.Background(), table)
	require.NoError(t, err)

	require.NoError(t, marker.MarkSent(context.Background(), table.Contacts[0]))

	require.Len(t, api.Updates(), 1)
	assert.Equal(t, "Sheet1!C2", api.Updates()[0].Range)
	assert.Equal(t, "RAW", api.Updates()[0].Option)
	assert.Equal(t, [][]interface{}{{"Yes"}}, api.Updates()[0].Values)
}

func TestStore_MarkSent_RowMoved(t *testing.T) {
	t.Parallel()

	api := &fakeSheetsAPI{values: sampleValues()}
	store := newTestStore(t, api, true)

	table, err := store.Fetch(context.Background())
	require.NoError(t, err)

	// Someone inserted a row above Alice after the fetch.
	api.mu.Lock()
	api.values = append([][]interface{}{api.values[0], {"Zed", "+19990000000", ""}}, api.values[1:]...)
	api.mu.Unlock()

	marker, err := store.Marker(context.Background(), table)
	require.NoError(t, err)

	err = marker.MarkSent(context.Background(), table.Contacts[0])
	assert.ErrorIs(t, err, ErrRowMoved)
	assert.Empty(t, api.Updates())
}

func TestStore_MarkSent_NoVerification(t *testing.T) {
	t.Parallel()

	api := &fakeSheetsAPI{values: sampleValues()}
	store := newTestStore(t, api, false)

	table, err := store.Fetch(context.Background())
	require.NoError(t, err)

	api.mu.Lock()
	api.values = nil
	api.mu.Unlock()

	marker, err := store.Marker(context.Background(), table)
	require.NoError(t, err)
	require.NoError(t, marker.MarkSent(context.Background(), table.Contacts[0]))
	assert.Len(t, api.Updates(), 1)
}

func TestStore_MarkSent_WriteFails(t *testing.T) {
	t.Parallel()

	api := &fakeSheetsAPI{values: sampleValues(), failUpdate: true}
	store := newTestStore(t, api, false)

	table, err := store.Fetch(context.Background())
	require.NoError(t, err)

	marker, err := store.Marker(context.Background(), table)
	require.NoError(t, err)

	err = marker.MarkSent(context.Background(), table.Contacts[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sheet1!C2")
}

func TestStore_WriteCell(t *testing.T) {
	t.Parallel()

	api := &fakeSheetsAPI{values: sampleValues()}
	store := newTestStore(t, api, false)

	require.NoError(t, store.WriteCell(context.Background(), 7, "D", "note"))

	require.Len(t, api.Updates(), 1)
	assert.Equal(t, "Sheet1!D7", api.Updates()[0].Range)
	assert.Equal(t, [][]interface{}{{"note"}}, api.Updates()[0].Values)

	err := store.WriteCell(context.Background(), 7, "4", "x")
	assert.Error(t, err)
}

func TestStore_ReconcileAgainstSheet(t *testing.T) {
	t.Parallel()

	api := &fakeSheetsAPI{values: sampleValues()}
	store := newTestStore(t, api, true)

	table, err := store.Fetch(context.Background())
	require.NoError(t, err)

	marker, err := store.Marker(context.Background(), table)
	require.NoError(t, err)

	message, err := broadcast.ParseTemplate("Hi {{.Name}}")
	require.NoError(t, err)

	sender := senderFunc(func(_ context.Context, to, _ string) (string, error) {
		if to == "" {
			return "", errors.New("empty number")
		}
		return "SM-" + to, nil
	})

	entries := broadcast.NewReconciler(sender, marker, message).Run(context.Background(), table.Contacts)

	require.Len(t, entries, 1)
	assert.Equal(t, "Alice", entries[0].Name)
	assert.Equal(t, broadcast.StatusSent, entries[0].Status)
	require.Len(t, api.Updates(), 1)
	assert.Equal(t, "Sheet1!C2", api.Updates()[0].Range)
}

type senderFunc func(ctx context.Context, to, body string) (string, error)

func (f senderFunc) Send(ctx context.Context, to, body string) (string, error) {
	return f(ctx, to, body)
}
