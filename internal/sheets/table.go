package sheets

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sheet-broadcast/internal/broadcast"
)

const (
	HeaderName  = "Name"
	HeaderPhone = "Phone"
	HeaderSent  = "Sent"

	headerRows = 1
)

var (
	ErrFetch         = errors.New("failed to fetch contact sheet")
	ErrEmptyTable    = errors.New("no data found in the sheet")
	ErrMissingColumn = errors.New("required column missing from sheet header")
	ErrInvalidRange  = errors.New("invalid A1 range")
)

// A1Range is a parsed "Sheet1!A:C" style range. Only the top-left corner
// matters for addressing rows and columns.
type A1Range struct {
	Sheet    string
	StartCol int // 0-based
	StartRow int // 1-based
}

// Sheet columns never exceed three letters, so "Sheet1" is a sheet name.
var cellRef = regexp.MustCompile(`^[A-Za-z]{1,3}[0-9]*(:[A-Za-z]{1,3}[0-9]*)?$`)

// ParseA1Range accepts "Sheet1!A:C", "A:C" and a bare sheet name such as
// "Sheet1" or "'Q1 Leads'", which covers the whole sheet from A1.
func ParseA1Range(s string) (A1Range, error) {
	r := A1Range{StartRow: 1}

	var cells string
	if i := strings.LastIndex(s, "!"); i >= 0 {
		r.Sheet = s[:i]
		cells = s[i+1:]
		if r.Sheet == "" || cells == "" {
			return A1Range{}, fmt.Errorf("%w %q: missing sheet or cells", ErrInvalidRange, s)
		}
	} else if cellRef.MatchString(s) {
		cells = s
	} else {
		r.Sheet = s
	}

	if strings.TrimSpace(r.Sheet) == "" && cells == "" {
		return A1Range{}, fmt.Errorf("%w %q: empty range", ErrInvalidRange, s)
	}
	if cells == "" {
		return r, nil
	}

	start := cells
	if i := strings.Index(cells, ":"); i >= 0 {
		start = cells[:i]
	}

	letters := strings.TrimRightFunc(start, func(r rune) bool { return r >= '0' && r <= '9' })
	digits := start[len(letters):]

	col, err := ColumnIndex(letters)
	if err != nil {
		return A1Range{}, fmt.Errorf("%w %q: %v", ErrInvalidRange, s, err)
	}
	r.StartCol = col

	if digits != "" {
		row, err := strconv.Atoi(digits)
		if err != nil || row < 1 {
			return A1Range{}, fmt.Errorf("%w %q: bad start row", ErrInvalidRange, s)
		}
		r.StartRow = row
	}

	return r, nil
}

// Cell addresses a single cell on the same sheet.
func (r A1Range) Cell(col, row int) string {
	return r.prefix() + ColumnLetter(col) + strconv.Itoa(row)
}

// Span addresses cells fromCol..toCol on one row.
func (r A1Range) Span(fromCol, toCol, row int) string {
	return r.prefix() + ColumnLetter(fromCol) + strconv.Itoa(row) + ":" + ColumnLetter(toCol) + strconv.Itoa(row)
}

func (r A1Range) prefix() string {
	if r.Sheet == "" {
		return ""
	}
	return r.Sheet + "!"
}

// ColumnIndex converts "A" to 0, "Z" to 25, "AA" to 26.
func ColumnIndex(letters string) (int, error) {
	if letters == "" {
		return 0, errors.New("missing column")
	}
	n := 0
	for _, ch := range strings.ToUpper(letters) {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("bad column %q", letters)
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, nil
}

func ColumnLetter(index int) string {
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// Layout maps header names to absolute sheet columns.
type Layout struct {
	Range    A1Range
	NameCol  int
	PhoneCol int
	SentCol  int
}

// Table is one fetched snapshot of the contact sheet. It is read-only once
// built.
type Table struct {
	Header   []string
	Rows     [][]string
	Contacts []broadcast.Contact
	Layout   Layout
}

// ParseTable builds a Table from raw sheet values. The first row is the
// header; rows may be ragged.
func ParseTable(rng A1Range, values [][]interface{}) (*Table, error) {
	if len(values) == 0 {
		return nil, ErrEmptyTable
	}

	header := toStrings(values[0])
	nameIdx := indexOf(header, HeaderName)
	phoneIdx := indexOf(header, HeaderPhone)
	if nameIdx < 0 || phoneIdx < 0 {
		return nil, fmt.Errorf("%w: need %q and %q, got %v", ErrMissingColumn, HeaderName, HeaderPhone, header)
	}

	// Without a Sent header, status goes into the first column after the header.
	sentIdx := indexOf(header, HeaderSent)
	if sentIdx < 0 {
		sentIdx = len(header)
	}

	t := &Table{
		Header: header,
		Layout: Layout{
			Range:    rng,
			NameCol:  rng.StartCol + nameIdx,
			PhoneCol: rng.StartCol + phoneIdx,
			SentCol:  rng.StartCol + sentIdx,
		},
	}

	firstDataRow := rng.StartRow + headerRows
	for i, raw := range values[1:] {
		row := toStrings(raw)
		t.Rows = append(t.Rows, row)
		t.Contacts = append(t.Contacts, broadcast.Contact{
			Row:        firstDataRow + i,
			Name:       strings.TrimSpace(at(row, nameIdx)),
			Phone:      strings.TrimSpace(at(row, phoneIdx)),
			SentStatus: at(row, sentIdx),
		})
	}

	return t, nil
}

func toStrings(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[i] = s
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func at(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// WithSent returns a copy of the table with the given sheet rows marked as
// sent. The receiver is left untouched.
func (t *Table) WithSent(rows ...int) *Table {
	marked := make(map[int]bool, len(rows))
	for _, r := range rows {
		marked[r] = true
	}

	out := *t
	out.Contacts = make([]broadcast.Contact, len(t.Contacts))
	for i, c := range t.Contacts {
		if marked[c.Row] {
			c.SentStatus = broadcast.SentMarker
		}
		out.Contacts[i] = c
	}
	return &out
}
