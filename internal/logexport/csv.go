package logexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"sheet-broadcast/internal/broadcast"

	"github.com/jszwec/csvutil"
)

const (
	TimeLayout   = "2006-01-02 15:04:05"
	DownloadName = "sms_logs.csv"
	ContentType  = "text/csv"
)

// Record is one row of the downloadable delivery log.
type Record struct {
	Name   string `csv:"Name"`
	Phone  string `csv:"Phone"`
	Status string `csv:"Status"`
	Time   string `csv:"Time"`
}

func Records(entries []broadcast.Entry) []Record {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record{
			Name:   e.Name,
			Phone:  e.Phone,
			Status: e.Status,
			Time:   e.Time.Format(TimeLayout),
		})
	}
	return records
}

// Render encodes entries as CSV with a header row. An empty log still yields
// the header.
func Render(entries []broadcast.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)

	records := Records(entries)
	if len(records) == 0 {
		if err := enc.EncodeHeader(Record{}); err != nil {
			return nil, fmt.Errorf("failed to encode csv header: %w", err)
		}
	} else if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode delivery log: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush delivery log: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders entries to path, replacing any previous log.
func WriteFile(path string, entries []broadcast.Entry) error {
	data, err := Render(entries)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write delivery log: %w", err)
	}
	return nil
}
