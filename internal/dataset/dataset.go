package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var (
	// ErrParse indicates the uploaded bytes could not be read as delimited text.
	ErrParse = errors.New("not a readable CSV file")
	// ErrTooLarge marks an upload over the size limit. It wraps ErrParse.
	ErrTooLarge = fmt.Errorf("%w: file exceeds the upload size limit", ErrParse)
	// ErrNoDataset is returned when an operation needs a dataset and none is loaded.
	ErrNoDataset = errors.New("no dataset loaded")
)

// Dataset is an in-memory table loaded from an uploaded file.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Parse reads delimited text with a header row into a Dataset. Cell values,
// including surrounding whitespace, are kept as uploaded.
// The delimiter is ',' unless the name ends in .tsv or the header
// carries more ';' than ','.
func Parse(name string, data []byte) (*Dataset, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrParse)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.Comma = sniffDelimiter(name, data)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrParse, err)
	}
	cols := make([]string, len(header))
	copy(cols, header)
	ds := &Dataset{Name: name, Columns: cols}
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read row %d: %v", ErrParse, len(ds.Rows)+1, err)
		}
		// Normalize length to the header width
		row := make([]string, len(cols))
		copy(row, rec)
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func sniffDelimiter(name string, data []byte) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

// Head returns up to n leading rows.
func (d *Dataset) Head(n int) [][]string {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	if n < 0 {
		n = 0
	}
	return d.Rows[:n]
}

// Preview encodes the header plus the first n rows as CSV text.
func (d *Dataset) Preview(n int) string {
	b, err := encode(d.Columns, d.Head(n))
	if err != nil {
		return ""
	}
	return string(b)
}

// Encode serializes the whole table back to comma separated text.
func (d *Dataset) Encode() ([]byte, error) {
	return encode(d.Columns, d.Rows)
}

func encode(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	return buf.Bytes(), nil
}

// Holder owns the single active dataset of a session.
type Holder struct {
	mu      sync.RWMutex
	current *Dataset
}

// Load parses data and replaces the held dataset. On error the previous
// dataset is kept.
func (h *Holder) Load(name string, data []byte) (*Dataset, error) {
	ds, err := Parse(name, data)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.current = ds
	h.mu.Unlock()
	return ds, nil
}

// Current returns the held dataset or nil.
func (h *Holder) Current() *Dataset {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Export re-encodes the held dataset as CSV.
func (h *Holder) Export() ([]byte, error) {
	ds := h.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}
	return ds.Encode()
}
