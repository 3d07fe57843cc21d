package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"fjacquet/csv-ingest/internal/models"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Record is one record read from the input. Line is the one-based line on
// which the record starts. Err is set for malformed records; reading may
// continue after it.
type Record struct {
	Line int
	Row  models.RawRow
	Err  error
}

// Reader streams records of a statement file using a mapping's delimiter,
// header flag and encoding.
type Reader struct {
	csv        *csv.Reader
	skipHeader bool
}

// NewReader wraps r for mapping. Unsupported encodings are rejected.
func NewReader(r io.Reader, mapping *models.MappingConfig) (*Reader, error) {
	if mapping == nil {
		return nil, fmt.Errorf("csv reader: mapping is nil")
	}
	decoded, err := decoderFor(r, mapping.Encoding)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(decoded)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = mapping.DelimiterRune()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	return &Reader{csv: cr, skipHeader: mapping.HasHeader}, nil
}

func decoderFor(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// Next returns the next data record, or io.EOF when the input is exhausted.
// Errors other than io.EOF are fatal read errors; malformed records are
// reported through Record.Err instead.
func (r *Reader) Next() (Record, error) {
	for {
		row, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}

		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			return Record{}, fmt.Errorf("read csv: %w", err)
		}

		if r.skipHeader {
			r.skipHeader = false
			continue
		}

		if parseErr != nil {
			return Record{Line: parseErr.StartLine, Err: fmt.Errorf("malformed record: %w", parseErr.Err)}, nil
		}

		line, _ := r.csv.FieldPos(0)
		return Record{Line: line, Row: models.RawRow(row)}, nil
	}
}

// ReadAll drains the reader. Intended for small inputs and tests.
func (r *Reader) ReadAll() ([]Record, error) {
	var out []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// SplitSample splits one sample line with the given delimiter.
func SplitSample(line string, delimiter rune) (models.RawRow, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, fmt.Errorf("sample line is empty")
	}
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	row, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("split sample: %w", err)
	}
	return models.RawRow(row), nil
}
