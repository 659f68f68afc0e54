package features

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/object-recognition-mcp/internal/fsutil"
)

// Entry is one labelled vector of a feature database.
type Entry struct {
	Label  string
	Source string
	Vector []float64
}

// Dim returns the vector length.
func (e Entry) Dim() int {
	return len(e.Vector)
}

// ParseEntries reads database rows from r. Malformed rows are logged at
// debug level and skipped; the second return value counts them.
func ParseEntries(r io.Reader, log logrus.FieldLogger) ([]Entry, int, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var entries []Entry
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				log.WithField("line", perr.Line).Debug("skipping unparsable row")
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("failed to read feature rows: %w", err)
		}

		entry, err := parseRecord(record)
		if err != nil {
			line, _ := reader.FieldPos(0)
			log.WithFields(logrus.Fields{
				"line":   line,
				"reason": err.Error(),
			}).Debug("skipping malformed row")
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	return entries, skipped, nil
}

func parseRecord(record []string) (Entry, error) {
	label := strings.TrimSpace(record[0])
	if label == "" {
		return Entry{}, errors.New("blank label")
	}

	fields := record[1:]
	var source string
	if len(fields) > 0 && looksLikeSource(strings.TrimSpace(fields[0])) {
		source = strings.TrimSpace(fields[0])
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return Entry{}, errors.New("no values")
	}

	vec := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Entry{}, fmt.Errorf("value %d is not numeric", i)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Entry{}, fmt.Errorf("value %d is not finite", i)
		}
		vec[i] = v
	}
	return Entry{Label: label, Source: source, Vector: vec}, nil
}

// looksLikeSource reports whether a second column names the sample file
// rather than holding a mistyped value: it must contain a path separator or
// end in an image extension.
func looksLikeSource(field string) bool {
	return strings.ContainsAny(field, `/\`) || IsImageFile(field)
}

// FormatEntry renders one database row, values with four decimals.
func FormatEntry(e Entry) ([]byte, error) {
	record := make([]string, 0, len(e.Vector)+2)
	record = append(record, e.Label)
	if e.Source != "" {
		record = append(record, e.Source)
	}
	for _, v := range e.Vector {
		record = append(record, strconv.FormatFloat(v, 'f', 4, 64))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(record); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Append adds e to the database at path, creating the file and its
// directory when missing.
func Append(fsys fsutil.FileSystem, path string, e Entry) error {
	if strings.TrimSpace(e.Label) == "" {
		return errors.New("label must not be blank")
	}
	if len(e.Vector) == 0 {
		return errors.New("vector must not be empty")
	}
	if e.Source != "" && !looksLikeSource(e.Source) {
		return fmt.Errorf("source %q must be a path or an image file name", e.Source)
	}

	row, err := FormatEntry(e)
	if err != nil {
		return fmt.Errorf("failed to format row: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := fsys.AppendFile(path, row, 0644); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}

// LabelFromFilename derives an enrollment label from an image path: the
// directory and extension are dropped, then everything from the first
// underscore. "shots/mug_03.png" becomes "mug".
func LabelFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(base, "_"); i > 0 {
		base = base[:i]
	}
	return base
}
