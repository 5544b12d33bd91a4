package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\ufeff"

// ReadRaw opens path and parses it with ParseRaw.
func ReadRaw(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw input: %w", err)
	}
	defer f.Close()
	return ParseRaw(f)
}

// maxLineBytes bounds a single raw line; longer lines are reported and skipped.
const maxLineBytes = 1 << 20

// ParseRaw reads quoted, whitespace-separated records. The first non-blank line
// is the header. Rows with a different token count than the header are
// reported in Table.Malformed and excluded; rows with non-numeric points are
// kept with NaN points and reported in Table.Flagged.
func ParseRaw(r io.Reader) (*Table, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	t := &Table{}
	var idx map[string]int
	line := 0
	for {
		text, err := readLine(br, maxLineBytes)
		if err == io.EOF {
			break
		}
		line++
		if errors.Is(err, ErrLineTooLong) {
			t.Malformed = append(t.Malformed, &MalformedRowError{Line: line, Err: err})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read raw input: %w", err)
		}
		if line == 1 {
			text = strings.TrimPrefix(text, utf8BOM)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		tokens, err := tokenize(text)
		if err == nil && len(tokens) == 0 {
			if idx == nil {
				continue
			}
			err = ErrEmptyRow
		}
		if err != nil {
			if idx == nil {
				return nil, fmt.Errorf("parse header on line %d: %w", line, err)
			}
			t.Malformed = append(t.Malformed, &MalformedRowError{Line: line, Err: err})
			continue
		}
		if idx == nil {
			t.Header = tokens
			idx, err = headerIndex(tokens)
			if err != nil {
				return nil, err
			}
			continue
		}
		if len(tokens) != len(t.Header) {
			t.Malformed = append(t.Malformed, &MalformedRowError{
				Line: line, Got: len(tokens), Want: len(t.Header), Err: ErrTokenCount,
			})
			continue
		}
		rec := Record{
			Rider:      tokens[idx[ColRider]],
			RiderClass: RiderClass(tokens[idx[ColRiderClass]]),
			Stage:      tokens[idx[ColStage]],
			StageClass: StageClass(tokens[idx[ColStageClass]]),
		}
		raw := tokens[idx[ColPoints]]
		if p, ok := parsePoints(raw); ok {
			rec.Points = p
		} else {
			rec.Points = math.NaN()
			t.Flagged = append(t.Flagged, Flag{Line: line, Rider: rec.Rider, Stage: rec.Stage, Value: raw})
		}
		t.Records = append(t.Records, rec)
	}
	if idx == nil {
		return nil, ErrNoData
	}
	t.Warnings = append(t.Warnings, categoryWarnings(t.Records)...)
	return t, nil
}

// readLine returns the next line without its terminator. A line longer than
// limit is drained and returned as ErrLineTooLong so the caller can move on.
func readLine(br *bufio.Reader, limit int) (string, error) {
	var buf []byte
	tooLong := false
	for {
		frag, isPrefix, err := br.ReadLine()
		if err != nil {
			if err == io.EOF && (len(buf) > 0 || tooLong) {
				break
			}
			return "", err
		}
		if !tooLong {
			if len(buf)+len(frag) > limit {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, frag...)
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return "", fmt.Errorf("%w (limit %d bytes)", ErrLineTooLong, limit)
	}
	return string(buf), nil
}

// tokenize splits one line into space-delimited fields where double quotes
// group a field and a doubled quote inside one is a literal quote. Backslashes
// and '#' carry no meaning. Empty fields (runs of spaces, "" pairs) are dropped
// and the rest are trimmed and NFC-normalized.
func tokenize(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = ' '
	cr.FieldsPerRecord = -1
	parts, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return nil, fmt.Errorf("column %d: %w", pe.Column, pe.Err)
	}
	if err != nil {
		return nil, err
	}
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, norm.NFC.String(p))
	}
	return out, nil
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(h)] = i
	}
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	return idx, nil
}

func parsePoints(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func categoryWarnings(recs []Record) []string {
	var out []string
	for _, rc := range Unique(recs, ByRiderClass) {
		if !RiderClass(rc).Known() {
			out = append(out, fmt.Sprintf("unknown rider class %q", rc))
		}
	}
	for _, sc := range Unique(recs, ByStageClass) {
		if !StageClass(sc).Known() {
			out = append(out, fmt.Sprintf("unknown stage class %q", sc))
		}
	}
	return out
}
