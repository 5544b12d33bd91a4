package dataset

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/cyclestats-cli/internal/numeric"
)

// Describe mirrors a dataframe describe() of a numeric column.
type Describe struct {
	Count                   int
	Mean, Std               float64
	Min, Q25, Q50, Q75, Max float64
}

// DescribePoints summarizes the finite points of recs.
func DescribePoints(recs []Record) Describe {
	vals := numeric.Sorted(numeric.Finite(PointsOf(recs)))
	d := Describe{Count: len(vals)}
	if len(vals) == 0 {
		nan := math.NaN()
		d.Mean, d.Std, d.Min, d.Q25, d.Q50, d.Q75, d.Max = nan, nan, nan, nan, nan, nan, nan
		return d
	}
	d.Mean = stat.Mean(vals, nil)
	d.Std = math.NaN()
	if len(vals) > 1 {
		d.Std = stat.StdDev(vals, nil)
	}
	d.Min = vals[0]
	d.Max = vals[len(vals)-1]
	d.Q25 = numeric.Quantile(vals, 0.25)
	d.Q50 = numeric.Quantile(vals, 0.5)
	d.Q75 = numeric.Quantile(vals, 0.75)
	return d
}

// Summary is the console overview printed after preprocessing.
type Summary struct {
	Rows, Cols    int
	Columns       []string
	Missing       map[string]int
	RiderClasses  []string
	StageClasses  []string
	UniqueRiders  int
	UniqueStages  int
	Points        Describe
	FlaggedRows   []Flag
	MalformedRows []*MalformedRowError
	Warnings      []string
}

// Summarize builds the preprocessing overview for t.
func Summarize(t *Table) Summary {
	s := Summary{
		Rows:          len(t.Records),
		Cols:          len(Columns),
		Columns:       Columns,
		Missing:       map[string]int{},
		RiderClasses:  Unique(t.Records, ByRiderClass),
		StageClasses:  Unique(t.Records, ByStageClass),
		UniqueRiders:  len(Unique(t.Records, func(r Record) string { return r.Rider })),
		UniqueStages:  len(Unique(t.Records, func(r Record) string { return r.Stage })),
		Points:        DescribePoints(t.Records),
		FlaggedRows:   t.Flagged,
		MalformedRows: t.Malformed,
		Warnings:      t.Warnings,
	}
	for _, c := range Columns {
		s.Missing[c] = 0
	}
	for _, r := range t.Records {
		if r.Rider == "" {
			s.Missing[ColRider]++
		}
		if r.RiderClass == "" {
			s.Missing[ColRiderClass]++
		}
		if r.Stage == "" {
			s.Missing[ColStage]++
		}
		if !r.HasPoints() {
			s.Missing[ColPoints]++
		}
		if r.StageClass == "" {
			s.Missing[ColStageClass]++
		}
	}
	return s
}

// Text renders the overview as plain text.
func (s Summary) Text() string {
	var b strings.Builder
	b.WriteString("Data Overview:\n")
	b.WriteString(fmt.Sprintf("Shape: (%d, %d)\n", s.Rows, s.Cols))
	b.WriteString(fmt.Sprintf("\nColumn names: %s\n", strings.Join(s.Columns, ", ")))
	b.WriteString("\nData types:\n")
	for _, c := range s.Columns {
		kind := "string"
		if c == ColPoints {
			kind = "float64"
		}
		b.WriteString(fmt.Sprintf("  %-12s %s\n", c, kind))
	}
	b.WriteString("\nMissing values:\n")
	for _, c := range s.Columns {
		b.WriteString(fmt.Sprintf("  %-12s %d\n", c, s.Missing[c]))
	}
	b.WriteString("\nUnique values in categorical columns:\n")
	b.WriteString(fmt.Sprintf("Rider classes: %s\n", quoteList(s.RiderClasses)))
	b.WriteString(fmt.Sprintf("Stage classes: %s\n", quoteList(s.StageClasses)))
	b.WriteString(fmt.Sprintf("Number of unique riders: %d\n", s.UniqueRiders))
	b.WriteString(fmt.Sprintf("Number of unique stages: %d\n", s.UniqueStages))

	p := s.Points
	b.WriteString("\nSummary statistics for points:\n")
	b.WriteString(fmt.Sprintf("  count %d\n", p.Count))
	b.WriteString(fmt.Sprintf("  mean  %.6g\n", p.Mean))
	b.WriteString(fmt.Sprintf("  std   %.6g\n", p.Std))
	b.WriteString(fmt.Sprintf("  min   %.6g\n", p.Min))
	b.WriteString(fmt.Sprintf("  25%%   %.6g\n", p.Q25))
	b.WriteString(fmt.Sprintf("  50%%   %.6g\n", p.Q50))
	b.WriteString(fmt.Sprintf("  75%%   %.6g\n", p.Q75))
	b.WriteString(fmt.Sprintf("  max   %.6g\n", p.Max))

	if len(s.FlaggedRows) > 0 {
		b.WriteString(fmt.Sprintf("\nFlagged rows (non-numeric points kept as NaN): %d\n", len(s.FlaggedRows)))
		for _, f := range s.FlaggedRows {
			b.WriteString("  - " + f.String() + "\n")
		}
	}
	if len(s.MalformedRows) > 0 {
		b.WriteString(fmt.Sprintf("\nMalformed rows (excluded): %d\n", len(s.MalformedRows)))
		for _, m := range s.MalformedRows {
			b.WriteString("  - " + m.Error() + "\n")
		}
	}
	if len(s.Warnings) > 0 {
		b.WriteString("\nNotes:\n")
		for _, w := range s.Warnings {
			b.WriteString("  - " + w + "\n")
		}
	}
	return b.String()
}

func quoteList(vals []string) string {
	q := make([]string, len(vals))
	for i, v := range vals {
		q[i] = fmt.Sprintf("'%s'", v)
	}
	return "[" + strings.Join(q, ", ") + "]"
}
