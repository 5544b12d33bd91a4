package analysis

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/cyclestats-cli/internal/numeric"
	"github.com/KaramelBytes/cyclestats-cli/internal/utils"
)

// Options controls the exploration profile.
type Options struct {
	// UniqueThreshold: columns with fewer unique values are enumerated in full.
	UniqueThreshold int
	// HeadRows is how many leading rows to print.
	HeadRows int
	// ListUnique caps the unique values shown for high-cardinality columns.
	ListUnique int
	// NaNValues are the cell values treated as missing.
	NaNValues []string
}

// DefaultOptions returns the exploration defaults.
func DefaultOptions() Options {
	return Options{
		UniqueThreshold: 10,
		HeadRows:        10,
		ListUnique:      10,
		NaNValues:       []string{"NA", "NaN", "<nil>", ""},
	}
}

const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
)

// Report is the column profile of a tabular dataset.
type Report struct {
	Name     string
	Rows     int
	Header   []string
	Head     [][]string
	Cols     []ColumnSummary
	Warnings []string
}

// ColumnSummary captures the detected type and statistics of one column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|categorical
	Type    string // detected storage type: int|float|bool|string
	NonNull int
	Missing int
	Unique  int
	// Enumerated is true when Unique is below the threshold and Values holds
	// every distinct value, sorted. Otherwise Values holds the first distinct
	// values in order of appearance.
	Enumerated bool
	Values     []CategoryCount
	// Numeric stats over non-missing values
	Mean, Median, Std float64
	Min, Q25, Q75     float64
	Max               float64
}

// CategoryCount is a distinct value with its frequency.
type CategoryCount struct {
	Value   string
	Count   int
	Percent float64 // of all rows
}

// Profile loads the CSV at path and profiles every column.
func Profile(path string, opt Options) (*Report, error) {
	if err := utils.RequireFile(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	rep, err := ProfileReader(f, opt)
	if err != nil {
		return nil, err
	}
	rep.Name = filepath.Base(path)
	return rep, nil
}

// ProfileReader profiles CSV data read from r.
func ProfileReader(r io.Reader, opt Options) (*Report, error) {
	if len(opt.NaNValues) == 0 {
		opt.NaNValues = DefaultOptions().NaNValues
	}
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(opt.NaNValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}
	return ProfileFrame(df, opt), nil
}

// ProfileFrame profiles an already loaded dataframe.
func ProfileFrame(df dataframe.DataFrame, opt Options) *Report {
	if opt.UniqueThreshold <= 0 {
		opt.UniqueThreshold = 10
	}
	if opt.HeadRows <= 0 {
		opt.HeadRows = 10
	}
	if opt.ListUnique <= 0 {
		opt.ListUnique = 10
	}
	rep := &Report{Rows: df.Nrow(), Header: df.Names()}

	headN := min(opt.HeadRows, df.Nrow())
	if headN > 0 {
		// Records() includes the header row
		recs := df.Subset(seq(headN)).Records()
		rep.Head = recs[1:]
	}

	for _, name := range df.Names() {
		c := profileColumn(df.Col(name), rep.Rows, opt)
		if c.NonNull == 0 && rep.Rows > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %q has no non-missing values", name))
		}
		rep.Cols = append(rep.Cols, c)
	}
	return rep
}

func profileColumn(s series.Series, rows int, opt Options) ColumnSummary {
	c := ColumnSummary{Name: s.Name, Type: string(s.Type()), Kind: KindCategorical}
	if s.Type() == series.Int || s.Type() == series.Float {
		c.Kind = KindNumeric
	}

	counts := map[string]int{}
	var order []string
	var nums []float64
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			c.Missing++
			continue
		}
		c.NonNull++
		v := e.String()
		if c.Kind == KindNumeric {
			v = strconv.FormatFloat(e.Float(), 'g', -1, 64)
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
		if c.Kind == KindNumeric {
			nums = append(nums, e.Float())
		}
	}
	c.Unique = len(order)

	if c.Unique < opt.UniqueThreshold {
		c.Enumerated = true
		sorted := append([]string(nil), order...)
		if c.Kind == KindNumeric {
			sort.Slice(sorted, func(i, j int) bool { return numericLess(sorted[i], sorted[j]) })
		} else {
			sort.Strings(sorted)
		}
		c.Values = countsFor(sorted, counts, rows)
	} else {
		c.Values = countsFor(order[:min(opt.ListUnique, len(order))], counts, rows)
	}

	if c.Kind == KindNumeric {
		c.Mean, c.Median, c.Std, c.Min, c.Q25, c.Q75, c.Max = numericStats(nums)
	}
	return c
}

func countsFor(vals []string, counts map[string]int, rows int) []CategoryCount {
	out := make([]CategoryCount, len(vals))
	for i, v := range vals {
		out[i] = CategoryCount{Value: v, Count: counts[v]}
		if rows > 0 {
			out[i].Percent = float64(counts[v]) * 100 / float64(rows)
		}
	}
	return out
}

func numericStats(vals []float64) (mean, median, std, lo, q25, q75, hi float64) {
	nan := math.NaN()
	if len(vals) == 0 {
		return nan, nan, nan, nan, nan, nan, nan
	}
	data := stats.Float64Data(vals)
	mean, _ = data.Mean()
	median, _ = data.Median()
	std = nan
	if len(vals) > 1 {
		std, _ = data.StandardDeviationSample()
	}
	lo, _ = data.Min()
	hi, _ = data.Max()
	sorted := numeric.Sorted(vals)
	q25 = numeric.Quantile(sorted, 0.25)
	q75 = numeric.Quantile(sorted, 0.75)
	return
}

func numericLess(a, b string) bool {
	var x, y float64
	_, errA := fmt.Sscan(a, &x)
	_, errB := fmt.Sscan(b, &y)
	if errA != nil || errB != nil {
		return a < b
	}
	return x < y
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Column returns the summary for name.
func (r *Report) Column(name string) (ColumnSummary, bool) {
	for _, c := range r.Cols {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

// Text renders the profile as the plain-text exploration log.
func (r *Report) Text() string {
	var b strings.Builder
	section := func(title string) {
		b.WriteString("\n" + utils.Banner(80) + "\n")
		b.WriteString(title + "\n")
		b.WriteString(utils.Banner(80) + "\n")
	}

	b.WriteString(utils.Banner(80) + "\n")
	b.WriteString("CYCLING DATA EXPLORATION\n")
	b.WriteString(utils.Banner(80) + "\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("\nFile: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Dataset shape: %d rows x %d columns\n", r.Rows, len(r.Cols)))

	section(fmt.Sprintf("FIRST %d ROWS OF THE DATASET", len(r.Head)))
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\t"+strings.Join(r.Header, "\t"))
	for i, row := range r.Head {
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(row, "\t"))
	}
	tw.Flush()

	section("DATA TYPES")
	tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, c := range r.Cols {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Type)
	}
	tw.Flush()

	section("DETAILED COLUMN INFORMATION")
	for _, c := range r.Cols {
		b.WriteString(fmt.Sprintf("\n--- Column: %s ---\n", c.Name))
		b.WriteString(fmt.Sprintf("  Data type: %s (%s)\n", c.Type, c.Kind))
		b.WriteString(fmt.Sprintf("  Non-null count: %d / %d\n", c.NonNull, r.Rows))
		b.WriteString(fmt.Sprintf("  Null count: %d\n", c.Missing))
		b.WriteString(fmt.Sprintf("  Unique values: %d\n", c.Unique))
		if c.Enumerated {
			b.WriteString("  Unique values list:\n")
			for i, v := range c.Values {
				b.WriteString(fmt.Sprintf("    %d. '%s' (appears %d times)\n", i+1, v.Value, v.Count))
			}
		} else {
			b.WriteString(fmt.Sprintf("  First %d unique values: %s\n", len(c.Values), quoteValues(c.Values)))
			b.WriteString(fmt.Sprintf("  (Showing first %d out of %d unique values)\n", len(c.Values), c.Unique))
		}
		if c.Kind == KindNumeric {
			b.WriteString("  Summary statistics:\n")
			b.WriteString(fmt.Sprintf("    Mean: %.2f\n", c.Mean))
			b.WriteString(fmt.Sprintf("    Median: %.2f\n", c.Median))
			b.WriteString(fmt.Sprintf("    Std: %.2f\n", c.Std))
			b.WriteString(fmt.Sprintf("    Min: %g\n", c.Min))
			b.WriteString(fmt.Sprintf("    Max: %g\n", c.Max))
			b.WriteString(fmt.Sprintf("    25th percentile: %g\n", c.Q25))
			b.WriteString(fmt.Sprintf("    75th percentile: %g\n", c.Q75))
		}
	}

	section("DATASET SUMMARY")
	b.WriteString(fmt.Sprintf("\nTotal number of records: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Total number of columns: %d\n", len(r.Cols)))
	b.WriteString(fmt.Sprintf("\nColumn names: %s\n", strings.Join(r.Header, ", ")))

	section("MISSING VALUES SUMMARY")
	missing := false
	for _, c := range r.Cols {
		if c.Missing > 0 {
			b.WriteString(fmt.Sprintf("%s: %d\n", c.Name, c.Missing))
			missing = true
		}
	}
	if !missing {
		b.WriteString("No missing values found in the dataset.\n")
	}

	section("CATEGORICAL VARIABLES SUMMARY")
	for _, c := range r.Cols {
		if c.Kind != KindCategorical {
			continue
		}
		b.WriteString(fmt.Sprintf("\n%s:\n", c.Name))
		b.WriteString(fmt.Sprintf("  Number of unique values: %d\n", c.Unique))
		if !c.Enumerated {
			continue
		}
		b.WriteString("  Unique values:\n")
		byCount := append([]CategoryCount(nil), c.Values...)
		sort.SliceStable(byCount, func(i, j int) bool { return byCount[i].Count > byCount[j].Count })
		for _, v := range byCount {
			b.WriteString(fmt.Sprintf("    - '%s': %d (%.2f%%)\n", v.Value, v.Count, v.Percent))
		}
	}

	section("NUMERIC VARIABLES SUMMARY")
	var nums []ColumnSummary
	for _, c := range r.Cols {
		if c.Kind == KindNumeric {
			nums = append(nums, c)
		}
	}
	if len(nums) == 0 {
		b.WriteString("No numeric variables found.\n")
	} else {
		tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprint(tw, "\t")
		for _, c := range nums {
			fmt.Fprintf(tw, "%s\t", c.Name)
		}
		fmt.Fprintln(tw)
		rows := []struct {
			label string
			get   func(ColumnSummary) float64
		}{
			{"count", func(c ColumnSummary) float64 { return float64(c.NonNull) }},
			{"mean", func(c ColumnSummary) float64 { return c.Mean }},
			{"std", func(c ColumnSummary) float64 { return c.Std }},
			{"min", func(c ColumnSummary) float64 { return c.Min }},
			{"25%", func(c ColumnSummary) float64 { return c.Q25 }},
			{"50%", func(c ColumnSummary) float64 { return c.Median }},
			{"75%", func(c ColumnSummary) float64 { return c.Q75 }},
			{"max", func(c ColumnSummary) float64 { return c.Max }},
		}
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t", row.label)
			for _, c := range nums {
				fmt.Fprintf(tw, "%.6f\t", row.get(c))
			}
			fmt.Fprintln(tw)
		}
		tw.Flush()
	}

	if len(r.Warnings) > 0 {
		section("WARNINGS")
		for _, w := range r.Warnings {
			b.WriteString("⚠ " + w + "\n")
		}
	}

	section("EXPLORATION COMPLETE")
	return b.String()
}

func quoteValues(vals []CategoryCount) string {
	q := make([]string, len(vals))
	for i, v := range vals {
		q[i] = fmt.Sprintf("'%s'", utils.Truncate(v.Value, 40))
	}
	return "[" + strings.Join(q, ", ") + "]"
}
