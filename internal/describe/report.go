package describe

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/nao1215/markdown"

	"github.com/KaramelBytes/cyclestats-cli/internal/utils"
)

type column struct {
	name string
	get  func(Summary) string
}

func f2(v float64) string { return fmt.Sprintf("%.2f", v) }

var (
	fullColumns = []column{
		{"count", func(s Summary) string { return fmt.Sprint(s.Count) }},
		{"mean", func(s Summary) string { return f2(s.Mean) }},
		{"median", func(s Summary) string { return f2(s.Median) }},
		{"std", func(s Summary) string { return f2(s.Std) }},
		{"min", func(s Summary) string { return f2(s.Min) }},
		{"max", func(s Summary) string { return f2(s.Max) }},
		{"q25", func(s Summary) string { return f2(s.Q25) }},
		{"q75", func(s Summary) string { return f2(s.Q75) }},
		{"iqr", func(s Summary) string { return f2(s.IQR) }},
		{"skewness", func(s Summary) string { return f2(s.Skew) }},
		{"kurtosis", func(s Summary) string { return f2(s.Kurtosis) }},
	}
	stageColumns = fullColumns[:9]
	crossColumns = fullColumns[:4]
	riderColumns = append(append([]column(nil), fullColumns...),
		column{"zero %", func(s Summary) string { return f2(s.ZeroPct) }})
)

func writeTable(b *strings.Builder, label string, groups []Group, cols []column) {
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t", label)
	for _, c := range cols {
		fmt.Fprintf(tw, "%s\t", c.name)
	}
	fmt.Fprintln(tw)
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t", g.Key)
		for _, c := range cols {
			fmt.Fprintf(tw, "%s\t", c.get(g.Summary))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

// Text renders the console report.
func (a *Analysis) Text() string {
	var b strings.Builder
	section := func(title string) {
		b.WriteString("\n" + utils.Banner(80) + "\n" + title + "\n" + utils.Banner(80) + "\n")
	}

	section("DESCRIPTIVE STATISTICS BY RIDER CLASS")
	b.WriteString("\nSummary Statistics by Rider Class:\n")
	writeTable(&b, "rider_class", a.ByRider, fullColumns)
	b.WriteString("\nPercentage of zero points by rider class:\n")
	for _, g := range a.ByRider {
		b.WriteString(fmt.Sprintf("  %s %.2f\n", utils.RightPad(g.Key, 14), g.ZeroPct))
	}

	section("DESCRIPTIVE STATISTICS BY STAGE CLASS")
	b.WriteString("\nSummary Statistics by Stage Class:\n")
	writeTable(&b, "stage_class", a.ByStage, stageColumns)

	section("DESCRIPTIVE STATISTICS: RIDER CLASS x STAGE CLASS")
	b.WriteString("\nSummary Statistics by Rider Class and Stage Class:\n")
	writeTable(&b, "rider_class / stage_class", a.ByCross, crossColumns)

	o := a.Overall
	section("OVERALL DESCRIPTIVE STATISTICS")
	b.WriteString(fmt.Sprintf("\nTotal number of observations: %d\n", a.Rows))
	if o.Missing > 0 {
		b.WriteString(fmt.Sprintf("Observations without numeric points (excluded): %d\n", o.Missing))
	}
	b.WriteString("\nOverall Statistics for Points:\n")
	b.WriteString(fmt.Sprintf("  count  %d\n", o.Count))
	b.WriteString(fmt.Sprintf("  mean   %.6g\n", o.Mean))
	b.WriteString(fmt.Sprintf("  min    %.6g\n", o.Min))
	b.WriteString(fmt.Sprintf("  25%%    %.6g\n", o.Q25))
	b.WriteString(fmt.Sprintf("  50%%    %.6g\n", o.Median))
	b.WriteString(fmt.Sprintf("  75%%    %.6g\n", o.Q75))
	b.WriteString(fmt.Sprintf("  max    %.6g\n", o.Max))
	b.WriteString("\nAdditional Statistics:\n")
	b.WriteString(fmt.Sprintf("  Standard Deviation: %.2f\n", o.Std))
	b.WriteString(fmt.Sprintf("  Variance: %.2f\n", o.Var))
	b.WriteString(fmt.Sprintf("  Skewness: %.2f\n", o.Skew))
	b.WriteString(fmt.Sprintf("  Kurtosis: %.2f\n", o.Kurtosis))
	b.WriteString(fmt.Sprintf("  Coefficient of Variation: %.2f%%\n", o.CV))
	b.WriteString(fmt.Sprintf("\n  Interquartile Range (IQR): %.2f\n", o.IQR))
	b.WriteString(fmt.Sprintf("  Range: %g\n", o.Range))
	return b.String()
}

// Markdown renders the report with links to the chart files.
func (a *Analysis) Markdown(charts []string) (string, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)
	md.H1("Descriptive Analysis of Cycling Data")
	md.PlainTextf("Observations: %d (points missing: %d)", a.Rows, a.Overall.Missing)
	md.PlainText("")

	md.H2("Overall")
	o := a.Overall
	md.Table(markdown.TableSet{
		Header: []string{"Statistic", "Value"},
		Rows: [][]string{
			{"Count", fmt.Sprint(o.Count)},
			{"Mean", f2(o.Mean)},
			{"Median", f2(o.Median)},
			{"Std", f2(o.Std)},
			{"Variance", f2(o.Var)},
			{"IQR", f2(o.IQR)},
			{"Range", f2(o.Range)},
			{"Skewness", f2(o.Skew)},
			{"Kurtosis", f2(o.Kurtosis)},
			{"CV (%)", f2(o.CV)},
		},
	})
	md.PlainText("")

	md.H2("By Rider Class")
	md.Table(groupTable("Rider class", a.ByRider, riderColumns))
	md.PlainText("")
	md.H2("By Stage Class")
	md.Table(groupTable("Stage class", a.ByStage, stageColumns))
	md.PlainText("")
	md.H2("Rider Class x Stage Class")
	md.Table(groupTable("Cell", a.ByCross, crossColumns))
	md.PlainText("")

	if len(charts) > 0 {
		md.H2("Charts")
		for _, c := range charts {
			name := filepath.Base(c)
			md.PlainTextf("![%s](%s)", strings.TrimSuffix(name, filepath.Ext(name)), name)
			md.PlainText("")
		}
	}
	if err := md.Build(); err != nil {
		return "", fmt.Errorf("build markdown: %w", err)
	}
	return buf.String(), nil
}

func groupTable(label string, groups []Group, cols []column) markdown.TableSet {
	ts := markdown.TableSet{Header: []string{label}}
	for _, c := range cols {
		ts.Header = append(ts.Header, c.name)
	}
	for _, g := range groups {
		row := []string{g.Key}
		for _, c := range cols {
			row = append(row, c.get(g.Summary))
		}
		ts.Rows = append(ts.Rows, row)
	}
	return ts
}
