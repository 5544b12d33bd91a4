package hypothesis

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"github.com/nao1215/markdown"

	"github.com/KaramelBytes/cyclestats-cli/internal/inference"
	"github.com/KaramelBytes/cyclestats-cli/internal/utils"
)

const textWidth = 80

type textWriter struct {
	b strings.Builder
}

func (w *textWriter) line(format string, args ...any) {
	w.b.WriteString(wordwrap.WrapString(fmt.Sprintf(format, args...), textWidth))
	w.b.WriteString("\n")
}

func (w *textWriter) banner(ch, title string) {
	rule := strings.Repeat(ch, textWidth)
	w.b.WriteString("\n" + rule + "\n" + title + "\n" + rule + "\n")
}

func pval(p float64) string {
	if math.IsNaN(p) {
		return "n/a"
	}
	return fmt.Sprintf("%.6f", p)
}

func decision(p, alpha float64) string {
	if p < alpha {
		return fmt.Sprintf("Reject H0 (p < %g)", alpha)
	}
	return fmt.Sprintf("Fail to reject H0 (p >= %g)", alpha)
}

// Text renders the console report.
func (r *Report) Text() string {
	w := &textWriter{}
	w.b.WriteString(utils.Banner(textWidth) + "\nHYPOTHESIS TESTING FOR CYCLING DATA\n" + utils.Banner(textWidth) + "\n")
	w.line("\nObservations: %d (excluded without numeric points: %d), alpha = %g", r.Rows, r.Excluded, r.Alpha)

	w.banner("=", "RESEARCH QUESTION 1: Is there a difference between the rider classes?")
	if r.RiderClass != nil {
		r.writeGroupTest(w, r.RiderClass, "rider classes")
	}

	w.banner("=", "RESEARCH QUESTION 2: Compare performance on different stage classes")
	if in := r.Interaction; in != nil {
		r.writeInteraction(w, in)
	}
	w.banner("=", "HYPOTHESIS TESTING COMPLETE")
	return w.b.String()
}

func (r *Report) writeGroupTest(w *textWriter, g *GroupTest, subject string) {
	w.line("\nGroups: %s", strings.Join(g.Groups, ", "))
	w.line("Group sizes: %v", g.Sizes)

	w.banner("-", "NORMALITY TESTS")
	for _, n := range g.Normality {
		w.line("\n%s:", n.Group)
		w.line("  Test: %s (n=%d)", n.Test, n.N)
		w.line("  Statistic: %.4f", n.Statistic)
		if math.IsNaN(n.Critical) {
			w.line("  p-value: %s", pval(n.P))
		} else {
			w.line("  Critical value (1%%): %.4f", n.Critical)
		}
		w.line("  Normal distribution: %t", n.Normal)
	}
	for _, s := range g.Skipped {
		w.line("\n%s: skipped (fewer than 3 values)", s)
	}

	w.banner("-", "VARIANCE HOMOGENEITY TEST (Levene's Test)")
	if g.Levene != nil {
		w.line("Test statistic: %.4f", g.Levene.Statistic)
		w.line("p-value: %s", pval(g.Levene.P))
	}
	w.line("Equal variances: %t", g.EqualVariances)

	w.banner("-", "HYPOTHESIS TEST")
	if g.Choice == Parametric {
		w.line("\nUsing One-Way ANOVA (assumptions met)")
		w.line("\nH0: All %s have the same mean points", subject)
		w.line("H1: At least one of the %s has different mean points", subject)
	} else {
		w.line("\nUsing Kruskal-Wallis test (non-parametric, assumptions not met)")
		w.line("\nH0: All %s have the same distribution of points", subject)
		w.line("H1: At least one of the %s has a different distribution of points", subject)
	}
	if g.Main != nil {
		stat := "H"
		if g.Choice == Parametric {
			stat = "F"
		}
		w.line("\n%s-statistic: %.4f", stat, g.Main.Statistic)
		w.line("p-value: %s", pval(g.Main.P))
		w.line("\nResult: %s", decision(g.Main.P, r.Alpha))
		if g.Significant(r.Alpha) {
			w.line("There is a statistically significant difference between %s.", subject)
		} else {
			w.line("No statistically significant difference between %s.", subject)
		}
	}

	if g.PostHocTest != "" {
		w.banner("-", "POST-HOC TEST: "+g.PostHocTest)
		if g.Choice == NonParametric {
			w.line("Bonferroni corrected alpha: %.6f", g.PostHocAlpha)
			w.line("Number of comparisons: %d", g.Comparisons)
		}
		for _, c := range g.PostHoc {
			w.line("\n%s vs %s:", c.A, c.B)
			if g.Choice == Parametric {
				w.line("  Mean difference: %.4f  [%.4f, %.4f]", c.MeanDiff, c.Lower, c.Upper)
				w.line("  q-statistic: %.4f", c.Statistic)
				w.line("  adjusted p-value: %s", pval(c.P))
			} else {
				w.line("  U-statistic: %.4f", c.Statistic)
				w.line("  p-value: %s", pval(c.P))
			}
			w.line("  Significant: %t", c.Reject)
		}
	}
	writeWarnings(w, g.Warnings)
}

func (r *Report) writeInteraction(w *textWriter, in *Interaction) {
	w.banner("-", "TWO-WAY ANOVA: Rider Class x Stage Class")
	w.line("\nH0: No interaction effect between rider class and stage class")
	w.line("H0: No main effect of rider class")
	w.line("H0: No main effect of stage class")
	if in.ANOVA == nil {
		writeWarnings(w, in.Warnings)
		return
	}
	w.line("\n%-28s %14s %6s %12s %12s", "", "sum_sq", "df", "F", "PR(>F)")
	for _, row := range in.ANOVA.Rows() {
		w.line("%-28s %14.4f %6.0f %12s %12s", row.Source, row.SS, row.DF, fnum(row.F), pval(row.P))
	}

	w.banner("-", "INTERPRETATION")
	a := in.ANOVA
	if in.Significant {
		w.line("\nInteraction Effect: SIGNIFICANT (p = %s)", pval(a.Interaction.P))
		w.line("The effect of rider class depends on the stage class. Performing separate tests for each stage class.")
		for _, st := range in.Stages {
			w.banner("-", "TEST FOR STAGE CLASS: "+st.Label)
			if st.Main == nil {
				writeWarnings(w, st.Warnings)
				continue
			}
			w.line("\nTest: %s", st.Main.Test)
			w.line("Statistic: %.4f", st.Main.Statistic)
			w.line("p-value: %s", pval(st.Main.P))
			if st.Significant(r.Alpha) {
				w.line("Result: SIGNIFICANT - Rider classes differ in %s stages", st.Label)
			} else {
				w.line("Result: NOT SIGNIFICANT - No difference between rider classes in %s stages", st.Label)
			}
			writeWarnings(w, st.Warnings)
		}
	} else {
		w.line("\nInteraction Effect: NOT SIGNIFICANT (p = %s)", pval(a.Interaction.P))
		w.line("The effect of rider class does not depend on the stage class.")
	}
	w.line("\nMain Effect of Rider Class: %s (p = %s)", significance(a.A.P, r.Alpha), pval(a.A.P))
	w.line("Main Effect of Stage Class: %s (p = %s)", significance(a.B.P, r.Alpha), pval(a.B.P))
	writeWarnings(w, in.Warnings)
}

func significance(p, alpha float64) string {
	if p < alpha {
		return "SIGNIFICANT"
	}
	return "NOT SIGNIFICANT"
}

func fnum(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4f", v)
}

func writeWarnings(w *textWriter, warnings []string) {
	for _, msg := range warnings {
		w.line("⚠ Warning: %s", msg)
	}
}

// Markdown renders the report with links to the chart files.
func (r *Report) Markdown(charts []string) (string, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)
	md.H1("Hypothesis Testing for Cycling Data")
	md.PlainTextf("Observations: %d, excluded without numeric points: %d, alpha = %g", r.Rows, r.Excluded, r.Alpha)
	md.PlainText("")

	md.H2("RQ1: Is there a difference between the rider classes?")
	if g := r.RiderClass; g != nil {
		markdownGroupTest(md, g, r.Alpha)
	}

	md.H2("RQ2: Rider class x stage class")
	if in := r.Interaction; in != nil && in.ANOVA != nil {
		ts := markdown.TableSet{Header: []string{"Source", "sum_sq", "df", "F", "PR(>F)"}}
		for _, row := range in.ANOVA.Rows() {
			ts.Rows = append(ts.Rows, []string{row.Source, fmt.Sprintf("%.4f", row.SS), fmt.Sprintf("%.0f", row.DF), fnum(row.F), pval(row.P)})
		}
		md.Table(ts)
		md.PlainText("")
		if in.Significant {
			md.PlainText("The interaction is significant; rider classes were compared within each stage class.")
			md.PlainText("")
			for _, st := range in.Stages {
				md.H3("Stage class: " + st.Label)
				markdownGroupTest(md, st, r.Alpha)
			}
		} else {
			md.PlainText("The interaction is not significant.")
			md.PlainText("")
		}
	}
	if in := r.Interaction; in != nil {
		for _, w := range in.Warnings {
			md.Warningf("%s", w)
		}
	}

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

func markdownGroupTest(md *markdown.Markdown, g *GroupTest, alpha float64) {
	norm := markdown.TableSet{Header: []string{"Group", "n", "Test", "Statistic", "p-value", "Normal"}}
	for _, n := range g.Normality {
		norm.Rows = append(norm.Rows, []string{n.Group, fmt.Sprint(n.N), n.Test, fnum(n.Statistic), pval(n.P), fmt.Sprint(n.Normal)})
	}
	for _, s := range g.Skipped {
		norm.Rows = append(norm.Rows, []string{s, "<3", "skipped", "", "", ""})
	}
	md.Table(norm)
	md.PlainText("")

	items := []string{fmt.Sprintf("Equal variances (Levene): %t", g.EqualVariances)}
	if g.Levene != nil {
		items[0] += fmt.Sprintf(", W = %.4f, p = %s", g.Levene.Statistic, pval(g.Levene.P))
	}
	items = append(items, "Selected: "+g.Choice.String())
	if g.Main != nil {
		items = append(items, fmt.Sprintf("%s: statistic %.4f, p = %s, %s", g.Main.Test, g.Main.Statistic, pval(g.Main.P), decision(g.Main.P, alpha)))
	}
	md.BulletList(items...)
	md.PlainText("")

	if g.PostHocTest != "" && len(g.PostHoc) > 0 {
		md.PlainTextf("**%s** (per-comparison alpha %.6f, %d comparisons)", g.PostHocTest, g.PostHocAlpha, g.Comparisons)
		md.PlainText("")
		md.Table(comparisonTable(g.PostHoc))
		md.PlainText("")
	}
	for _, w := range g.Warnings {
		md.Warningf("%s", w)
	}
}

func comparisonTable(cmp []inference.Comparison) markdown.TableSet {
	ts := markdown.TableSet{Header: []string{"Group 1", "Group 2", "Mean diff", "Lower", "Upper", "Statistic", "p-value", "Reject"}}
	for _, c := range cmp {
		ts.Rows = append(ts.Rows, []string{
			c.A, c.B, fnum(c.MeanDiff), fnum(c.Lower), fnum(c.Upper), fnum(c.Statistic), pval(c.P), fmt.Sprint(c.Reject),
		})
	}
	return ts
}
