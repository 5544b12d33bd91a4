package hypothesis

import (
	"fmt"

	"github.com/KaramelBytes/cyclestats-cli/internal/dataset"
	"github.com/KaramelBytes/cyclestats-cli/internal/inference"
)

// Interaction is the answer to the second research question.
type Interaction struct {
	ANOVA *inference.TwoWayResult
	// Significant is true when the rider x stage interaction rejects at alpha;
	// only then are the per stage class comparisons in Stages run.
	Significant bool
	Stages      []*GroupTest
	Warnings    []string
}

// Report holds both research questions.
type Report struct {
	Rows        int
	Excluded    int // rows without numeric points
	Alpha       float64
	RiderClass  *GroupTest
	Interaction *Interaction
}

// Run answers both research questions on recs.
func Run(recs []dataset.Record, opt Options) *Report {
	if opt.Alpha <= 0 {
		opt.Alpha = DefaultOptions().Alpha
	}
	valid := dataset.Filter(recs, dataset.Record.HasPoints)
	r := &Report{Rows: len(recs), Excluded: len(recs) - len(valid), Alpha: opt.Alpha}
	r.RiderClass = RiderClasses(valid, opt)
	r.Interaction = RiderByStage(valid, opt)
	return r
}

// RiderClasses compares points between rider classes, with post-hoc tests.
func RiderClasses(recs []dataset.Record, opt Options) *GroupTest {
	return CompareGroups("rider class", samples(recs, dataset.ByRiderClass), opt, true)
}

// RiderByStage fits the two-way ANOVA and, when the interaction is
// significant, compares rider classes within each stage class.
func RiderByStage(recs []dataset.Record, opt Options) *Interaction {
	in := &Interaction{}
	obs := make([]inference.Observation, len(recs))
	for i, r := range recs {
		obs[i] = inference.Observation{A: string(r.RiderClass), B: string(r.StageClass), Y: r.Points}
	}
	res, err := inference.TwoWayANOVA(obs, dataset.ColRiderClass, dataset.ColStageClass)
	if err != nil {
		in.Warnings = append(in.Warnings, fmt.Sprintf("two-way ANOVA failed: %v", err))
		return in
	}
	in.ANOVA = res
	in.Significant = res.Interaction.P < opt.Alpha
	if !in.Significant {
		return in
	}
	for _, g := range dataset.GroupBy(recs, dataset.ByStageClass) {
		in.Stages = append(in.Stages, CompareGroups(g.Key, samples(g.Records, dataset.ByRiderClass), opt, false))
	}
	return in
}

func samples(recs []dataset.Record, key func(dataset.Record) string) []inference.Sample {
	groups := dataset.GroupBy(recs, key)
	out := make([]inference.Sample, len(groups))
	for i, g := range groups {
		out[i] = inference.Sample{Name: g.Key, Values: g.Points()}
	}
	return out
}

// Warnings collects the warnings of every test in the report, prefixed with
// the comparison they belong to.
func (r *Report) Warnings() []string {
	var out []string
	if g := r.RiderClass; g != nil {
		for _, w := range g.Warnings {
			out = append(out, g.Label+": "+w)
		}
	}
	if in := r.Interaction; in != nil {
		for _, w := range in.Warnings {
			out = append(out, "interaction: "+w)
		}
		for _, st := range in.Stages {
			for _, w := range st.Warnings {
				out = append(out, "stage class "+st.Label+": "+w)
			}
		}
	}
	return out
}
