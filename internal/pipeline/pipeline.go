// Package pipeline orders the analysis stages by their file dependencies and
// runs them one after another.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

// Stage is one step of the pipeline. Needs names the stages whose output
// files this stage reads.
type Stage struct {
	Name  string
	Needs []string
	Run   func() error
}

// Observer is called after each stage with its wall time and error.
type Observer func(stage string, elapsed time.Duration, err error)

// Pipeline is a directed acyclic graph of stages.
type Pipeline struct {
	graph graph.Graph[string, *Stage]
	size  int
}

// ErrCycle is returned when stage dependencies form a cycle.
var ErrCycle = errors.New("stage dependencies form a cycle")

func stageHash(s *Stage) string { return s.Name }

// New builds the stage graph. Every dependency must name a stage passed to New.
func New(stages ...*Stage) (*Pipeline, error) {
	g := graph.New(stageHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles())
	for _, s := range stages {
		if err := g.AddVertex(s, graph.VertexAttribute("shape", "box")); err != nil {
			return nil, fmt.Errorf("add stage %s: %w", s.Name, err)
		}
	}
	for _, s := range stages {
		for _, dep := range s.Needs {
			if err := g.AddEdge(dep, s.Name); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return nil, fmt.Errorf("%s -> %s: %w", dep, s.Name, ErrCycle)
				}
				return nil, fmt.Errorf("link %s -> %s: %w", dep, s.Name, err)
			}
		}
	}
	return &Pipeline{graph: g, size: len(stages)}, nil
}

// Len returns the number of stages.
func (p *Pipeline) Len() int { return p.size }

// Order returns the stage names in dependency order. Ties are broken by name
// so the order is stable across runs.
func (p *Pipeline) Order() ([]string, error) {
	order, err := graph.StableTopologicalSort(p.graph, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("sort stages: %w", err)
	}
	return order, nil
}

// Run executes every stage in dependency order and stops at the first
// failure. obs may be nil.
func (p *Pipeline) Run(obs Observer) error {
	order, err := p.Order()
	if err != nil {
		return err
	}
	for _, name := range order {
		s, err := p.graph.Vertex(name)
		if err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
		start := time.Now()
		runErr := s.Run()
		if obs != nil {
			obs(name, time.Since(start), runErr)
		}
		if runErr != nil {
			return fmt.Errorf("stage %s: %w", name, runErr)
		}
	}
	return nil
}

// WriteDOT renders the stage graph in Graphviz DOT form.
func (p *Pipeline) WriteDOT(w io.Writer) error {
	if err := draw.DOT(p.graph, w, draw.GraphAttribute("rankdir", "LR")); err != nil {
		return fmt.Errorf("draw pipeline: %w", err)
	}
	return nil
}
