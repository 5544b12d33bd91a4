package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Column names as they appear in the raw file header and in the CSV.
const (
	ColRider      = "all_riders"
	ColRiderClass = "rider_class"
	ColStage      = "stage"
	ColPoints     = "points"
	ColStageClass = "stage_class"
)

// Columns is the canonical CSV column order.
var Columns = []string{ColRider, ColRiderClass, ColStage, ColPoints, ColStageClass}

// RiderClass is the specialization of a rider.
type RiderClass string

const (
	AllRounder RiderClass = "All Rounder"
	Climber    RiderClass = "Climber"
	Sprinter   RiderClass = "Sprinter"
	Unclassed  RiderClass = "Unclassed"
)

// RiderClasses lists the known rider classes.
var RiderClasses = []RiderClass{AllRounder, Climber, Sprinter, Unclassed}

// Known reports whether c is one of RiderClasses.
func (c RiderClass) Known() bool {
	for _, k := range RiderClasses {
		if c == k {
			return true
		}
	}
	return false
}

// StageClass is the terrain of a stage.
type StageClass string

const (
	Flat  StageClass = "flat"
	Hills StageClass = "hills"
	Mount StageClass = "mount"
)

// StageClasses lists the known stage classes.
var StageClasses = []StageClass{Flat, Hills, Mount}

// Known reports whether c is one of StageClasses.
func (c StageClass) Known() bool {
	for _, k := range StageClasses {
		if c == k {
			return true
		}
	}
	return false
}

// Record is one rider-stage observation.
type Record struct {
	Rider      string
	RiderClass RiderClass
	Stage      string
	Points     float64 // NaN when the raw value was not numeric
	StageClass StageClass
}

// HasPoints reports whether the record carries a numeric points value.
func (r Record) HasPoints() bool { return !math.IsNaN(r.Points) }

// Flag marks a row whose points value could not be parsed.
type Flag struct {
	Line  int
	Rider string
	Stage string
	Value string
}

func (f Flag) String() string {
	return fmt.Sprintf("line %d: rider %q stage %q has non-numeric points %q", f.Line, f.Rider, f.Stage, f.Value)
}

var (
	// ErrNoData is returned when the raw input has no header line.
	ErrNoData = errors.New("no data found")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrTokenCount marks rows whose field count differs from the header.
	ErrTokenCount = errors.New("wrong token count")
	// ErrEmptyRow marks non-blank rows that hold no fields, such as `"" ""`.
	ErrEmptyRow = errors.New("row has no fields")
	// ErrLineTooLong marks rows longer than the raw reader accepts.
	ErrLineTooLong = errors.New("line too long")
)

// MalformedRowError describes a raw row that was excluded from the table.
type MalformedRowError struct {
	Line int
	Got  int
	Want int
	Err  error
}

func (e *MalformedRowError) Error() string {
	if errors.Is(e.Err, ErrTokenCount) {
		return fmt.Sprintf("line %d: %v (got %d, want %d)", e.Line, e.Err, e.Got, e.Want)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *MalformedRowError) Unwrap() error { return e.Err }

// Table is the parsed dataset plus everything that was reported while parsing.
type Table struct {
	Header    []string
	Records   []Record
	Flagged   []Flag
	Malformed []*MalformedRowError
	Warnings  []string
}

// PointsOf returns the points of every record, NaN included.
func PointsOf(recs []Record) []float64 {
	out := make([]float64, len(recs))
	for i, r := range recs {
		out[i] = r.Points
	}
	return out
}

// Group is a labelled subset of records.
type Group struct {
	Key     string
	Records []Record
}

// Points returns the group's points, NaN included.
func (g Group) Points() []float64 { return PointsOf(g.Records) }

// GroupBy partitions records by key, returning groups sorted by key.
func GroupBy(recs []Record, key func(Record) string) []Group {
	idx := map[string]int{}
	var groups []Group
	for _, r := range recs {
		k := key(r)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// ByRiderClass groups on rider class.
func ByRiderClass(r Record) string { return string(r.RiderClass) }

// ByStageClass groups on stage class.
func ByStageClass(r Record) string { return string(r.StageClass) }

// Unique returns the distinct values of key in order of first appearance.
func Unique(recs []Record, key func(Record) string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range recs {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Filter returns the records for which keep is true.
func Filter(recs []Record, keep func(Record) bool) []Record {
	var out []Record
	for _, r := range recs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
