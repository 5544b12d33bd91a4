package dataset

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/cyclestats-cli/internal/utils"
)

// missingMarker is how NaN is serialized; it is also the only value read back as missing.
const missingMarker = "NaN"

// Rows renders records as CSV rows under the canonical header. Points use the
// shortest representation that parses back to the same float64.
func Rows(recs []Record) [][]string {
	rows := make([][]string, 0, len(recs)+1)
	rows = append(rows, append([]string(nil), Columns...))
	for _, r := range recs {
		rows = append(rows, []string{
			r.Rider,
			string(r.RiderClass),
			r.Stage,
			formatPoints(r.Points),
			string(r.StageClass),
		})
	}
	return rows
}

func formatPoints(p float64) string {
	if math.IsNaN(p) {
		return missingMarker
	}
	return strconv.FormatFloat(p, 'g', -1, 64)
}

// EncodeCSV writes records as CSV with a header row.
func EncodeCSV(w io.Writer, recs []Record) error {
	// every column stays a string series so gota does not reformat the floats
	df := dataframe.LoadRecords(Rows(recs),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return fmt.Errorf("build frame: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteCSV writes records to path, creating the parent directory.
func WriteCSV(path string, recs []Record) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := EncodeCSV(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DecodeCSV reads records produced by EncodeCSV. Column order does not matter
// but all five columns must be present.
func DecodeCSV(r io.Reader) ([]Record, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(map[string]series.Type{ColPoints: series.Float}),
		dataframe.NaNValues([]string{missingMarker}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}
	have := map[string]bool{}
	for _, n := range df.Names() {
		have[n] = true
	}
	for _, c := range Columns {
		if !have[c] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	riders := df.Col(ColRider).Records()
	riderClasses := df.Col(ColRiderClass).Records()
	stages := df.Col(ColStage).Records()
	points := df.Col(ColPoints).Float()
	stageClasses := df.Col(ColStageClass).Records()

	recs := make([]Record, df.Nrow())
	for i := range recs {
		recs[i] = Record{
			Rider:      riders[i],
			RiderClass: RiderClass(riderClasses[i]),
			Stage:      stages[i],
			Points:     points[i],
			StageClass: StageClass(stageClasses[i]),
		}
	}
	return recs, nil
}

// ReadCSV loads the preprocessed dataset from path.
func ReadCSV(path string) ([]Record, error) {
	if err := utils.RequireFile(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return DecodeCSV(f)
}
