package dataset

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var rawFixture = strings.Join([]string{
	`"all_riders" "rider_class" "stage" "points" "stage_class"`,
	`"Tadej Pogačar" "All Rounder" "X1" "80" "mount"`,
	`"Jasper Philipsen"   "Sprinter" "X2" "50" "flat"`,
	``,
	`"Jonas Vingegaard" "Climber" "X1" "n/a" "mount"`,
	`"Broken Row" "Sprinter" "X3" "flat"`,
	`"Wout van Aert" "Unclassed" "X3" "12.5" "hills"`,
	`"Unterminated Climber" "X1" "3" "mount`,
}, "\n")

func TestParseRaw(t *testing.T) {
	tab, err := ParseRaw(strings.NewReader(rawFixture))
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	if got := len(tab.Records); got != 4 {
		t.Fatalf("records = %d, want 4", got)
	}
	first := tab.Records[0]
	if first.Rider != "Tadej Pogačar" || first.RiderClass != AllRounder || first.Points != 80 || first.StageClass != Mount {
		t.Fatalf("first record = %+v", first)
	}
	if tab.Records[3].Points != 12.5 {
		t.Fatalf("decimal points = %v", tab.Records[3].Points)
	}

	if len(tab.Flagged) != 1 {
		t.Fatalf("flagged = %#v", tab.Flagged)
	}
	fl := tab.Flagged[0]
	if fl.Line != 5 || fl.Value != "n/a" || fl.Rider != "Jonas Vingegaard" {
		t.Fatalf("flag = %+v", fl)
	}
	if !math.IsNaN(tab.Records[2].Points) {
		t.Fatalf("flagged row should keep NaN points, got %v", tab.Records[2].Points)
	}

	if len(tab.Malformed) != 2 {
		t.Fatalf("malformed = %d, want 2", len(tab.Malformed))
	}
	m := tab.Malformed[0]
	if m.Line != 6 || m.Got != 4 || m.Want != 5 || !errors.Is(m, ErrTokenCount) {
		t.Fatalf("malformed[0] = %+v", m)
	}
	if tab.Malformed[1].Line != 8 {
		t.Fatalf("malformed[1] line = %d", tab.Malformed[1].Line)
	}
	if len(tab.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", tab.Warnings)
	}
}

func TestParseRawHeaderErrors(t *testing.T) {
	if _, err := ParseRaw(strings.NewReader("\n\n")); !errors.Is(err, ErrNoData) {
		t.Fatalf("empty input: got %v", err)
	}
	_, err := ParseRaw(strings.NewReader(`"all_riders" "rider_class" "stage" "stage_class"` + "\n"))
	if !errors.Is(err, ErrMissingColumn) || !strings.Contains(err.Error(), "points") {
		t.Fatalf("missing column: got %v", err)
	}
}

func TestParseRawWarnsOnUnknownCategories(t *testing.T) {
	in := `all_riders rider_class stage points stage_class
"A" "Rouleur" "S1" "1" "cobbles"
`
	tab, err := ParseRaw(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	if len(tab.Records) != 1 {
		t.Fatalf("unknown categories must be kept, records = %d", len(tab.Records))
	}
	want := []string{`unknown rider class "Rouleur"`, `unknown stage class "cobbles"`}
	if diff := cmp.Diff(want, tab.Warnings); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRawHeaderOrderIndependent(t *testing.T) {
	in := `"points" "stage" "stage_class" "rider_class" "all_riders"
"7" "S9" "hills" "Climber" "Rider Z"
`
	tab, err := ParseRaw(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	want := Record{Rider: "Rider Z", RiderClass: Climber, Stage: "S9", Points: 7, StageClass: Hills}
	if diff := cmp.Diff(want, tab.Records[0]); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	tab, err := ParseRaw(strings.NewReader(rawFixture))
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	recs := append(tab.Records,
		Record{Rider: "Comma, Rider", RiderClass: Sprinter, Stage: "X4", Points: 0, StageClass: Flat},
		Record{Rider: "Fine Grained", RiderClass: Climber, Stage: "X5", Points: 0.1234567, StageClass: Mount},
		Record{Rider: "Tiny Gap", RiderClass: Climber, Stage: "X5", Points: 1e-7, StageClass: Mount},
		Record{Rider: "Long Tail", RiderClass: Sprinter, Stage: "X6", Points: 12.3456789, StageClass: Hills},
	)

	path := filepath.Join(t.TempDir(), "out", "cycling.csv")
	if err := WriteCSV(path, recs); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if diff := cmp.Diff(recs, got, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	header := strings.SplitN(string(b), "\n", 2)[0]
	if header != strings.Join(Columns, ",") {
		t.Fatalf("header = %q", header)
	}
}

func TestEncodeCSVKeepsFullPrecision(t *testing.T) {
	recs := []Record{
		{Rider: "A", RiderClass: Climber, Stage: "S1", Points: 0.1234567, StageClass: Mount},
		{Rider: "B", RiderClass: Climber, Stage: "S1", Points: 2, StageClass: Mount},
		{Rider: "C", RiderClass: Climber, Stage: "S1", Points: math.NaN(), StageClass: Mount},
	}
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, recs); err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}
	want := "all_riders,rider_class,stage,points,stage_class\n" +
		"A,Climber,S1,0.1234567,mount\n" +
		"B,Climber,S1,2,mount\n" +
		"C,Climber,S1,NaN,mount\n"
	if got := buf.String(); got != want {
		t.Fatalf("csv =\n%s\nwant\n%s", got, want)
	}
}

func TestTokenizeCSVDialect(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", `"A" "B" "C"`, []string{"A", "B", "C"}},
		{"unquoted hash", `#hashtag "Climber" "S4"`, []string{"#hashtag", "Climber", "S4"}},
		{"doubled quote", `"Quote ""Nick"" Name" "x"`, []string{`Quote "Nick" Name`, "x"}},
		{"backslash", `"Back\slash" "x"`, []string{`Back\slash`, "x"}},
		{"extra spaces", `"A"    "B"  `, []string{"A", "B"}},
		{"empty pair", `"" "A"`, []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tokenize(tt.line)
			if err != nil {
				t.Fatalf("tokenize: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRawReportsRowsInsteadOfDropping(t *testing.T) {
	in := strings.Join([]string{
		`"all_riders" "rider_class" "stage" "points" "stage_class"`,
		`#hashtag "Climber" "S4" "2" "mount"`,
		`"" ""`,
		`"Quote ""Nick"" Name" "Sprinter" "S1" "3" "flat"`,
	}, "\n")
	tab, err := ParseRaw(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	if len(tab.Records) != 2 {
		t.Fatalf("records = %+v", tab.Records)
	}
	if tab.Records[0].Rider != "#hashtag" || tab.Records[0].Points != 2 {
		t.Fatalf("hash row = %+v", tab.Records[0])
	}
	if tab.Records[1].Rider != `Quote "Nick" Name` {
		t.Fatalf("quoted rider = %q", tab.Records[1].Rider)
	}
	if len(tab.Malformed) != 1 || tab.Malformed[0].Line != 3 || !errors.Is(tab.Malformed[0], ErrEmptyRow) {
		t.Fatalf("malformed = %v", tab.Malformed)
	}
}

func TestParseRawSkipsOversizedLine(t *testing.T) {
	in := `"all_riders" "rider_class" "stage" "points" "stage_class"` + "\n" +
		`"` + strings.Repeat("x", maxLineBytes+10) + `" "Climber" "S1" "1" "mount"` + "\n" +
		`"After" "Climber" "S1" "4" "mount"` + "\n"
	tab, err := ParseRaw(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	if len(tab.Malformed) != 1 || tab.Malformed[0].Line != 2 || !errors.Is(tab.Malformed[0], ErrLineTooLong) {
		t.Fatalf("malformed = %v", tab.Malformed)
	}
	if len(tab.Records) != 1 || tab.Records[0].Rider != "After" {
		t.Fatalf("records = %+v", tab.Records)
	}
}

func TestDecodeCSVMissingColumn(t *testing.T) {
	_, err := DecodeCSV(bytes.NewBufferString("all_riders,rider_class,stage,points\nA,Climber,S1,3\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("got %v", err)
	}
}

func TestReadCSVMissingFile(t *testing.T) {
	if _, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGroupByIsSorted(t *testing.T) {
	recs := []Record{
		{RiderClass: Sprinter, Points: 1},
		{RiderClass: Climber, Points: 2},
		{RiderClass: Sprinter, Points: 3},
	}
	groups := GroupBy(recs, ByRiderClass)
	if len(groups) != 2 || groups[0].Key != "Climber" || groups[1].Key != "Sprinter" {
		t.Fatalf("groups = %+v", groups)
	}
	if diff := cmp.Diff([]float64{1, 3}, groups[1].Points()); diff != "" {
		t.Fatalf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryText(t *testing.T) {
	tab, err := ParseRaw(strings.NewReader(rawFixture))
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	s := Summarize(tab)
	if s.Missing[ColPoints] != 1 {
		t.Fatalf("missing points = %d", s.Missing[ColPoints])
	}
	if s.UniqueRiders != 4 || s.UniqueStages != 3 {
		t.Fatalf("unique riders/stages = %d/%d", s.UniqueRiders, s.UniqueStages)
	}
	if s.Points.Count != 3 || s.Points.Max != 80 || s.Points.Min != 12.5 {
		t.Fatalf("points describe = %+v", s.Points)
	}
	txt := s.Text()
	for _, want := range []string{
		"Shape: (4, 5)",
		"Rider classes: ['All Rounder', 'Sprinter', 'Climber', 'Unclassed']",
		"Flagged rows (non-numeric points kept as NaN): 1",
		"Malformed rows (excluded): 2",
		"line 6: wrong token count (got 4, want 5)",
	} {
		if !strings.Contains(txt, want) {
			t.Fatalf("summary missing %q:\n%s", want, txt)
		}
	}
}
