package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/panelwell/panelwell/internal/mixedmodel"
	"github.com/panelwell/panelwell/internal/panel"
)

func testDataset() *panel.Dataset {
	return &panel.Dataset{
		ID:   "d-test",
		Name: "panel",
		Seed: 42,
		Obs: []panel.Observation{
			{Subject: "s-0001", Group: panel.GroupExisting, Time: 0, Score: 6.8},
			{Subject: "s-0001", Group: panel.GroupExisting, Time: 1, Score: 7.0},
			{Subject: "s-0002", Group: panel.GroupNew, Time: 0, Score: 6.0},
			{Subject: "s-0002", Group: panel.GroupNew, Time: 1, Score: 6.9},
		},
	}
}

func TestWriteCSVLong(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSVLong(&buf, testDataset()); err != nil {
		t.Fatalf("WriteCSVLong failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}

	if len(records) != 5 {
		t.Fatalf("expected header + 4 rows, got %d records", len(records))
	}

	wantHeader := []string{"subject", "group", "time", "score"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %s, want %s", i, records[0][i], col)
		}
	}

	if records[1][0] != "s-0001" || records[1][1] != "existing" {
		t.Errorf("unexpected first row: %v", records[1])
	}
	if records[1][2] != "0" || records[1][3] != "6.8" {
		t.Errorf("unexpected first row values: %v", records[1])
	}
}

func TestWriteCSVWide(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSVWide(&buf, testDataset()); err != nil {
		t.Fatalf("WriteCSVWide failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}

	wantHeader := []string{"subject", "group", "score_t0", "score_t1", "change"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %s, want %s", i, records[0][i], col)
		}
	}

	// s-0002: 6.0 -> 6.9, change 0.9
	if records[2][0] != "s-0002" || records[2][4] != "0.9" {
		t.Errorf("unexpected wide row: %v", records[2])
	}
}

func TestWriteCSVWide_RequiresCompletePanel(t *testing.T) {
	d := testDataset()
	d.Obs = d.Obs[:3] // drop s-0002's second wave

	var buf bytes.Buffer
	if err := WriteCSVWide(&buf, d); err == nil {
		t.Error("expected error for incomplete panel")
	}
}

func TestWriteFitCSV(t *testing.T) {
	res := &mixedmodel.Result{
		Coefficients: []mixedmodel.Coefficient{
			{Name: "(Intercept)", Estimate: 6.8, StdErr: 0.1, Z: 68, P: 0},
			{Name: "time:group[new]", Estimate: 0.8, StdErr: 0.12, Z: 6.67, P: 2.6e-11},
		},
	}

	var buf bytes.Buffer
	if err := WriteFitCSV(&buf, res); err != nil {
		t.Fatalf("WriteFitCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	if records[0][0] != "term" {
		t.Errorf("header = %v", records[0])
	}
	if records[2][0] != "time:group[new]" || records[2][1] != "0.8" {
		t.Errorf("unexpected fit row: %v", records[2])
	}
}

func TestWriteArrowIPC_RoundTrip(t *testing.T) {
	d := testDataset()

	var buf bytes.Buffer
	if err := WriteArrowIPC(&buf, d); err != nil {
		t.Fatalf("WriteArrowIPC failed: %v", err)
	}

	r, err := ipc.NewReader(bytes.NewReader(buf.Bytes()), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		t.Fatalf("opening IPC stream: %v", err)
	}
	defer r.Release()

	if !r.Next() {
		t.Fatalf("expected a record batch, got none (err: %v)", r.Err())
	}
	rec := r.Record()

	if rec.NumRows() != int64(len(d.Obs)) {
		t.Fatalf("expected %d rows, got %d", len(d.Obs), rec.NumRows())
	}

	schema := rec.Schema()
	wantCols := []string{"subject", "group", "time", "score"}
	for i, name := range wantCols {
		if schema.Field(i).Name != name {
			t.Errorf("field[%d] = %s, want %s", i, schema.Field(i).Name, name)
		}
	}

	subjects := rec.Column(0).(*array.String)
	scores := rec.Column(3).(*array.Float64)
	for i, o := range d.Obs {
		if subjects.Value(i) != o.Subject {
			t.Errorf("subject[%d] = %s, want %s", i, subjects.Value(i), o.Subject)
		}
		if scores.Value(i) != o.Score {
			t.Errorf("score[%d] = %g, want %g", i, scores.Value(i), o.Score)
		}
	}

	if r.Next() {
		t.Error("expected exactly one record batch")
	}
}

func TestWriteArrowIPC_EmptyDataset(t *testing.T) {
	var buf bytes.Buffer
	err := WriteArrowIPC(&buf, &panel.Dataset{ID: "d-empty"})
	if err == nil {
		t.Error("expected error for empty dataset")
	}
	if !strings.Contains(err.Error(), "no observations") {
		t.Errorf("unexpected error: %v", err)
	}
}
