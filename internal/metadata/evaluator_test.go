package metadata

import (
	"testing"

	uuid "github.com/satori/go.uuid"
)

func mustUUID(t *testing.T) uuid.UUID {
	id, err := uuid.NewV4()
	if err != nil {
		t.Fatalf("uuid.NewV4() error: %v", err)
	}
	return id
}

func sampleRows(t *testing.T) []Row {
	return []Row{
		{ID: mustUUID(t), SignalID: mustUUID(t), Source: "PMU1", SignalType: "FREQ", Fields: map[string]string{"PointTag": "PMU1:FREQ"}},
		{ID: mustUUID(t), SignalID: mustUUID(t), Source: "PMU1", SignalType: "VPHM", Fields: map[string]string{"PointTag": "PMU1:VPHM"}},
		{ID: mustUUID(t), SignalID: mustUUID(t), Source: "PMU2", SignalType: "FREQ", Fields: map[string]string{"PointTag": "PMU2:FREQ"}},
	}
}

func TestEvaluateEmptyFilterSelectsNothing(t *testing.T) {
	ds := NewMemoryDataset("ActiveMeasurements", sampleRows(t))
	eval := NewSimpleEvaluator(ds)

	rows, err := eval.Evaluate("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("len(rows) = %d, want 0", len(rows))
	}
}

func TestEvaluateWhitespaceFilterSelectsNothing(t *testing.T) {
	ds := NewMemoryDataset("ActiveMeasurements", sampleRows(t))
	eval := NewSimpleEvaluator(ds)

	rows, err := eval.Evaluate("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("len(rows) = %d, want 0", len(rows))
	}
}

func TestDatasetReturnsFullCatalog(t *testing.T) {
	ds := NewMemoryDataset("ActiveMeasurements", sampleRows(t))
	eval := NewSimpleEvaluator(ds)

	if len(eval.Dataset().Rows()) != 3 {
		t.Fatalf("len(eval.Dataset().Rows()) = %d, want 3", len(eval.Dataset().Rows()))
	}
}

func TestEvaluateEqualityFilter(t *testing.T) {
	ds := NewMemoryDataset("ActiveMeasurements", sampleRows(t))
	eval := NewSimpleEvaluator(ds)

	rows, err := eval.Evaluate("FILTER ActiveMeasurements WHERE SignalType='FREQ'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.SignalType != "FREQ" {
			t.Errorf("row %v matched but SignalType != FREQ", r)
		}
	}
}

func TestEvaluateCompoundAndFilter(t *testing.T) {
	ds := NewMemoryDataset("ActiveMeasurements", sampleRows(t))
	eval := NewSimpleEvaluator(ds)

	rows, err := eval.Evaluate("FILTER ActiveMeasurements WHERE Source='PMU1' AND SignalType='VPHM'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
}

func TestEvaluateLikeFilter(t *testing.T) {
	ds := NewMemoryDataset("ActiveMeasurements", sampleRows(t))
	eval := NewSimpleEvaluator(ds)

	rows, err := eval.Evaluate("FILTER ActiveMeasurements WHERE PointTag LIKE 'PMU1%'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
}

func TestEvaluateMalformedFilterReturnsParseError(t *testing.T) {
	ds := NewMemoryDataset("ActiveMeasurements", sampleRows(t))
	eval := NewSimpleEvaluator(ds)

	_, err := eval.Evaluate("SELECT * FROM ActiveMeasurements")
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("err = %v (%T), want *ParseError", err, err)
	}
}

func TestEvaluateResultIsCached(t *testing.T) {
	ds := NewMemoryDataset("ActiveMeasurements", sampleRows(t))
	eval := NewSimpleEvaluator(ds)

	expr := "FILTER ActiveMeasurements WHERE SignalType='FREQ'"
	first, err := eval.Evaluate(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := eval.cache.Get(expr); !ok {
		t.Fatal("expected expression to be cached after first evaluation")
	}

	second, err := eval.Evaluate(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("cached result length %d != original %d", len(second), len(first))
	}
}
