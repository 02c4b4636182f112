package quote

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/codage11/pricer3d/internal/geometry"
	"github.com/codage11/pricer3d/internal/pricing"
)

func fixtureResults(filename string) Results {
	return Results{
		Filename:      filename,
		FileSizeBytes: 254000,
		Analysis: geometry.AnalysisResult{
			VolumeCm3:        25.4,
			SurfaceAreaCm2:   152.4,
			DimensionsCm:     geometry.Dimensions{X: 3.54, Y: 2.36, Z: 2.95},
			FaceCount:        5080,
			VertexCount:      3048,
			ComplexityFactor: 0.254,
			IsWatertight:     true,
		},
		Pricing: pricing.Breakdown{
			Material:  pricing.MaterialUsage{Type: "PLA", Name: "PLA (Standard)", WeightG: 6.3, Cost: 0.16},
			PrintTime: pricing.PrintTime{Hours: 0.51, Minutes: 30},
			Costs: pricing.Costs{
				Material:       0.16,
				MachineTime:    7.62,
				PostProcessing: 5,
				Subtotal:       12.78,
				Margin:         3.19,
				Total:          15.97,
			},
			Parameters: pricing.EchoedParams{InfillPercent: 20, LayerHeightMM: 0.2},
		},
	}
}

func fixtureQuote(filename string, ts time.Time) Quote {
	return Quote{
		ID:        "q-" + filename,
		Timestamp: ts,
		Filename:  filename,
		Results:   fixtureResults(filename),
	}
}

func TestNewAssignsIDAndTimestamp(t *testing.T) {
	q := New(fixtureResults("benchy.stl"))

	if q.ID == "" {
		t.Fatalf("expected a generated id")
	}
	if q.Timestamp.IsZero() {
		t.Fatalf("expected a creation timestamp")
	}
	if q.Filename != "benchy.stl" {
		t.Fatalf("expected filename from results, got %q", q.Filename)
	}

	other := New(fixtureResults("benchy.stl"))
	if other.ID == q.ID {
		t.Fatalf("two quotes got the same id %q", q.ID)
	}
}

func TestQuoteJSONRoundTrip(t *testing.T) {
	original := fixtureQuote("benchy.stl", time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC))

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal quote: %v", err)
	}

	var decoded Quote
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal quote: %v", err)
	}

	if decoded.ID != original.ID || decoded.Filename != original.Filename {
		t.Fatalf("identity fields changed in round trip: %+v", decoded)
	}
	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Fatalf("timestamp changed in round trip: %v vs %v", decoded.Timestamp, original.Timestamp)
	}
	if !reflect.DeepEqual(decoded.Results, original.Results) {
		t.Fatalf("results changed in round trip:\n%+v\n%+v", decoded.Results, original.Results)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first.stl", "second.stl", "third.stl"} {
		if _, err := store.Save(ctx, fixtureQuote(name, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	quotes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(quotes) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(quotes))
	}
	if quotes[0].Filename != "third.stl" || quotes[2].Filename != "first.stl" {
		t.Fatalf("quotes are not newest first: %+v", quotes)
	}
}

func TestMemoryStoreSaveAssignsMissingID(t *testing.T) {
	store := NewMemoryStore()
	q := fixtureQuote("benchy.stl", time.Now().UTC())
	q.ID = ""

	id, err := store.Save(context.Background(), q)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" {
		t.Fatalf("expected an assigned id")
	}

	found, err := store.Find(context.Background(), id)
	if err != nil {
		t.Fatalf("find assigned id: %v", err)
	}
	if found.Filename != "benchy.stl" {
		t.Fatalf("found wrong quote: %+v", found)
	}
}

func TestMemoryStoreFindUnknownID(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Find(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Save(ctx, fixtureQuote("benchy.stl", time.Now().UTC()))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}

	if _, err := store.Find(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
