package profile

import (
	"testing"

	"github.com/tteke/three-loader/mat"
)

func TestDeriveSegmentsCountAndOrthogonality(t *testing.T) {
	p := New(2, 1)
	p.AddMarker(mat.NewVec3(0, 0, 0))
	p.AddMarker(mat.NewVec3(10, 0, 0))
	p.AddMarker(mat.NewVec3(10, 10, 0))

	segments, err := p.DeriveSegments()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	for i, s := range segments {
		if d := s.Forward.Norm(); absF(d-1) > 1e-5 {
			t.Errorf("segment %d: expected unit forward, got norm %f", i, d)
		}
		if d := s.Side.Norm(); absF(d-1) > 1e-5 {
			t.Errorf("segment %d: expected unit side, got norm %f", i, d)
		}
		if dot := s.Forward.Dot(s.Side); absF(dot) > 1e-5 {
			t.Errorf("segment %d: expected forward orthogonal to side, dot=%f", i, dot)
		}
	}
	if segments[0].End != segments[1].Start {
		t.Errorf("expected shared endpoint between segments")
	}
}

func TestDeriveSegmentsInvalid(t *testing.T) {
	p := New(2, 1)
	if _, err := p.DeriveSegments(); err != ErrInvalidProfile {
		t.Fatalf("expected ErrInvalidProfile for empty profile, got %v", err)
	}
	p.AddMarker(mat.NewVec3(0, 0, 0))
	if _, err := p.DeriveSegments(); err != ErrInvalidProfile {
		t.Fatalf("expected ErrInvalidProfile for single-marker profile, got %v", err)
	}
}

func TestAddMarkerPublishesExactlyOneEvent(t *testing.T) {
	p := New(2, 1)
	var events []Event
	p.Subscribe(func(e Event) { events = append(events, e) })

	p.AddMarker(mat.NewVec3(0, 0, 0))

	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d: %+v", len(events), events)
	}
	if events[0].Kind != MarkerAdded {
		t.Errorf("expected MarkerAdded, got %v", events[0].Kind)
	}
}

func TestAddThenRemoveRestoresGeometricEquivalence(t *testing.T) {
	p := New(2, 1)
	p.AddMarker(mat.NewVec3(0, 0, 0))
	p.AddMarker(mat.NewVec3(10, 0, 0))
	before, err := p.DeriveSegments()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.AddMarker(mat.NewVec3(20, 0, 0))
	if err := p.RemoveMarker(len(p.Markers()) - 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, err := p.DeriveSegments()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("expected same segment count, got %d vs %d", len(before), len(after))
	}
	if before[0].Side != after[0].Side || before[0].Length != after[0].Length {
		t.Errorf("expected geometrically equivalent segment, got %+v vs %+v", before[0], after[0])
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	p := New(2, 1)
	calls := 0
	unsub := p.Subscribe(func(Event) { calls++ })
	unsub()
	p.AddMarker(mat.NewVec3(0, 0, 0))
	if calls != 0 {
		t.Errorf("expected 0 calls after unsubscribe, got %d", calls)
	}
}

func absF(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
