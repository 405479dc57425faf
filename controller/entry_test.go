package controller

import (
	"testing"

	"github.com/tteke/three-loader/mat"
	"github.com/tteke/three-loader/pointbuffer"
)

func pointsAt(xs ...float32) *pointbuffer.TypedPointBuffer {
	buf := pointbuffer.New(len(xs))
	buf.EnsureColumn(pointbuffer.Position)
	for i, x := range xs {
		p := mat.NewVec3(x, 0, 0)
		buf.SetPositionAt(i, p)
		buf.ExpandBoundingBox(p)
	}
	return buf
}

func TestProjectedEntryAppendWithinCapacity(t *testing.T) {
	e := NewProjectedEntry(10)
	e.Append(pointsAt(1, 2, 3))

	if len(e.Batches()) != 1 {
		t.Fatalf("expected a single batch, got %d", len(e.Batches()))
	}
	if e.Batches()[0].Points.Len() != 3 {
		t.Fatalf("expected 3 points in the batch, got %d", e.Batches()[0].Points.Len())
	}
}

func TestProjectedEntrySpillsToFreshBatchWhenFull(t *testing.T) {
	e := NewProjectedEntry(2)
	e.Append(pointsAt(1, 2, 3, 4, 5))

	batches := e.Batches()
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches for 5 points at capacity 2, got %d", len(batches))
	}
	if batches[0].Points.Len() != 2 || batches[1].Points.Len() != 2 || batches[2].Points.Len() != 1 {
		t.Fatalf("unexpected batch sizes: %d %d %d", batches[0].Points.Len(), batches[1].Points.Len(), batches[2].Points.Len())
	}
}

func TestProjectedEntryFinalizesFullBatches(t *testing.T) {
	e := NewProjectedEntry(2)
	e.Append(pointsAt(1, 2, 3))

	batches := e.Batches()
	if !batches[0].finalized {
		t.Fatalf("expected the first, full batch to be finalized")
	}
	if batches[1].finalized {
		t.Fatalf("expected the still-open batch to not be finalized")
	}
}

func TestProjectedEntryProjectedBoxUnionsAcrossBatches(t *testing.T) {
	e := NewProjectedEntry(2)
	e.Append(pointsAt(-5, 0, 5, 10))

	box := e.ProjectedBox()
	if box.Min[0] != -5 || box.Max[0] != 10 {
		t.Fatalf("unexpected projected box: min=%v max=%v", box.Min, box.Max)
	}
}

func TestProjectedEntryIgnoresEmptyAppend(t *testing.T) {
	e := NewProjectedEntry(10)
	e.Append(pointbuffer.New(0))

	if e.Batches()[0].Points.Len() != 0 {
		t.Fatalf("expected appending an empty buffer to be a no-op")
	}
}
