package pdfpipe

import (
	"errors"
	"testing"
)

// sizerFunc adapts a function to the rangeSizer interface for tests.
type sizerFunc func(r PageRange) (int64, error)

func (f sizerFunc) RangeSize(r PageRange) (int64, error) { return f(r) }

// perPage returns a sizer where every page serializes to n bytes.
func perPage(n int64) sizerFunc {
	return func(r PageRange) (int64, error) { return int64(r.Pages()) * n, nil }
}

func checkCoverage(t *testing.T, ranges []PageRange, totalPages int) {
	t.Helper()
	if len(ranges) == 0 {
		t.Fatal("no ranges produced")
	}
	if ranges[0].Start != 0 {
		t.Fatalf("first range starts at %d, want 0", ranges[0].Start)
	}
	for i, r := range ranges {
		if r.Start >= r.End {
			t.Fatalf("range %d is empty: %s", i, r)
		}
		if i > 0 && r.Start != ranges[i-1].End {
			t.Fatalf("gap or overlap between %s and %s", ranges[i-1], r)
		}
	}
	if last := ranges[len(ranges)-1].End; last != totalPages {
		t.Fatalf("last range ends at %d, want %d", last, totalPages)
	}
}

func TestStepRanges(t *testing.T) {
	tests := []struct {
		pages, step int
		want        int // range count
	}{
		{100, 20, 5},
		{101, 20, 6},
		{19, 20, 1},
		{20, 20, 1},
		{1, 20, 1},
	}
	for _, tt := range tests {
		got := stepRanges(tt.pages, tt.step)
		if len(got) != tt.want {
			t.Errorf("stepRanges(%d, %d) = %d ranges, want %d", tt.pages, tt.step, len(got), tt.want)
		}
		checkCoverage(t, got, tt.pages)
	}
}

func TestSplitRanges_NotChunkable(t *testing.T) {
	// With chunkable disabled the splitter must return exactly the coarse
	// partition, without measuring anything.
	p := New(Config{FirstPassStep: 20, Logger: testLogger()})
	measured := false
	sizer := sizerFunc(func(r PageRange) (int64, error) {
		measured = true
		return 1 << 40, nil
	})

	got := p.splitRanges(sizer, 90, false)
	want := stepRanges(90, 20)
	if len(got) != len(want) {
		t.Fatalf("got %d ranges, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("range %d = %s, want %s", i, got[i], want[i])
		}
	}
	if measured {
		t.Error("splitter measured sizes with chunkable=false")
	}
}

func TestSplitRanges_MinPagesFloorWholeDocument(t *testing.T) {
	// A document at the MinPages floor yields a single whole-document
	// range, regardless of how large it measures.
	p := New(Config{Logger: testLogger()}) // defaults: MinPages=50, step=20
	got := p.splitRanges(perPage(1<<30), DefaultMinPages, true)
	if len(got) != 1 {
		t.Fatalf("got %d ranges, want 1", len(got))
	}
	if got[0] != (PageRange{Start: 0, End: DefaultMinPages}) {
		t.Fatalf("got %s, want [0,%d)", got[0], DefaultMinPages)
	}
}

func TestSplitRanges_CoverageUnderRefinement(t *testing.T) {
	// Oversized ranges get quartered; the union must still cover every
	// page exactly once, in order.
	p := New(Config{
		ChunkThreshold: 100,
		ChunkTarget:    40,
		MinPages:       2,
		FirstPassStep:  16,
		Logger:         testLogger(),
	})
	for _, pages := range []int{3, 16, 33, 100, 257} {
		got := p.splitRanges(perPage(50), pages, true)
		checkCoverage(t, got, pages)
	}
}

func TestSplitRanges_OversizedNeverAcceptedUnsplit(t *testing.T) {
	p := New(Config{
		ChunkThreshold: 100,
		ChunkTarget:    40,
		MinPages:       2,
		FirstPassStep:  32,
		Logger:         testLogger(),
	})
	sizer := perPage(50) // any range over 2 pages exceeds the threshold

	got := p.splitRanges(sizer, 128, true)
	checkCoverage(t, got, 128)
	for _, r := range got {
		size, _ := sizer.RangeSize(r)
		if r.Pages() > 2 && size > 100 {
			t.Errorf("oversized range %s (size %d) accepted unsplit", r, size)
		}
	}
}

func TestSplitBySize_SinglePageFloor(t *testing.T) {
	// A single page exceeding every threshold is still accepted once it
	// reaches the floor; the splitter never emits an empty range.
	p := New(Config{
		ChunkThreshold: 10,
		ChunkTarget:    5,
		MinPages:       1,
		FirstPassStep:  8,
		Logger:         testLogger(),
	})
	got := p.splitRanges(perPage(1000), 8, true)
	checkCoverage(t, got, 8)
	for _, r := range got {
		if r.Pages() != 1 {
			t.Errorf("expected one-page ranges at the floor, got %s", r)
		}
	}
}

func TestSplitBySize_MeasurementErrorAcceptsUnsplit(t *testing.T) {
	// Trial serialization failures must not fail the request: the range
	// is accepted as-is.
	p := New(Config{
		ChunkThreshold: 10,
		ChunkTarget:    5,
		MinPages:       2,
		FirstPassStep:  16,
		Logger:         testLogger(),
	})
	sizer := sizerFunc(func(r PageRange) (int64, error) {
		return 0, errors.New("out of memory")
	})
	got := p.splitRanges(sizer, 16, true)
	if len(got) != 1 {
		t.Fatalf("got %d ranges, want 1 (accepted unsplit)", len(got))
	}
	checkCoverage(t, got, 16)
}

func TestSplitRanges_ThresholdIsAcceptBound(t *testing.T) {
	// A range between target and threshold lands in the tolerant branch
	// and is accepted unsplit.
	p := New(Config{
		ChunkThreshold: 1000,
		ChunkTarget:    100,
		MinPages:       2,
		FirstPassStep:  8,
		Logger:         testLogger(),
	})
	got := p.splitRanges(perPage(60), 8, true) // 8 pages * 60 = 480: over target, under threshold
	if len(got) != 1 {
		t.Fatalf("got %d ranges, want 1", len(got))
	}
}
