package grid

import "testing"

func TestNewGranularity(t *testing.T) {
	for _, mins := range []int{5, 10, 15, 30, 60, 90, 120} {
		if _, err := NewGranularity(mins); err != nil {
			t.Fatalf("expected %d to be a valid granularity: %v", mins, err)
		}
	}
	for _, mins := range []int{0, -15, 7, 25, 1441} {
		if _, err := NewGranularity(mins); err == nil {
			t.Fatalf("expected %d to be rejected", mins)
		}
	}
}

func TestBuildGrid_CellCountAndOrder(t *testing.T) {
	g, err := NewGranularity(30)
	if err != nil {
		t.Fatalf("granularity: %v", err)
	}
	tg := BuildGrid(g)
	if len(tg.Cells) != 48 {
		t.Fatalf("expected 48 cells, got %d", len(tg.Cells))
	}
	for i, c := range tg.Cells {
		if c.Index != i {
			t.Fatalf("cell %d has index %d", i, c.Index)
		}
	}
}

func TestLabel(t *testing.T) {
	g, _ := NewGranularity(30)
	cases := []struct {
		index int
		want  string
	}{
		{0, "12:00 AM"},
		{1, "12:30 AM"},
		{19, "09:30 AM"},
		{24, "12:00 PM"},
		{25, "12:30 PM"},
		{47, "11:30 PM"},
		{48, "11:59 PM"}, // end-of-day sentinel
	}
	for _, c := range cases {
		if got := Label(g, c.index); got != c.want {
			t.Fatalf("label(%d): expected %q, got %q", c.index, c.want, got)
		}
	}
}

func TestLabel_OutOfRangePanics(t *testing.T) {
	g, _ := NewGranularity(30)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for out-of-range label index")
		}
	}()
	Label(g, 49)
}
