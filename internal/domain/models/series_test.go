package models

import "testing"

func TestCalendarTableAt(t *testing.T) {
	tbl := &CalendarTable{
		FirstDay: 10,
		Days: []CalendarDay{
			{Day: 10}, {Day: 11}, {Day: 12},
		},
	}

	d, ok := tbl.At(11)
	if !ok || d.Day != 11 {
		t.Errorf("At(11) = %v, %v; want day 11", d.Day, ok)
	}
	if _, ok := tbl.At(9); ok {
		t.Errorf("At(9) = ok, want miss below FirstDay")
	}
	if _, ok := tbl.At(13); ok {
		t.Errorf("At(13) = ok, want miss past the last day")
	}
}

func TestCalendarTableNilReceiver(t *testing.T) {
	var tbl *CalendarTable

	if _, ok := tbl.At(1); ok {
		t.Errorf("At on nil table = ok, want miss")
	}
	if last := tbl.LastDay(); last != 0 {
		t.Errorf("LastDay on nil table = %d, want 0", last)
	}
}

func TestSeriesBufferAppendAndAt(t *testing.T) {
	b := &SeriesBuffer{FirstDay: 5, Values: []float64{1, 2}}

	if got := b.LastDay(); got != 6 {
		t.Fatalf("LastDay = %d, want 6", got)
	}
	b.Append(7)
	if got := b.LastDay(); got != 7 {
		t.Fatalf("LastDay after Append = %d, want 7", got)
	}
	if v, ok := b.At(7); !ok || v != 7 {
		t.Errorf("At(7) = %v, %v; want 7", v, ok)
	}
	if _, ok := b.At(4); ok {
		t.Errorf("At(4) = ok, want miss before FirstDay")
	}
}
