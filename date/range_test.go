package date

import (
	"testing"
	"time"
)

func TestRangeContains(t *testing.T) {
	r := Year(2024)
	tests := []struct {
		on   Date
		want bool
	}{
		{New(2023, time.December, 31), false},
		{New(2024, time.January, 1), true},
		{New(2024, time.June, 15), true},
		{New(2024, time.December, 31), true},
		{New(2025, time.January, 1), false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.on); got != tt.want {
			t.Errorf("Year(2024).Contains(%v) = %v, want %v", tt.on, got, tt.want)
		}
	}
}

func TestAround(t *testing.T) {
	d := New(2024, time.March, 1)
	r := Around(d, 30)
	if want := New(2024, time.January, 31); r.From != want {
		t.Errorf("Around().From = %v, want %v", r.From, want)
	}
	if want := New(2024, time.March, 31); r.To != want {
		t.Errorf("Around().To = %v, want %v", r.To, want)
	}
}

func TestRangeEnd(t *testing.T) {
	want := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := Year(2024).End(); !got.Equal(want) {
		t.Errorf("End() = %v, want %v", got, want)
	}
}
