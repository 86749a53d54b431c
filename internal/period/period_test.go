package period

import (
	"testing"
	"time"
)

func TestPrevCrossesYearBoundary(t *testing.T) {
	p := Period{Month: time.January, Year: 2026}
	got := p.Prev()
	want := Period{Month: time.December, Year: 2025}
	if got != want {
		t.Fatalf("Prev() = %v, want %v", got, want)
	}
}

func TestNextCrossesYearBoundary(t *testing.T) {
	p := Period{Month: time.December, Year: 2025}
	got := p.Next()
	want := Period{Month: time.January, Year: 2026}
	if got != want {
		t.Fatalf("Next() = %v, want %v", got, want)
	}
}

func TestPrevNextRoundTrip(t *testing.T) {
	p := Period{Month: time.June, Year: 2026}
	if got := p.Prev().Next(); got != p {
		t.Fatalf("Prev().Next() = %v, want %v", got, p)
	}
}

func TestBefore(t *testing.T) {
	tests := []struct {
		name string
		p, q Period
		want bool
	}{
		{"earlier month same year", Period{time.March, 2026}, Period{time.April, 2026}, true},
		{"later month same year", Period{time.May, 2026}, Period{time.April, 2026}, false},
		{"equal", Period{time.April, 2026}, Period{time.April, 2026}, false},
		{"earlier year later month", Period{time.December, 2025}, Period{time.January, 2026}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Before(tt.q); got != tt.want {
				t.Fatalf("%v.Before(%v) = %v, want %v", tt.p, tt.q, got, tt.want)
			}
		})
	}
}

func TestSub(t *testing.T) {
	a := Period{time.February, 2026}
	b := Period{time.November, 2025}
	if got := a.Sub(b); got != 3 {
		t.Fatalf("Sub = %d, want 3", got)
	}
	if got := b.Sub(a); got != -3 {
		t.Fatalf("Sub = %d, want -3", got)
	}
}

func TestBoundsCoverWholeMonth(t *testing.T) {
	loc, err := time.LoadLocation("America/Guayaquil")
	if err != nil {
		t.Fatal(err)
	}
	p := Period{Month: time.February, Year: 2026}
	start, end := p.Bounds(loc)

	if !start.Equal(time.Date(2026, time.February, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("start = %v", start)
	}
	if !end.Equal(time.Date(2026, time.March, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("end = %v", end)
	}

	lastInstant := end.Add(-time.Nanosecond)
	if lastInstant.Month() != time.February {
		t.Fatalf("last instant %v not in February", lastInstant)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(13, 2026); err == nil {
		t.Fatal("expected error for month 13")
	}
	if _, err := New(0, 2026); err == nil {
		t.Fatal("expected error for month 0")
	}
	if _, err := New(3, 26); err == nil {
		t.Fatal("expected error for two-digit year")
	}
	p, err := New(3, 2026)
	if err != nil {
		t.Fatal(err)
	}
	if p.Month != time.March || p.Year != 2026 {
		t.Fatalf("New = %v", p)
	}
}

func TestString(t *testing.T) {
	p := Period{Month: time.March, Year: 2026}
	if got := p.String(); got != "2026-03" {
		t.Fatalf("String() = %q", got)
	}
}
