package calendar

import (
	"testing"
	"time"
)

func TestDayNumberAndDateRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	for _, want := range cases {
		day := DayNumber(want)
		got := Date(day)
		if !got.Equal(want) {
			t.Fatalf("Date(DayNumber(%v)) = %v", want, got)
		}
	}
}

func TestDayNumberTruncatesTimeOfDay(t *testing.T) {
	t1 := time.Date(2024, 6, 15, 23, 59, 59, 0, time.UTC)
	t2 := time.Date(2024, 6, 15, 0, 0, 1, 0, time.UTC)
	if DayNumber(t1) != DayNumber(t2) {
		t.Fatalf("DayNumber should ignore time of day: %d vs %d", DayNumber(t1), DayNumber(t2))
	}
}

func TestGregorianMonthBucket(t *testing.T) {
	var g Gregorian
	mid := DayNumber(time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC))
	wantStart := DayNumber(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if got := g.MonthBucket(mid); got != wantStart {
		t.Fatalf("MonthBucket(mid-march) = %d, want %d", got, wantStart)
	}

	firstDay := DayNumber(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if got := g.MonthBucket(firstDay); got != firstDay {
		t.Fatalf("MonthBucket(first-of-month) = %d, want %d", got, firstDay)
	}
}

func TestGregorianMonthBucketAcrossYearBoundary(t *testing.T) {
	var g Gregorian
	day := DayNumber(time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC))
	want := DayNumber(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC))
	if got := g.MonthBucket(day); got != want {
		t.Fatalf("MonthBucket = %d, want %d", got, want)
	}
}

func TestGregorianYMD(t *testing.T) {
	var g Gregorian
	day := DayNumber(time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	y, m, d := g.YMD(day)
	if y != 2024 || m != time.July || d != 4 {
		t.Fatalf("YMD = %d-%d-%d, want 2024-7-4", y, m, d)
	}
}
