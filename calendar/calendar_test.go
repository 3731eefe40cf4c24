package calendar

import "testing"

func TestIsLeapYear(t *testing.T) {
	g := Gregorian{}
	cases := map[int]bool{
		2015: false,
		2016: true,
		1900: false,
		2000: true,
		2024: true,
	}
	for year, want := range cases {
		if got := g.IsLeapYear(year); got != want {
			t.Errorf("IsLeapYear(%d) = %v, want %v", year, got, want)
		}
	}
}

func TestDayOfYear(t *testing.T) {
	g := Gregorian{}
	cases := []struct {
		d    Date
		want int
	}{
		{Date{2015, 1, 1}, 1},
		{Date{2015, 2, 28}, 59},
		{Date{2015, 3, 1}, 60},
		{Date{2015, 12, 31}, 365},
		{Date{2016, 2, 29}, 60},
		{Date{2016, 3, 1}, 61},
		{Date{2016, 12, 31}, 366},
	}
	for _, c := range cases {
		if got := g.DayOfYear(c.d); got != c.want {
			t.Errorf("DayOfYear(%v) = %d, want %d", c.d, got, c.want)
		}
	}
}

func TestAddDays(t *testing.T) {
	g := Gregorian{}
	cases := []struct {
		d    Date
		days int
		want Date
	}{
		{Date{2015, 1, 1}, 1, Date{2015, 1, 2}},
		{Date{2015, 1, 31}, 1, Date{2015, 2, 1}},
		{Date{2015, 12, 31}, 1, Date{2016, 1, 1}},
		{Date{2016, 2, 28}, 1, Date{2016, 2, 29}},
		{Date{2015, 2, 28}, 1, Date{2015, 3, 1}},
		{Date{2015, 1, 1}, 365, Date{2016, 1, 1}},
		{Date{2015, 3, 1}, -1, Date{2015, 2, 28}},
		{Date{2016, 1, 1}, -1, Date{2015, 12, 31}},
	}
	for _, c := range cases {
		if got := g.AddDays(c.d, c.days); got != c.want {
			t.Errorf("AddDays(%v, %d) = %v, want %v", c.d, c.days, got, c.want)
		}
	}
}
