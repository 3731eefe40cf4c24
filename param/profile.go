package param

import (
	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

// MonthlyProfile returns values[month-1] for the timestep's calendar month.
type MonthlyProfile struct {
	paramBase
	values [12]float64
}

// NewMonthlyProfile builds a profile parameter with one value per month.
func NewMonthlyProfile(name string, values [12]float64) *MonthlyProfile {
	return &MonthlyProfile{paramBase: paramBase{meta: Meta{Name: name}}, values: values}
}

func (p *MonthlyProfile) Compute(t calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, _ *pywrstate.State, _ *any) (float64, error) {
	if t.Date.Month < 1 || t.Date.Month > 12 {
		return 0, pywrerr.New(pywrerr.TimestepIndexOutOfRange, p.meta.Name, "month outside 1..12")
	}
	return p.values[t.Date.Month-1], nil
}

// DailyProfile holds a 366-entry table indexed by zero-based day of year.
// The table always uses the leap-year layout: index 59 is 29 February. In
// non-leap years that entry is skipped, so 1 March reads index 60 in every
// year.
type DailyProfile struct {
	paramBase
	values [366]float64
	cal    calendar.Calendar
}

// NewDailyProfile builds a profile parameter with one value per day of a
// leap year. cal may be nil, defaulting to the Gregorian calendar.
func NewDailyProfile(name string, values [366]float64, cal calendar.Calendar) *DailyProfile {
	if cal == nil {
		cal = calendar.Gregorian{}
	}
	return &DailyProfile{paramBase: paramBase{meta: Meta{Name: name}}, values: values, cal: cal}
}

func (p *DailyProfile) Compute(t calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, _ *pywrstate.State, _ *any) (float64, error) {
	doy := p.cal.DayOfYear(t.Date)
	if doy < 1 || doy > 366 {
		return 0, pywrerr.New(pywrerr.TimestepIndexOutOfRange, p.meta.Name, "day of year outside 1..366")
	}
	idx := doy - 1
	if !p.cal.IsLeapYear(t.Date.Year) && idx >= 59 {
		// Skip the 29 February slot so March onwards stays aligned with
		// the leap-year table layout.
		idx++
	}
	if idx > 365 {
		return 0, pywrerr.New(pywrerr.TimestepIndexOutOfRange, p.meta.Name, "day of year outside table")
	}
	return p.values[idx], nil
}

// UniformDrawdownProfile declines linearly from 1.0 on its reset day towards
// a residual proportion, losing (1-residual)/daysInYear each day and
// restarting every year. Typical use is as the max_volume proportion of an annual licence.
type UniformDrawdownProfile struct {
	paramBase
	resetMonth   int
	resetDay     int
	residualDays int
	cal          calendar.Calendar
}

// NewUniformDrawdownProfile builds a drawdown profile resetting each year on
// the given month/day. residualDays sets the residual r = residualDays/daysInYear:
// on the day before the next reset the profile is r + (1-r)/daysInYear. cal may be nil,
// defaulting to the Gregorian calendar.
func NewUniformDrawdownProfile(name string, resetMonth, resetDay, residualDays int, cal calendar.Calendar) *UniformDrawdownProfile {
	if cal == nil {
		cal = calendar.Gregorian{}
	}
	return &UniformDrawdownProfile{
		paramBase:    paramBase{meta: Meta{Name: name}},
		resetMonth:   resetMonth,
		resetDay:     resetDay,
		residualDays: residualDays,
		cal:          cal,
	}
}

func (p *UniformDrawdownProfile) Compute(t calendar.Timestep, _ ScenarioIdx, _ *network.FrozenNetwork, _ *pywrstate.State, _ *any) (float64, error) {
	resetYear := t.Date.Year
	reset := calendar.Date{Year: resetYear, Month: p.resetMonth, Day: p.resetDay}
	if p.cal.DayOfYear(t.Date) < p.cal.DayOfYear(reset) {
		resetYear--
		reset.Year = resetYear
	}

	days := 365
	if p.cal.IsLeapYear(resetYear) {
		days = 366
	}
	elapsed := p.cal.DayOfYear(t.Date) - p.cal.DayOfYear(reset)
	if elapsed < 0 {
		elapsed += days
	}

	residual := float64(p.residualDays) / float64(days)
	return 1 - (1-residual)*float64(elapsed)/float64(days), nil
}
