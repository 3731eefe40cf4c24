package param

import (
	"errors"
	"math"
	"testing"

	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/metric"
	"github.com/pywr-go/pywr-core-go/network"
	"github.com/pywr-go/pywr-core-go/pywrerr"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

func emptyNetwork(t *testing.T) *network.FrozenNetwork {
	t.Helper()
	fn, err := network.NewNetwork().Freeze()
	if err != nil {
		t.Fatal(err)
	}
	return fn
}

func step(index int, date calendar.Date) calendar.Timestep {
	return calendar.Timestep{Index: index, Date: date, Dt: 1}
}

func TestConstant(t *testing.T) {
	p := NewConstant("c", 4.2)
	var internal any
	got, err := p.Compute(step(17, calendar.Date{Year: 2015, Month: 6, Day: 1}), 0, nil, nil, &internal)
	if err != nil || got != 4.2 {
		t.Errorf("Compute = %g, %v; want 4.2, nil", got, err)
	}
}

func TestVectorOutOfRange(t *testing.T) {
	p := NewVector("v", []float64{1, 2, 3})
	var internal any

	got, err := p.Compute(step(2, calendar.Date{}), 0, nil, nil, &internal)
	if err != nil || got != 3 {
		t.Errorf("Compute = %g, %v; want 3, nil", got, err)
	}

	_, err = p.Compute(step(3, calendar.Date{}), 0, nil, nil, &internal)
	if !errors.Is(err, &pywrerr.Error{Kind: pywrerr.TimestepIndexOutOfRange}) {
		t.Errorf("expected TimestepIndexOutOfRange, got %v", err)
	}
}

func TestArray2SelectsScenarioColumn(t *testing.T) {
	p := NewArray2("a2", [][]float64{{1, 10}, {2, 20}})
	var internal any

	got, err := p.Compute(step(1, calendar.Date{}), 1, nil, nil, &internal)
	if err != nil || got != 20 {
		t.Errorf("Compute = %g, %v; want 20, nil", got, err)
	}
	if _, err := p.Compute(step(0, calendar.Date{}), 2, nil, nil, &internal); err == nil {
		t.Error("expected out-of-range scenario to fail")
	}
}

func TestMonthlyProfile(t *testing.T) {
	var values [12]float64
	for i := range values {
		values[i] = float64(i + 1)
	}
	p := NewMonthlyProfile("months", values)
	var internal any

	for month := 1; month <= 12; month++ {
		got, err := p.Compute(step(0, calendar.Date{Year: 2015, Month: month, Day: 15}), 0, nil, nil, &internal)
		if err != nil || got != float64(month) {
			t.Errorf("month %d = %g, %v; want %d", month, got, err, month)
		}
	}
}

func TestDailyProfileSkipsLeapDayInNonLeapYears(t *testing.T) {
	var values [366]float64
	for i := range values {
		values[i] = float64(i)
	}
	p := NewDailyProfile("days", values, nil)
	var internal any

	// Leap year: 29 Feb reads index 59, 1 Mar index 60.
	got, _ := p.Compute(step(0, calendar.Date{Year: 2016, Month: 2, Day: 29}), 0, nil, nil, &internal)
	if got != 59 {
		t.Errorf("29 Feb 2016 = %g, want 59", got)
	}
	got, _ = p.Compute(step(0, calendar.Date{Year: 2016, Month: 3, Day: 1}), 0, nil, nil, &internal)
	if got != 60 {
		t.Errorf("1 Mar 2016 = %g, want 60", got)
	}

	// Non-leap year: index 59 is skipped so 1 Mar still reads 60.
	got, _ = p.Compute(step(0, calendar.Date{Year: 2015, Month: 2, Day: 28}), 0, nil, nil, &internal)
	if got != 58 {
		t.Errorf("28 Feb 2015 = %g, want 58", got)
	}
	got, _ = p.Compute(step(0, calendar.Date{Year: 2015, Month: 3, Day: 1}), 0, nil, nil, &internal)
	if got != 60 {
		t.Errorf("1 Mar 2015 = %g, want 60", got)
	}
	got, _ = p.Compute(step(0, calendar.Date{Year: 2015, Month: 12, Day: 31}), 0, nil, nil, &internal)
	if got != 365 {
		t.Errorf("31 Dec 2015 = %g, want 365", got)
	}
}

func TestUniformDrawdownProfile(t *testing.T) {
	p := NewUniformDrawdownProfile("drawdown", 1, 1, 0, nil)
	var internal any

	got, _ := p.Compute(step(0, calendar.Date{Year: 2015, Month: 1, Day: 1}), 0, nil, nil, &internal)
	if got != 1 {
		t.Errorf("reset day = %g, want 1", got)
	}
	got, _ = p.Compute(step(0, calendar.Date{Year: 2015, Month: 12, Day: 31}), 0, nil, nil, &internal)
	want := 1 - 364.0/365.0
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("day before reset = %g, want %g", got, want)
	}
}

func TestPolynomial1D(t *testing.T) {
	fn := emptyNetwork(t)
	st := pywrstate.New(0, 0, 0, 1, 0, 0)
	if err := st.SetParameterValue(0, 3); err != nil {
		t.Fatal(err)
	}

	// 1 + 2x + x^2 at x=3 -> 16.
	p := NewPolynomial1D("poly", metric.ParameterValue(0), []float64{1, 2, 1})
	var internal any
	got, err := p.Compute(step(0, calendar.Date{}), 0, fn, st, &internal)
	if err != nil || got != 16 {
		t.Errorf("Compute = %g, %v; want 16, nil", got, err)
	}

	deps, _, _ := p.Dependencies()
	if len(deps) != 1 || deps[0] != 0 {
		t.Errorf("dependencies = %v, want [0]", deps)
	}
}

func TestMaxAndNegative(t *testing.T) {
	fn := emptyNetwork(t)
	st := pywrstate.New(0, 0, 0, 1, 0, 0)
	if err := st.SetParameterValue(0, -4); err != nil {
		t.Fatal(err)
	}
	var internal any

	maxP := NewMax("max", metric.ParameterValue(0), 0)
	got, err := maxP.Compute(step(0, calendar.Date{}), 0, fn, st, &internal)
	if err != nil || got != 0 {
		t.Errorf("Max = %g, %v; want 0, nil", got, err)
	}

	negP := NewNegative("neg", metric.ParameterValue(0))
	got, err = negP.Compute(step(0, calendar.Date{}), 0, fn, st, &internal)
	if err != nil || got != 4 {
		t.Errorf("Negative = %g, %v; want 4, nil", got, err)
	}
}

func TestThresholdPredicates(t *testing.T) {
	fn := emptyNetwork(t)
	st := pywrstate.New(0, 0, 0, 1, 0, 0)
	if err := st.SetParameterValue(0, 5); err != nil {
		t.Fatal(err)
	}
	var internal any

	cases := []struct {
		pred Predicate
		want float64
	}{
		{LT, 10}, // 5 < 5 false
		{LE, 20}, // 5 <= 5 true
		{EQ, 20},
		{GE, 20},
		{GT, 10},
	}
	for _, c := range cases {
		p := NewThreshold("thr", metric.ParameterValue(0), 5, c.pred, [2]float64{10, 20})
		got, err := p.Compute(step(0, calendar.Date{}), 0, fn, st, &internal)
		if err != nil || got != c.want {
			t.Errorf("predicate %d = %g, %v; want %g", c.pred, got, err, c.want)
		}
	}
}

func TestAggregatedFuncs(t *testing.T) {
	fn := emptyNetwork(t)
	st := pywrstate.New(0, 0, 0, 0, 0, 0)
	metrics := []metric.Metric{metric.Constant(2), metric.Constant(3), metric.Constant(6)}
	var internal any

	cases := []struct {
		fn   AggFunc
		want float64
	}{
		{AggSum, 11},
		{AggMean, 11.0 / 3},
		{AggMax, 6},
		{AggMin, 2},
		{AggProduct, 36},
	}
	for _, c := range cases {
		p := NewAggregated("agg", metrics, c.fn)
		got, err := p.Compute(step(0, calendar.Date{}), 0, fn, st, &internal)
		if err != nil || math.Abs(got-c.want) > 1e-12 {
			t.Errorf("func %d = %g, %v; want %g", c.fn, got, err, c.want)
		}
	}
}

func TestAggregatedIndexFuncs(t *testing.T) {
	st := pywrstate.New(0, 0, 0, 0, 3, 0)
	for i, v := range []int{0, 2, 3} {
		if err := st.SetIndexParameterValue(i, v); err != nil {
			t.Fatal(err)
		}
	}
	inputs := []IndexParameterIdx{0, 1, 2}
	var internal any

	cases := []struct {
		fn   AggIndexFunc
		want int
	}{
		{AggIndexSum, 5},
		{AggIndexProduct, 0},
		{AggIndexMin, 0},
		{AggIndexMax, 3},
		{AggIndexAny, 1},
		{AggIndexAll, 0},
	}
	for _, c := range cases {
		p := NewAggregatedIndex("aggidx", inputs, c.fn)
		got, err := p.Compute(step(0, calendar.Date{}), 0, nil, st, &internal)
		if err != nil || got != c.want {
			t.Errorf("func %d = %d, %v; want %d", c.fn, got, err, c.want)
		}
	}
}

func TestIndexedArray(t *testing.T) {
	st := pywrstate.New(0, 0, 0, 2, 1, 0)
	if err := st.SetParameterValue(0, 1.5); err != nil {
		t.Fatal(err)
	}
	if err := st.SetParameterValue(1, 2.5); err != nil {
		t.Fatal(err)
	}
	if err := st.SetIndexParameterValue(0, 1); err != nil {
		t.Fatal(err)
	}

	p := NewIndexedArray("sel", 0, []ParameterIdx{0, 1})
	var internal any
	got, err := p.Compute(step(0, calendar.Date{}), 0, nil, st, &internal)
	if err != nil || got != 2.5 {
		t.Errorf("Compute = %g, %v; want 2.5, nil", got, err)
	}

	if err := st.SetIndexParameterValue(0, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Compute(step(0, calendar.Date{}), 0, nil, st, &internal); err == nil {
		t.Error("expected out-of-range selector to fail")
	}
}
