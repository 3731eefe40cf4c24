package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pywr-go/pywr-core-go/calendar"
	"github.com/pywr-go/pywr-core-go/pywrstate"
)

func TestLogRecorderTextFormat(t *testing.T) {
	var buf bytes.Buffer
	rec := NewLogRecorder(&buf, false)

	st := pywrstate.New(0, 2, 0, 0, 0, 0)
	st.EdgeFlows[0], st.EdgeFlows[1] = 11, 10

	ts := calendar.Timestep{Index: 3, Date: calendar.Date{Year: 2015, Month: 1, Day: 4}, Dt: 1}
	if err := rec.Save(ts, 0, st); err != nil {
		t.Fatal(err)
	}

	line := buf.String()
	for _, want := range []string{"[step]", "t=3", "date=2015-01-04", "scenario=0"} {
		if !strings.Contains(line, want) {
			t.Errorf("output %q missing %q", line, want)
		}
	}
}

func TestLogRecorderJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	rec := NewLogRecorder(&buf, true)

	st := pywrstate.New(1, 1, 0, 0, 0, 0)
	st.EdgeFlows[0] = 5
	ts := calendar.Timestep{Index: 0, Date: calendar.Date{Year: 2015, Month: 6, Day: 1}, Dt: 1}
	if err := rec.Save(ts, 2, st); err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		T        int       `json:"t"`
		Date     string    `json:"date"`
		Scenario int       `json:"scenario"`
		Edges    []float64 `json:"edgeFlows"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Scenario != 2 || decoded.Date != "2015-06-01" || decoded.Edges[0] != 5 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestPrometheusMetricsRegisterAndRecord(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPrometheusMetrics(registry)

	m.SetActiveScenarios(3)
	m.RecordSolve(0, "optimal")
	m.IncInfeasible()
	m.IncTimeout()

	families, err := registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"pywr_active_scenarios",
		"pywr_step_solve_duration_ms",
		"pywr_infeasible_total",
		"pywr_solver_timeouts_total",
	} {
		if !names[want] {
			t.Errorf("metric %q not registered", want)
		}
	}

	// A nil receiver must be a no-op, since metrics are optional.
	var none *PrometheusMetrics
	none.SetActiveScenarios(1)
	none.IncInfeasible()
}
