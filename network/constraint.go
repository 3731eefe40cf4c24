package network

import (
	"math"

	"github.com/pywr-go/pywr-core-go/metric"
)

// ConstraintValueKind distinguishes the three shapes a dynamic bound can
// take.
type ConstraintValueKind int

const (
	CVNone ConstraintValueKind = iota
	CVScalar
	CVMetric
)

// ConstraintValue is a dynamic node/edge bound: unbounded, a fixed scalar,
// or a Metric evaluated fresh every step.
type ConstraintValue struct {
	Kind   ConstraintValueKind
	Scalar float64
	Metric metric.Metric
}

// NoneValue denotes an unbounded constraint.
func NoneValue() ConstraintValue { return ConstraintValue{Kind: CVNone} }

// ScalarValue denotes a fixed numeric bound.
func ScalarValue(v float64) ConstraintValue { return ConstraintValue{Kind: CVScalar, Scalar: v} }

// MetricValue denotes a bound computed from a Metric each step.
func MetricValue(m metric.Metric) ConstraintValue { return ConstraintValue{Kind: CVMetric, Metric: m} }

// ResolveUpper evaluates the constraint as an upper bound: None -> +Inf.
func (cv ConstraintValue) ResolveUpper(nr metric.NetworkReader, sr metric.StateReader) (float64, error) {
	switch cv.Kind {
	case CVNone:
		return math.Inf(1), nil
	case CVScalar:
		return cv.Scalar, nil
	default:
		return cv.Metric.Value(nr, sr)
	}
}

// ResolveLower evaluates the constraint as a lower bound: None -> -Inf.
func (cv ConstraintValue) ResolveLower(nr metric.NetworkReader, sr metric.StateReader) (float64, error) {
	switch cv.Kind {
	case CVNone:
		return math.Inf(-1), nil
	case CVScalar:
		return cv.Scalar, nil
	default:
		return cv.Metric.Value(nr, sr)
	}
}

// InitialVolumeKind distinguishes absolute vs. proportional initial storage.
type InitialVolumeKind int

const (
	IVAbsolute InitialVolumeKind = iota
	IVProportional
)

// InitialVolume specifies a storage node's or virtual storage's starting
// volume, either as an absolute value or as a proportion of max_volume.
type InitialVolume struct {
	Kind  InitialVolumeKind
	Value float64
}

// Absolute builds an InitialVolume holding a fixed starting volume.
func Absolute(v float64) InitialVolume { return InitialVolume{Kind: IVAbsolute, Value: v} }

// Proportional builds an InitialVolume holding a proportion (0..1) of
// max_volume.
func Proportional(v float64) InitialVolume { return InitialVolume{Kind: IVProportional, Value: v} }

// Resolve returns the absolute starting volume given the node's max_volume.
func (iv InitialVolume) Resolve(maxVolume float64) float64 {
	if iv.Kind == IVProportional {
		return iv.Value * maxVolume
	}
	return iv.Value
}
