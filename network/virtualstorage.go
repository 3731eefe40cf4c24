package network

// ResetKind is the closed set of virtual-storage reset policies.
type ResetKind int

const (
	ResetNever ResetKind = iota
	ResetPeriodic
	ResetAnnual
	ResetMonthly
)

// ResetPolicy determines when a virtual storage's volume is restored to its
// initial_volume.
type ResetPolicy struct {
	Kind ResetKind

	// Periodic: every Length timesteps, counted from timestep index Offset;
	// never on timestep index 0.
	Length int
	Offset int

	// Annual: every year on Month/Day.
	// Monthly: every month on Day (Month is unused).
	Month int
	Day   int
}

// VirtualStorageIdx is a stable handle into a Network's virtual-storage
// arena.
type VirtualStorageIdx int

// VirtualStorage is a pseudo-storage tied to a set of real flow-bearing
// nodes: its volume decrements each step by Σ factor·flow over its members
// and is restored to InitialVolume when Reset fires.
type VirtualStorage struct {
	Name    string
	SubName *string
	Members []int // NodeIdx
	Factors []float64

	InitialVolume    InitialVolume
	initialVolumeSet bool
	MinVolume        ConstraintValue
	MaxVolume        ConstraintValue
	Cost             ConstraintValue
	Reset            ResetPolicy
}

// Factor returns the coupling factor for member i, defaulting to 1 when no
// factors were supplied.
func (v VirtualStorage) Factor(i int) float64 {
	if v.Factors == nil {
		return 1
	}
	return v.Factors[i]
}
