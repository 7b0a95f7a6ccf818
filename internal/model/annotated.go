package model

// AnnotatedRow is one row of analysis output: the source measurement plus the
// values derived for it. It is the primary artifact of an analysis.
type AnnotatedRow struct {
	Index int

	Measurement

	CycleID   int
	Direction Direction

	// SOC is Ah in cumulative mode and a fraction [0,1] in normalized mode.
	// Undefined for rest rows in normalized mode.
	SOC float64
	// DPDQ is dP/dX for the row's (cycle, direction) group; undefined where no
	// derivative could be formed.
	DPDQ float64
}
