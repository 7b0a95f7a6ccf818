package model

// Direction is the operating mode of a row, derived from the sign of current.
// Keep these values stable; they are written to exported spreadsheets.
type Direction string

const (
	DirectionCharge    Direction = "charge"
	DirectionRest      Direction = "rest"
	DirectionDischarge Direction = "discharge"
)

// DefaultRestCurrent is the |current| (A) at or below which a row is treated as rest.
const DefaultRestCurrent = 0.01

func DirectionFromCurrent(currentA, restA float64) Direction {
	switch {
	case currentA > restA:
		return DirectionCharge
	case currentA < -restA:
		return DirectionDischarge
	default:
		return DirectionRest
	}
}

// Active reports whether rows in this direction take part in SOC/dPdQ groups.
func (d Direction) Active() bool {
	return d == DirectionCharge || d == DirectionDischarge
}

func (d Direction) Valid() bool {
	switch d {
	case DirectionCharge, DirectionRest, DirectionDischarge:
		return true
	}
	return false
}
