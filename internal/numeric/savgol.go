package numeric

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultWindow    = 11
	DefaultPolyOrder = 3
)

// SavGol is a Savitzky-Golay smoother: each output sample is the value at that
// position of a least-squares polynomial fitted over a sliding window.
//
// Edges are handled by fitting one polynomial to the first (last) full window
// and evaluating it at the leading (trailing) half-window positions.
type SavGol struct {
	window int
	order  int
	// proj is the window x window hat matrix A (AᵀA)⁻¹ Aᵀ of the centred
	// Vandermonde matrix A; row r gives the fitted value at window position r.
	proj *mat.Dense
}

func NewSavGol(window, order int) (*SavGol, error) {
	if err := ValidateSavGol(window, order); err != nil {
		return nil, err
	}
	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		t := float64(i - half)
		p := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, p)
			p *= t
		}
	}
	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return nil, fmt.Errorf("savgol normal equations: %w", err)
	}
	var tmp mat.Dense
	tmp.Mul(a, &inv)
	proj := mat.NewDense(window, window, nil)
	proj.Mul(&tmp, a.T())
	return &SavGol{window: window, order: order, proj: proj}, nil
}

// ValidateSavGol checks that the window is odd and longer than the polynomial order.
func ValidateSavGol(window, order int) error {
	if order < 0 {
		return fmt.Errorf("polynomial order must be >= 0, got %d", order)
	}
	if window < 1 || window%2 == 0 {
		return fmt.Errorf("window length must be a positive odd number, got %d", window)
	}
	if window <= order {
		return fmt.Errorf("window length %d must be greater than polynomial order %d", window, order)
	}
	return nil
}

func (s *SavGol) Window() int { return s.window }

func (s *SavGol) Order() int { return s.order }

// Apply returns a smoothed copy of y. When y is shorter than the window the
// copy is returned unsmoothed and ok is false.
func (s *SavGol) Apply(y []float64) (out []float64, ok bool) {
	n := len(y)
	out = make([]float64, n)
	if n < s.window {
		copy(out, y)
		return out, false
	}
	w := s.window
	half := w / 2

	for i := half; i < n-half; i++ {
		out[i] = s.fit(half, y[i-half:i-half+w])
	}
	for r := 0; r < half; r++ {
		out[r] = s.fit(r, y[:w])
	}
	for r := half + 1; r < w; r++ {
		out[n-w+r] = s.fit(r, y[n-w:])
	}
	return out, true
}

func (s *SavGol) fit(row int, window []float64) float64 {
	sum := 0.0
	for k, v := range window {
		sum += s.proj.At(row, k) * v
	}
	return sum
}
