// The iono package holds a decoded ionospheric correction model - the
// eight Klobuchar coefficients from a CNAV type 30 page, in physical
// units.
package iono

import "fmt"

// Iono is a decoded ionospheric model.
type Iono struct {
	// Alpha0-3 are the amplitude coefficients of the vertical delay
	// model: seconds, s/semi-circle, s/semi-circle² and
	// s/semi-circle³.
	Alpha0 float64
	Alpha1 float64
	Alpha2 float64
	Alpha3 float64

	// Beta0-3 are the period coefficients: seconds,
	// s/semi-circle and so on.
	Beta0 float64
	Beta1 float64
	Beta2 float64
	Beta3 float64

	// Valid is true once the model has been delivered by a correctly
	// decoded page.
	Valid bool
}

// String returns a readable version of the model.
func (iono *Iono) String() string {
	display := fmt.Sprintf("alpha (%.6e, %.6e, %.6e, %.6e)\n",
		iono.Alpha0, iono.Alpha1, iono.Alpha2, iono.Alpha3)
	display += fmt.Sprintf("beta (%.6e, %.6e, %.6e, %.6e)\n",
		iono.Beta0, iono.Beta1, iono.Beta2, iono.Beta3)
	return display
}
