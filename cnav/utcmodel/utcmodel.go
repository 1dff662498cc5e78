// The utcmodel package holds a decoded UTC correction model from a
// CNAV type 33 page: the GPS-to-UTC offset polynomial and the leap
// second schedule.
package utcmodel

import "fmt"

// UtcModel is a decoded UTC model.
type UtcModel struct {
	// A0, A1, A2 are the offset polynomial coefficients: seconds,
	// s/s and s/s².
	A0 float64
	A1 float64
	A2 float64

	// DeltaTLS is the current leap second count, seconds.
	DeltaTLS float64

	// Tot is the reference time of week of the polynomial, seconds,
	// and WNot its reference week number.
	Tot  float64
	WNot int

	// WNlsf and DN give the week and day at the end of which the next
	// leap second change takes effect; DeltaTLSF is the count after it.
	WNlsf     int
	DN        int
	DeltaTLSF float64

	// Valid is set when the model is retrieved after a correctly
	// decoded page.
	Valid bool
}

// String returns a readable version of the model.
func (utc *UtcModel) String() string {
	display := fmt.Sprintf("A0 %.9e s, A1 %.9e s/s, A2 %.9e s/s²\n",
		utc.A0, utc.A1, utc.A2)
	display += fmt.Sprintf("tot %.0f, WNot %d\n", utc.Tot, utc.WNot)
	display += fmt.Sprintf("deltaTLS %.0f s, WNlsf %d, DN %d, deltaTLSF %.0f s\n",
		utc.DeltaTLS, utc.WNlsf, utc.DN, utc.DeltaTLSF)
	return display
}
