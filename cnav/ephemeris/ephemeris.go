// The ephemeris package holds a decoded CNAV ephemeris - the orbital
// and clock parameters for one satellite, assembled from a type 10
// page, a type 11 page and the clock fields of a type 30 or 33 page.
// All values are in physical units (seconds, radians, metres or
// dimensionless) - the decoder applies the scale factors before
// writing them here.
package ephemeris

import "fmt"

// Ephemeris is a decoded ephemeris record.
type Ephemeris struct {
	// SatellitePRN identifies the satellite, 1-63.
	SatellitePRN uint

	// Tow is the time of week from the most recent page, seconds.
	Tow float64

	// AlertFlag is raised when the satellite URA may be worse than
	// indicated - use at own risk.
	AlertFlag bool

	// WeekNumber is the GPS week number of the data set.
	WeekNumber int

	// SignalHealth is the 3-bit L1/L2/L5 signal health.
	SignalHealth uint

	// Top is the data predict time of week, seconds.
	Top float64

	// URA0, URA1, URA2 are the elevation-dependent user range
	// accuracy indices (URA and URA NED 0-2), dimensionless.
	URA0 float64
	URA1 float64
	URA2 float64

	// Toe1 and Toe2 are the time of ephemeris carried by the type 10
	// and type 11 pages, seconds.  The two halves belong to the same
	// data set only when these agree.
	Toe1 float64
	Toe2 float64

	// DeltaA is the semi-major axis difference from the reference
	// 26,559,710 m at the reference time, metres.
	DeltaA float64
	// ADot is the rate of change of the semi-major axis, m/s.
	ADot float64

	// DeltaN0 is the mean motion difference from the computed value,
	// radians/s, and DeltaN0Dot its rate, radians/s².
	DeltaN0    float64
	DeltaN0Dot float64

	// M0 is the mean anomaly at reference time, radians.
	M0 float64

	// Eccentricity is dimensionless.
	Eccentricity float64

	// Omega is the argument of perigee, radians.
	Omega float64

	// Omega0 is the longitude of the ascending node at weekly epoch,
	// radians, and DeltaOmegaDot the rate of right ascension
	// difference from the reference -2.6e-9 semi-circles/s, radians/s.
	Omega0        float64
	DeltaOmegaDot float64

	// I0 is the inclination at reference time, radians, and I0Dot its
	// rate, radians/s.
	I0    float64
	I0Dot float64

	// Harmonic correction amplitudes: Cis/Cic radians, Crs/Crc
	// metres, Cus/Cuc radians.
	Cis float64
	Cic float64
	Crs float64
	Crc float64
	Cus float64
	Cuc float64

	// Toc is the clock data reference time of week, seconds.
	Toc float64

	// Af0, Af1, Af2 are the clock bias (s), drift (s/s) and drift
	// rate (s/s²).
	Af0 float64
	Af1 float64
	Af2 float64

	// TGD is the L1/L2 group delay differential, seconds.  Zero when
	// the satellite broadcast the reserved "not available" pattern.
	TGD float64

	// Inter-signal corrections, seconds, zero when not available.
	ISCL1CA float64
	ISCL2C  float64
	ISCL5I  float64
	ISCL5Q  float64

	// IntegrityStatusFlag is raised when the signal integrity is
	// assured to the enhanced level.
	IntegrityStatusFlag bool

	// L2CPhasingFlag gives the relative phasing of the L2C signal.
	L2CPhasingFlag bool
}

// String returns a readable version of the ephemeris.
func (eph *Ephemeris) String() string {
	display := fmt.Sprintf("PRN %d, week %d, TOW %.0f, health %d, alert %v\n",
		eph.SatellitePRN, eph.WeekNumber, eph.Tow, eph.SignalHealth,
		eph.AlertFlag)
	display += fmt.Sprintf("Toe %.0f, Top %.0f, Toc %.0f\n",
		eph.Toe1, eph.Top, eph.Toc)
	display += fmt.Sprintf("deltaA %.6f m, aDot %.6e m/s, e %.9e\n",
		eph.DeltaA, eph.ADot, eph.Eccentricity)
	display += fmt.Sprintf("M0 %.9e, omega %.9e, omega0 %.9e rad\n",
		eph.M0, eph.Omega, eph.Omega0)
	display += fmt.Sprintf("i0 %.9e rad, i0Dot %.9e rad/s\n",
		eph.I0, eph.I0Dot)
	display += fmt.Sprintf("af0 %.9e s, af1 %.9e s/s, af2 %.9e s/s²\n",
		eph.Af0, eph.Af1, eph.Af2)
	display += fmt.Sprintf("TGD %.9e s, ISC L1C/A %.9e L2C %.9e L5I %.9e L5Q %.9e s\n",
		eph.TGD, eph.ISCL1CA, eph.ISCL2C, eph.ISCL5I, eph.ISCL5Q)
	return display
}
