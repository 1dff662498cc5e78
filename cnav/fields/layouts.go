package fields

import "github.com/goblimey/go-cnav/cnav/utils"

// Field layouts and scale factors for the CNAV message types that the
// decoder interprets, following IS-GPS-200 Appendix III.  Offsets are
// 0-based from the page MSB.  Scale factors named TwoN9 and so on are
// two to the power of minus 9 etc; angular fields are transmitted in
// semi-circles and carry the semi-circle conversion in their weight.

// Scale factors.
const (
	TwoP4  = 1 << 4
	TwoP11 = 1 << 11
	TwoP14 = 1 << 14
	TwoP16 = 1 << 16

	TwoN8  = 1.0 / (1 << 8)
	TwoN9  = 1.0 / (1 << 9)
	TwoN21 = 1.0 / (1 << 21)
	TwoN24 = 1.0 / (1 << 24)
	TwoN27 = 1.0 / (1 << 27)
	TwoN30 = 1.0 / (1 << 30)
	TwoN32 = 1.0 / (1 << 32)
	TwoN34 = 1.0 / (1 << 34)
	TwoN35 = 1.0 / (1 << 35)
	TwoN44 = 1.0 / (1 << 44)
	TwoN48 = 1.0 / (1 << 48)
	TwoN51 = 1.0 / (1 << 51)
	TwoN57 = 1.0 / (1 << 57)
	TwoN60 = 1.0 / (1 << 60)
	TwoN68 = 1.0 / (1 << 68)
)

// Fields common to every page.  The 8-bit preamble comes first; the
// decoder never reads it (the demodulator synchronised on it) but the
// layout documents it.
var (
	Preamble  = Layout{{0, 8}}
	PRN       = Layout{{8, 6}}
	MsgType   = Layout{{14, 6}}
	Tow       = Layout{{20, 17}} // seconds, weight utils.TowLSB
	AlertFlag = Layout{{37, 1}}
)

// Message type 10 - ephemeris 1/2.
var (
	WN         = Layout{{38, 13}}
	Health     = Layout{{51, 3}}
	Top1       = Layout{{54, 11}} // weight utils.EpochLSB
	URA        = Layout{{65, 5}}
	Toe1       = Layout{{70, 11}} // weight utils.EpochLSB
	DeltaA     = Layout{{81, 26}} // relative to A ref = 26,559,710 m
	ADot       = Layout{{107, 25}}
	DeltaN0    = Layout{{132, 17}}
	DeltaN0Dot = Layout{{149, 23}}
	M0         = Layout{{172, 33}}
	E          = Layout{{205, 33}}
	Omega      = Layout{{238, 33}}
	Integrity  = Layout{{271, 1}}
	L2CPhasing = Layout{{272, 1}}
)

const (
	DeltaALSB     = TwoN9
	ADotLSB       = TwoN21
	DeltaN0LSB    = TwoN44 * utils.Pi // semi-circles to radians
	DeltaN0DotLSB = TwoN57 * utils.Pi
	M0LSB         = TwoN32 * utils.Pi
	ELSB          = TwoN34
	OmegaLSB      = TwoN32 * utils.Pi
)

// Message type 11 - ephemeris 2/2.
var (
	Toe2          = Layout{{38, 11}} // weight utils.EpochLSB
	Omega0        = Layout{{49, 33}}
	I0            = Layout{{82, 33}}
	DeltaOmegaDot = Layout{{115, 17}} // relative to -2.6e-9 semi-circles/s
	I0Dot         = Layout{{132, 15}}
	Cis           = Layout{{147, 16}}
	Cic           = Layout{{163, 16}}
	Crs           = Layout{{179, 24}}
	Crc           = Layout{{203, 24}}
	Cus           = Layout{{227, 21}}
	Cuc           = Layout{{248, 21}}
)

const (
	Omega0LSB        = TwoN32 * utils.Pi
	I0LSB            = TwoN32 * utils.Pi
	DeltaOmegaDotLSB = TwoN44 * utils.Pi
	I0DotLSB         = TwoN44 * utils.Pi
	CisLSB           = TwoN30
	CicLSB           = TwoN30
	CrsLSB           = TwoN8
	CrcLSB           = TwoN8
	CusLSB           = TwoN30
	CucLSB           = TwoN30
)

// Message type 30 - clock, iono and group delay.
var (
	// Top reappears at bit 38 but the type 30 handler doesn't read
	// it - the record's Top is kept up to date by types 10 and 33.
	Top2    = Layout{{38, 11}} // weight utils.EpochLSB
	URANED0 = Layout{{49, 5}}
	URANED1 = Layout{{54, 3}}
	URANED2 = Layout{{57, 3}}
	Toc     = Layout{{60, 11}} // weight utils.EpochLSB
	Af0     = Layout{{71, 26}}
	Af1     = Layout{{97, 20}}
	Af2     = Layout{{117, 10}}
	TGD     = Layout{{127, 13}}
	ISCL1CA = Layout{{140, 13}}
	ISCL2C  = Layout{{153, 13}}
	ISCL5I  = Layout{{166, 13}}
	ISCL5Q  = Layout{{179, 13}}
	Alpha0  = Layout{{192, 8}}
	Alpha1  = Layout{{200, 8}}
	Alpha2  = Layout{{208, 8}}
	Alpha3  = Layout{{216, 8}}
	Beta0   = Layout{{224, 8}}
	Beta1   = Layout{{232, 8}}
	Beta2   = Layout{{240, 8}}
	Beta3   = Layout{{248, 8}}
)

const (
	Af0LSB    = TwoN35
	Af1LSB    = TwoN48
	Af2LSB    = TwoN60
	TGDLSB    = TwoN35
	ISCLSB    = TwoN35
	Alpha0LSB = TwoN30
	Alpha1LSB = TwoN27
	Alpha2LSB = TwoN24
	Alpha3LSB = TwoN24
	Beta0LSB  = TwoP11
	Beta1LSB  = TwoP14
	Beta2LSB  = TwoP16
	Beta3LSB  = TwoP16
)

// Message type 33 - clock and UTC.  The clock fields Top1, Toc and
// Af0..Af2 reappear at the same offsets as in their home types.
var (
	A0        = Layout{{127, 16}}
	A1        = Layout{{143, 13}}
	A2        = Layout{{156, 7}}
	DeltaTLS  = Layout{{163, 8}}
	Tot       = Layout{{171, 16}} // weight TwoP4
	WNot      = Layout{{187, 13}}
	WNlsf     = Layout{{200, 13}}
	DN        = Layout{{213, 4}}
	DeltaTLSF = Layout{{217, 8}}
)

const (
	A0LSB  = TwoN35
	A1LSB  = TwoN51
	A2LSB  = TwoN68
	TotLSB = float64(TwoP4)
)

// AllLayouts names every layout above so that a single table test can
// run Check over the lot.  A malformed layout is caught there, at
// build time, never during decoding.
var AllLayouts = map[string]Layout{
	"Preamble": Preamble, "PRN": PRN, "MsgType": MsgType, "Tow": Tow,
	"AlertFlag": AlertFlag,
	"WN":        WN, "Health": Health, "Top1": Top1, "URA": URA, "Toe1": Toe1,
	"DeltaA": DeltaA, "ADot": ADot, "DeltaN0": DeltaN0,
	"DeltaN0Dot": DeltaN0Dot, "M0": M0, "E": E, "Omega": Omega,
	"Integrity": Integrity, "L2CPhasing": L2CPhasing,
	"Toe2": Toe2, "Omega0": Omega0, "I0": I0,
	"DeltaOmegaDot": DeltaOmegaDot, "I0Dot": I0Dot,
	"Cis": Cis, "Cic": Cic, "Crs": Crs, "Crc": Crc, "Cus": Cus, "Cuc": Cuc,
	"Top2": Top2, "URANED0": URANED0, "URANED1": URANED1, "URANED2": URANED2,
	"Toc": Toc, "Af0": Af0, "Af1": Af1, "Af2": Af2,
	"TGD": TGD, "ISCL1CA": ISCL1CA, "ISCL2C": ISCL2C,
	"ISCL5I": ISCL5I, "ISCL5Q": ISCL5Q,
	"Alpha0": Alpha0, "Alpha1": Alpha1, "Alpha2": Alpha2, "Alpha3": Alpha3,
	"Beta0": Beta0, "Beta1": Beta1, "Beta2": Beta2, "Beta3": Beta3,
	"A0": A0, "A1": A1, "A2": A2, "DeltaTLS": DeltaTLS, "Tot": Tot,
	"WNot": WNot, "WNlsf": WNlsf, "DN": DN, "DeltaTLSF": DeltaTLSF,
}
