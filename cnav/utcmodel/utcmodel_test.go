package utcmodel

import (
	"testing"

	"github.com/kylelemons/godebug/diff"
)

// TestString checks the readable display of a UTC model.
func TestString(t *testing.T) {
	const want = `A0 -9.300000000e-10 s, A1 1.000000000e-14 s/s, A2 0.000000000e+00 s/s²
tot 1600, WNot 2100
deltaTLS 18 s, WNlsf 2185, DN 7, deltaTLSF 18 s
`

	utc := UtcModel{
		A0:        -9.3e-10,
		A1:        1e-14,
		DeltaTLS:  18,
		Tot:       1600,
		WNot:      2100,
		WNlsf:     2185,
		DN:        7,
		DeltaTLSF: 18,
		Valid:     true,
	}

	got := utc.String()

	if want != got {
		t.Errorf("%s", diff.Diff(want, got))
	}
}
