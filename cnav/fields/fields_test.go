package fields

import (
	"strings"
	"testing"

	"github.com/goblimey/go-cnav/cnav/page"
	"github.com/goblimey/go-cnav/cnav/utils"
)

// makePage builds a page directly from raw bytes, padding with zeros.
func makePage(t *testing.T, leading []byte) *page.Page {
	t.Helper()
	buff := make([]byte, utils.PageLengthBytes)
	copy(buff, leading)
	p, err := page.FromBytes(buff)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// TestCheckAllLayouts runs the bounds check over every layout in the
// protocol tables.  A slice outside the page or a field too wide for
// the accumulator is a programming error and this test is where it
// fails.
func TestCheckAllLayouts(t *testing.T) {
	for name, layout := range AllLayouts {
		if err := layout.Check(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

// TestCheckBadLayouts checks that malformed layouts are rejected.
func TestCheckBadLayouts(t *testing.T) {
	var testData = []struct {
		description string
		layout      Layout
		wantError   string
	}{
		{"empty", Layout{}, "empty layout"},
		{"zero width", Layout{{0, 0}}, "zero width"},
		{"past the end", Layout{{290, 11}}, "runs past bit 300"},
		{"too wide", Layout{{0, 40}, {100, 40}}, "more than 64"},
	}

	for _, td := range testData {
		err := td.layout.Check()
		if err == nil {
			t.Errorf("%s: expected an error", td.description)
			continue
		}
		if !strings.Contains(err.Error(), td.wantError) {
			t.Errorf("%s: want error containing %q got %q",
				td.description, td.wantError, err.Error())
		}
	}
}

// TestReadUnsigned checks extraction through single and split layouts.
func TestReadUnsigned(t *testing.T) {
	// 1010 1011 1100 1101 1110 1111
	p := makePage(t, []byte{0xab, 0xcd, 0xef})

	var testData = []struct {
		description string
		layout      Layout
		want        uint64
	}{
		{"one slice", Layout{{0, 8}}, 0xab},
		{"one slice offset", Layout{{4, 8}}, 0xbc},
		{"two slices", Layout{{0, 4}, {8, 4}}, 0xac},
		{"three slices", Layout{{0, 8}, {8, 4}, {16, 4}}, 0xabce},
		{"slices out of page order", Layout{{16, 8}, {0, 8}}, 0xefab},
	}

	for _, td := range testData {
		got := ReadUnsigned(p, td.layout)
		if got != td.want {
			t.Errorf("%s: want 0x%x got 0x%x", td.description, td.want, got)
		}
	}
}

// TestReadSigned checks two's-complement extraction, including sign
// extension across a split layout: the sign comes from the first bit
// of the FIRST slice, however the rest of the field is scattered.
func TestReadSigned(t *testing.T) {
	p := makePage(t, []byte{0xab, 0xcd, 0xef}) // 1010 1011 1100 1101 ...

	var testData = []struct {
		description string
		layout      Layout
		want        int64
	}{
		// 1010 1011 as 8-bit two's complement.
		{"one slice negative", Layout{{0, 8}}, -85},
		// 0101 0111 - starts at bit 1, positive.
		{"one slice positive", Layout{{1, 8}}, 0x57},
		// Slices 1010 and 1100 concatenated: 1010 1100 = -84.
		{"split negative", Layout{{0, 4}, {8, 4}}, -84},
		// Slices 0101 (from bit 1) and 1100: 0101 1100 = 92.
		{"split positive", Layout{{1, 4}, {8, 4}}, 92},
	}

	for _, td := range testData {
		got := ReadSigned(p, td.layout)
		if got != td.want {
			t.Errorf("%s: want %d got %d", td.description, td.want, got)
		}
	}
}

// TestReadSignedExtremes pins the sign extension contract: all ones is
// -1 at any width, top bit alone is the minimum value for the width.
func TestReadSignedExtremes(t *testing.T) {
	allOnes := makePage(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff})
	msbOnly := makePage(t, []byte{0x80, 0x00, 0x00, 0x00, 0x00})

	widths := []uint{2, 8, 13, 17, 26, 33}
	for _, w := range widths {
		layout := Layout{{0, w}}
		if got := ReadSigned(allOnes, layout); got != -1 {
			t.Errorf("all ones width %d: want -1 got %d", w, got)
		}
		want := -(int64(1) << (w - 1))
		if got := ReadSigned(msbOnly, layout); got != want {
			t.Errorf("msb only width %d: want %d got %d", w, want, got)
		}
	}
}

// TestReadBool checks the single-bit reader.
func TestReadBool(t *testing.T) {
	p := makePage(t, []byte{0x80})
	if !ReadBool(p, Layout{{0, 1}}) {
		t.Error("bit 0 is set, want true")
	}
	if ReadBool(p, Layout{{1, 1}}) {
		t.Error("bit 1 is clear, want false")
	}
}

// TestRoundTrip checks that writing an arbitrary value through a
// layout and reading it back reproduces the value - extraction has no
// hidden state.
func TestRoundTrip(t *testing.T) {
	layout := Layout{{3, 9}, {40, 8}, {120, 16}}

	values := []uint64{0, 1, 0xabcd, 0x1ffffffff & ((1 << 33) - 1)}
	for _, v := range values {
		v &= (1 << layout.Bits()) - 1
		buff := make([]byte, utils.PageLengthBytes)
		remaining := layout.Bits()
		for _, slice := range layout {
			remaining -= slice.Width
			utils.SetBits(buff, slice.Start, slice.Width, v>>remaining)
		}
		p, err := page.FromBytes(buff)
		if err != nil {
			t.Fatal(err)
		}
		if got := ReadUnsigned(p, layout); got != v {
			t.Errorf("want 0x%x got 0x%x", v, got)
		}
	}
}

// TestScaled checks that the scaled readers apply the LSB weight and
// nothing else.
func TestScaled(t *testing.T) {
	p := makePage(t, []byte{0xff, 0x00}) // first 8 bits all ones

	got := ReadScaled(p, Layout{{0, 8}}, 0.5)
	if got != -0.5 {
		t.Errorf("want -0.5 got %f", got)
	}

	gotU := ReadScaledUnsigned(p, Layout{{0, 8}}, 0.5)
	if gotU != 127.5 {
		t.Errorf("want 127.5 got %f", gotU)
	}
}
