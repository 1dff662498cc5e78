// The fields package defines the field layouts of the CNAV protocol
// and the functions that extract typed values from a page using them.
//
// A layout is a list of bit slices.  Most fields occupy one contiguous
// run of bits but the protocol is free to route a single logical
// parameter across several runs, so a layout is a list, concatenated
// most significant slice first.  Offsets are 0-based from the first
// transmitted bit of the page.  (The interface specification counts
// bits from 1; subtract one when checking a layout against it.)
//
// Scaling is always the caller's job: ReadUnsigned and ReadSigned
// return raw field values and the caller multiplies by the field's
// LSB weight to get a physical value.
package fields

import (
	"fmt"

	"github.com/goblimey/go-cnav/cnav/page"
	"github.com/goblimey/go-cnav/cnav/utils"
)

// Slice is one contiguous run of bits within a page.
type Slice struct {
	// Start is the position of the most significant bit of the run.
	Start uint
	// Width is the number of bits in the run.
	Width uint
}

// Layout describes where a logical field's bits live inside a page.
type Layout []Slice

// Bits returns the total width of the field in bits.
func (layout Layout) Bits() uint {
	var total uint
	for _, slice := range layout {
		total += slice.Width
	}
	return total
}

// Check returns an error if the layout doesn't fit a page - an empty
// layout, a zero-width slice, a slice past the end of the page or a
// total width too big for the 64-bit accumulator.  A bad layout is a
// programming error: Check exists so that the layout tables can be
// verified by a test, not so that extraction can fail at run time.
func (layout Layout) Check() error {
	if len(layout) == 0 {
		return fmt.Errorf("empty layout")
	}
	var total uint
	for i, slice := range layout {
		if slice.Width == 0 {
			return fmt.Errorf("slice %d has zero width", i)
		}
		if slice.Start+slice.Width > utils.PageLengthBits {
			return fmt.Errorf("slice %d (start %d width %d) runs past bit %d",
				i, slice.Start, slice.Width, utils.PageLengthBits)
		}
		total += slice.Width
	}
	if total > 64 {
		return fmt.Errorf("layout is %d bits, more than 64", total)
	}
	return nil
}

// ReadUnsigned concatenates the bits named by the layout, most
// significant slice first, into an unsigned value.
func ReadUnsigned(p *page.Page, layout Layout) uint64 {
	var value uint64
	for _, slice := range layout {
		value = (value << slice.Width) | p.Uint64(slice.Start, slice.Width)
	}
	return value
}

// ReadSigned concatenates the bits named by the layout and interprets
// the result as a two's-complement value of the layout's total width.
// If the most significant bit of the first slice is set, the
// accumulator is pre-seeded with all ones, so shifting and inserting
// each slice keeps the value correctly sign extended however many
// slices the field is split across.
func ReadSigned(p *page.Page, layout Layout) int64 {
	var value uint64
	if p.Bit(layout[0].Start) == 1 {
		value = ^uint64(0)
	}
	for _, slice := range layout {
		value = (value << slice.Width) | p.Uint64(slice.Start, slice.Width)
	}
	return int64(value)
}

// ReadBool tests the single bit named by the first slice of the layout.
func ReadBool(p *page.Page, layout Layout) bool {
	return p.Bit(layout[0].Start) == 1
}

// ReadScaled extracts a signed value and multiplies it by the field's
// LSB weight, giving the physical value.
func ReadScaled(p *page.Page, layout Layout, lsb float64) float64 {
	return float64(ReadSigned(p, layout)) * lsb
}

// ReadScaledUnsigned extracts an unsigned value and multiplies it by
// the field's LSB weight.
func ReadScaledUnsigned(p *page.Page, layout Layout, lsb float64) float64 {
	return float64(ReadUnsigned(p, layout)) * lsb
}
