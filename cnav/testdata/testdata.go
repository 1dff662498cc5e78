// The testdata package builds CNAV pages for unit tests.  A real page
// comes out of a demodulator; here we assemble one field by field and
// seal it with a valid CRC.
package testdata

import (
	"github.com/goblimey/go-cnav/cnav/fields"
	"github.com/goblimey/go-cnav/cnav/page"
	"github.com/goblimey/go-cnav/cnav/utils"

	"github.com/goblimey/go-crc24q/crc24q"
)

// Preamble is the 8-bit sync pattern at the start of every page.
const Preamble = 0x8b

// Builder assembles one page.  Set the fields and then call Seal to
// get a Page with a correct CRC.
type Builder struct {
	buff [utils.PageLengthBytes]byte
}

// NewBuilder starts a page with the common header fields: the
// preamble, PRN, message type, raw time of week count and alert flag.
func NewBuilder(prn, messageType, towCount uint, alert bool) *Builder {
	var builder Builder
	builder.Set(fields.Preamble, Preamble)
	builder.Set(fields.PRN, uint64(prn))
	builder.Set(fields.MsgType, uint64(messageType))
	builder.Set(fields.Tow, uint64(towCount))
	if alert {
		builder.Set(fields.AlertFlag, 1)
	}
	return &builder
}

// Set writes the bottom bits of value into the field described by the
// layout, most significant slice first.  For a signed field, pass the
// value's two's-complement form: Set(layout, uint64(raw)) works for
// negative raw because the layout masks off the excess high bits.
func (builder *Builder) Set(layout fields.Layout, value uint64) *Builder {
	width := layout.Bits()
	if width < 64 {
		value &= (uint64(1) << width) - 1
	}
	remaining := width
	for _, slice := range layout {
		remaining -= slice.Width
		chunk := value >> remaining
		utils.SetBits(builder.buff[:], slice.Start, slice.Width, chunk)
	}
	return builder
}

// SetSigned writes a signed value into the field.
func (builder *Builder) SetSigned(layout fields.Layout, value int64) *Builder {
	return builder.Set(layout, uint64(value))
}

// Seal computes the CRC over the data bits, stores it in the last 24
// bits and returns the finished page.
func (builder *Builder) Seal() *page.Page {
	// The CRC is computed over the 276 data bits left-padded with
	// four zero bits to fill whole bytes, matching Page.CheckCRC.
	padded := make([]byte, (utils.DataLengthBits+4)/8)
	for i := uint(0); i < utils.DataLengthBits; i++ {
		bit := utils.GetBitsAsUint64(builder.buff[:], i, 1)
		utils.SetBits(padded, i+4, 1, bit)
	}
	crc := crc24q.Hash(padded)
	utils.SetBits(builder.buff[:], utils.DataLengthBits, utils.CRCLengthBits,
		uint64(crc))

	sealed, err := page.FromBytes(builder.buff[:])
	if err != nil {
		// The buffer is always the right length, so this can't happen.
		panic(err)
	}
	return sealed
}
