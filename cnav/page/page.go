// The page package handles one CNAV page - a fixed-length unit of 300
// bits carrying a type tag and a payload of encoded parameters.  A
// page arrives from the demodulator already stripped of any transport
// framing.  Bit 0 is the first bit transmitted and, by the convention
// used throughout this software, the most significant bit of every
// field.
package page

import (
	"errors"
	"fmt"

	"github.com/goblimey/go-cnav/cnav/utils"

	"github.com/goblimey/go-crc24q/crc24q"
)

// Page is an immutable 300-bit page.  Create one with FromBytes or
// FromBitString and read it with Bit, Uint64 or Int64.
type Page struct {
	// buff holds the page bits, padded at the end to a whole number
	// of bytes.  It's copied on construction and never written again.
	buff [utils.PageLengthBytes]byte
}

// FromBytes creates a Page from a byte slice.  The slice must be
// exactly long enough to hold the page - 38 bytes, the last four bits
// being padding.  A slice of any other length is a programming error
// upstream and produces an error here rather than a truncated page.
func FromBytes(b []byte) (*Page, error) {
	if len(b) != utils.PageLengthBytes {
		em := fmt.Sprintf("overrun - expected %d bytes in a page, got %d",
			utils.PageLengthBytes, len(b))
		return nil, errors.New(em)
	}

	var page Page
	copy(page.buff[:], b)
	// Force the pad bits clear so that pages compare predictably.
	page.buff[utils.PageLengthBytes-1] &^= 0x0f
	return &page, nil
}

// FromBitString creates a Page from a string of "0" and "1" runes,
// most significant bit first, for example "10001011..." .  The string
// must be exactly 300 characters.  This form is convenient for tests -
// the interface specification presents pages this way.
func FromBitString(s string) (*Page, error) {
	if len(s) != utils.PageLengthBits {
		em := fmt.Sprintf("overrun - expected %d bits in a page, got %d",
			utils.PageLengthBits, len(s))
		return nil, errors.New(em)
	}

	var page Page
	for i, c := range s {
		switch c {
		case '1':
			utils.SetBits(page.buff[:], uint(i), 1, 1)
		case '0':
			// Already zero.
		default:
			em := fmt.Sprintf("bit %d of page is %q, want 0 or 1", i, c)
			return nil, errors.New(em)
		}
	}
	return &page, nil
}

// Bit returns bit pos of the page, 0 or 1.
func (page *Page) Bit(pos uint) uint {
	return uint(utils.GetBitsAsUint64(page.buff[:], pos, 1))
}

// Uint64 extracts width bits starting at bit pos as an unsigned value.
func (page *Page) Uint64(pos, width uint) uint64 {
	return utils.GetBitsAsUint64(page.buff[:], pos, width)
}

// Int64 extracts width bits starting at bit pos as a two's-complement
// signed value.
func (page *Page) Int64(pos, width uint) int64 {
	return utils.GetBitsAsInt64(page.buff[:], pos, width)
}

// Bytes returns a copy of the page as a byte slice, the last four
// bits being padding.  FromBytes on the result reproduces the page.
func (page *Page) Bytes() []byte {
	b := make([]byte, utils.PageLengthBytes)
	copy(b, page.buff[:])
	return b
}

// CheckCRC verifies the 24-bit CRC in the last 24 bit positions of
// the page against the first 276 bits.  The CRC is the CRC-24Q used by
// RTCM3, computed over the data bits left-padded with four zero bits
// to fill whole bytes.  (Leading zero bits don't disturb a CRC-24Q
// remainder, so the padded form gives the same value as the raw bit
// string.)  The decoder doesn't insist on calling this - an upstream
// demodulator has usually checked the CRC already.
func (page *Page) CheckCRC() bool {
	// Gather the 276 data bits right-aligned in 35 bytes.
	padded := make([]byte, (utils.DataLengthBits+4)/8)
	for i := uint(0); i < utils.DataLengthBits; i++ {
		utils.SetBits(padded, i+4, 1, uint64(page.Bit(i)))
	}

	wantCRC := uint32(page.Uint64(utils.DataLengthBits, utils.CRCLengthBits))
	return crc24q.Hash(padded) == wantCRC
}

// String returns the page as a bit string, 50 bits per line.
func (page *Page) String() string {
	display := ""
	for i := uint(0); i < utils.PageLengthBits; i++ {
		if page.Bit(i) == 1 {
			display += "1"
		} else {
			display += "0"
		}
		if (i+1)%50 == 0 {
			display += "\n"
		}
	}
	return display
}
