// The utils package contains general-purpose functions and protocol
// constants for the CNAV software.
package utils

import (
	"log"
	"math"

	"github.com/goblimey/go-tools/dailylogger"
)

// PageLengthBits is the length of a CNAV page (one complete message)
// in bits.  Every field layout in the fields package is an offset into
// a bit string of this length, bit 0 being the first bit transmitted
// (the most significant).  A protocol variant with a different page
// width only needs to change this constant.
const PageLengthBits = 300

// PageLengthBytes is the length of the smallest byte buffer that holds
// a complete page.  The last four bits of the buffer are padding.
const PageLengthBytes = (PageLengthBits + 7) / 8

// DataLengthBits is the number of bits of a page covered by the CRC.
const DataLengthBits = PageLengthBits - CRCLengthBits

// CRCLengthBits is the length of the Cyclic Redundancy Check value at
// the end of each page.
const CRCLengthBits = 24

// CNAV message type IDs.  The upstream demodulator can deliver other
// types (12, 31, 32, 35, 37 and so on) but the decoder only interprets
// these.  Anything else is accepted and ignored.
const MessageTypeEphemeris1 = 10 // Ephemeris 1/2.
const MessageTypeEphemeris2 = 11 // Ephemeris 2/2.
const MessageTypeClockIono = 30  // Clock, iono and group delay.
const MessageTypeClockUTC = 33   // Clock and UTC.

// MaxMessageType is the largest value of the 6-bit message type field.
const MaxMessageType = 63

// StartOfPageFrame is the 8-bit preamble value that starts every CNAV
// page, binary 10001011.
const StartOfPageFrame byte = 0x8b

// NonCNAVMessage indicates a Message that doesn't contain a valid CNAV
// page.  Typically the data is garbled in transmission, or the byte
// stream contains chatter from the receiver in some other format.
const NonCNAVMessage = -1

// MessageTypeStop indicates that a message handler should stop.  This
// should only ever be used in unit tests, to stop processing loops
// that would otherwise run forever.
const MessageTypeStop = -2

// InvalidGroupDelay is the reserved value of the 13-bit group delay
// and inter-signal correction fields meaning "data not available" -
// two's complement bit string 1 0000 0000 0000.  See IS-GPS-200,
// Table 30-IV.  A field carrying this value decodes to 0.0.
const InvalidGroupDelay = -4096

// TowLSB is the scale factor of the 17-bit time of week count,
// giving a TOW in seconds.
const TowLSB = 6.0

// EpochLSB is the scale factor of the 11-bit time of ephemeris, time
// of clock and data predict time fields, giving a time in seconds.
const EpochLSB = 300.0

// Pi is the semi-circle conversion constant fixed by the interface
// specification.  Angular fields are transmitted in semi-circles and
// scaled to radians using this value, NOT math.Pi.
const Pi = 3.1415926535898

// GetBitsAsUint64 extracts len bits from a slice of bytes, starting
// at bit position pos and returns them as a uint64.  See RTKLIB's
// getbitu.
func GetBitsAsUint64(buff []byte, pos uint, len uint) uint64 {
	const u64One uint64 = 1
	var result uint64 = 0
	for i := pos; i < pos+len; i++ {
		byteNumber := i / 8
		// Work on a 64-bit copy of the byte contents.
		var byteContents uint64 = uint64(buff[byteNumber])
		var shiftBy uint = 7 - i%8
		// Shift the contents down to put the desired bit at the bottom.
		b := byteContents >> shiftBy
		// Extract the bottom bit.
		bit := b & u64One
		// Shift the result up one bit and glue in the extracted bit.
		result = (result << 1) | uint64(bit)
	}
	return result
}

// GetBitsAsInt64 extracts len bits from a slice of bytes, starting at
// bit position pos, interprets the bits as a twos-complement integer
// and returns the result as a 64-bit signed int.  See RTKLIB's getbits.
func GetBitsAsInt64(buff []byte, pos uint, len uint) int64 {
	// If the first bit is a 1, the result is negative.
	negative := GetBitsAsUint64(buff, pos, 1) == 1
	// Get the whole bit string.
	uval := GetBitsAsUint64(buff, pos, len)
	if negative {
		// Sign extend: subtract the weight of the top bit.
		var mask uint64 = 2 << (len - 2)
		weightOfTopBit := int64(uval & mask)
		weightOfLowerBits := int64(uval & ^mask)
		return (-1 * weightOfTopBit) + weightOfLowerBits
	}

	return int64(uval)
}

// SetBits writes the bottom len bits of value into the buffer starting
// at bit position pos, most significant bit first.  It's the inverse
// of GetBitsAsUint64 and is mainly useful for building test pages.
func SetBits(buff []byte, pos uint, len uint, value uint64) {
	for i := uint(0); i < len; i++ {
		bit := (value >> (len - 1 - i)) & 1
		byteNumber := (pos + i) / 8
		var shiftBy uint = 7 - (pos+i)%8
		if bit == 1 {
			buff[byteNumber] |= 1 << shiftBy
		} else {
			buff[byteNumber] &^= 1 << shiftBy
		}
	}
}

// titles gives a short description of each message type that the
// software interprets, for display.
var titles = map[int]string{
	MessageTypeEphemeris1: "ephemeris 1 of 2",
	MessageTypeEphemeris2: "ephemeris 2 of 2",
	MessageTypeClockIono:  "clock correction, group delay and ionosphere",
	MessageTypeClockUTC:   "clock correction and UTC",
	NonCNAVMessage:        "data that doesn't contain a valid page",
	MessageTypeStop:       "stop processing",
}

// GetTitle returns a short description of the given message type.
func GetTitle(messageType int) string {
	title, ok := titles[messageType]
	if !ok {
		return "message type not interpreted by this software"
	}
	return title
}

// EqualWithin return true if the given float64 values are equal
// within (precision) decimal places after rounding.  (This can fail if
// either of the numbers or the difference between them are too large.)
func EqualWithin(precision uint, f1, f2 float64) bool {

	var scaleFactor float64 = math.Pow(10, float64(precision))

	f1 = math.Round(f1 * scaleFactor)
	f2 = math.Round(f2 * scaleFactor)

	return math.Abs(f1-f2) <= 0.1
}

// GetDailyLogger gets a daily log file which can be written to as a logger
// (each line decorated with filename, date, time, etc).
func GetDailyLogger(prefix string) *log.Logger {
	dailyLog := dailylogger.New("logs", prefix+".", ".log")
	logFlags := log.LstdFlags | log.Lshortfile | log.Lmicroseconds
	return log.New(dailyLog, prefix, logFlags)
}
