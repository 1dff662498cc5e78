// The decoder package turns CNAV pages into ephemeris, ionosphere and
// UTC model records.
//
//	dec := decoder.New()
//
// creates a decoder for one satellite channel.  The driver feeds it
// pages as the demodulator produces them:
//
//	dec.DecodePage(page)
//
// DecodePage never fails on a well-formed page.  Pages of unknown type
// are accepted and ignored, so a newer satellite broadcasting message
// types this software doesn't understand does no harm.
//
// An ephemeris arrives in two halves, a type 10 page and a type 11
// page.  The halves belong together only when they carry the same time
// of ephemeris; until a matching pair has arrived the ephemeris is
// incomplete.  Consumers poll for completed records:
//
//	if dec.HasNewEphemeris() {
//	    eph := dec.Ephemeris()
//	    ...
//	}
//
// HasNewEphemeris consumes the completion signal - it returns true
// exactly once per completed pair.  Ephemeris, Iono and UtcModel just
// return the latest values and can be called at any time.  The
// has-new/get split lets a polling consumer check cheaply every cycle
// and only copy the (much larger) record when there is something new.
//
// The decoder serialises DecodePage against the has-new and get calls
// with a mutex, so one goroutine can feed pages while others poll.
// Decoders share nothing with each other: run one per channel.
package decoder

import (
	"math"
	"sync"

	"github.com/goblimey/go-cnav/cnav/ephemeris"
	"github.com/goblimey/go-cnav/cnav/fields"
	"github.com/goblimey/go-cnav/cnav/iono"
	"github.com/goblimey/go-cnav/cnav/page"
	"github.com/goblimey/go-cnav/cnav/utcmodel"
	"github.com/goblimey/go-cnav/cnav/utils"
)

// Decoder decodes the pages of one satellite channel and stores the
// assembled records.  The zero value is NOT usable - call New.
type Decoder struct {
	mu sync.Mutex

	ephemerisRecord ephemeris.Ephemeris
	ionoRecord      iono.Iono
	utcModelRecord  utcmodel.UtcModel

	// Completion flags.  The ephemeris flags mark the two halves; the
	// pair is complete when both are set and the times of ephemeris
	// agree.
	flagEphemeris1 bool
	flagEphemeris2 bool
	flagIonoValid  bool
	flagUtcValid   bool

	// channelID is the receiver channel this decoder serves.
	channelID int

	// tow is the time of week from the last decoded page, seconds.
	tow float64

	// satPos and satVel are the satellite position and velocity in
	// ECEF metres and m/s.  The decoder doesn't compute them - the
	// position engine that consumes the ephemeris writes them back
	// here so that the channel state is in one place.
	satPos [3]float64
	satVel [3]float64

	// pageCount tallies decoded pages by message type, including
	// types the decoder ignores.
	pageCount map[uint]uint

	// maxToeAge is the largest difference in seconds between the
	// times of ephemeris of a stored half and a newly decoded partner
	// before the stored half is considered stale and its flag
	// dropped.  Zero means never - a half waits indefinitely for a
	// matching partner, which is what the l2c telemetry channel of a
	// live receiver wants, because the satellite retransmits both
	// halves every 48 seconds.
	maxToeAge float64
}

// Option adjusts a new Decoder.
type Option func(*Decoder)

// WithChannelID sets the receiver channel number.
func WithChannelID(id int) Option {
	return func(d *Decoder) { d.channelID = id }
}

// WithMaxToeAge makes the decoder drop a stored ephemeris half when a
// newly decoded partner disagrees with it by more than age seconds.
// With the default (zero) a mismatched half keeps its flag and waits
// for a matching partner, however long that takes.
func WithMaxToeAge(age float64) Option {
	return func(d *Decoder) { d.maxToeAge = age }
}

// New creates a Decoder.
func New(options ...Option) *Decoder {
	d := Decoder{pageCount: make(map[uint]uint)}
	for _, option := range options {
		option(&d)
	}
	return &d
}

// Reset returns the decoder to its freshly created state, dropping
// all records, flags and tallies.  The channel ID and the staleness
// policy survive.
func (d *Decoder) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ephemerisRecord = ephemeris.Ephemeris{}
	d.ionoRecord = iono.Iono{}
	d.utcModelRecord = utcmodel.UtcModel{}
	d.flagEphemeris1 = false
	d.flagEphemeris2 = false
	d.flagIonoValid = false
	d.flagUtcValid = false
	d.tow = 0
	d.satPos = [3]float64{}
	d.satVel = [3]float64{}
	d.pageCount = make(map[uint]uint)
}

// DecodePage decodes one page, updating the stored records and
// completion flags.  It cannot fail: an unknown message type is
// counted and otherwise ignored.
func (d *Decoder) DecodePage(p *page.Page) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Fields common to all messages.
	d.ephemerisRecord.SatellitePRN = uint(fields.ReadUnsigned(p, fields.PRN))
	d.tow = fields.ReadScaledUnsigned(p, fields.Tow, utils.TowLSB)
	d.ephemerisRecord.Tow = d.tow
	d.ephemerisRecord.AlertFlag = fields.ReadBool(p, fields.AlertFlag)

	messageType := uint(fields.ReadUnsigned(p, fields.MsgType))
	d.pageCount[messageType]++

	switch messageType {
	case utils.MessageTypeEphemeris1:
		d.decodeEphemeris1(p)
	case utils.MessageTypeEphemeris2:
		d.decodeEphemeris2(p)
	case utils.MessageTypeClockIono:
		d.decodeClockIono(p)
	case utils.MessageTypeClockUTC:
		d.decodeClockUTC(p)
	default:
		// Reserved or not yet defined.  Not an error.
	}
}

// decodeEphemeris1 handles a type 10 page - the first ephemeris half.
func (d *Decoder) decodeEphemeris1(p *page.Page) {
	eph := &d.ephemerisRecord
	eph.WeekNumber = int(fields.ReadUnsigned(p, fields.WN))
	eph.SignalHealth = uint(fields.ReadUnsigned(p, fields.Health))
	eph.Top = fields.ReadScaledUnsigned(p, fields.Top1, utils.EpochLSB)
	eph.URA0 = float64(fields.ReadSigned(p, fields.URA))
	eph.Toe1 = fields.ReadScaledUnsigned(p, fields.Toe1, utils.EpochLSB)
	eph.DeltaA = fields.ReadScaled(p, fields.DeltaA, fields.DeltaALSB)
	eph.ADot = fields.ReadScaled(p, fields.ADot, fields.ADotLSB)
	eph.DeltaN0 = fields.ReadScaled(p, fields.DeltaN0, fields.DeltaN0LSB)
	eph.DeltaN0Dot = fields.ReadScaled(p, fields.DeltaN0Dot, fields.DeltaN0DotLSB)
	eph.M0 = fields.ReadScaled(p, fields.M0, fields.M0LSB)
	eph.Eccentricity = fields.ReadScaledUnsigned(p, fields.E, fields.ELSB)
	eph.Omega = fields.ReadScaled(p, fields.Omega, fields.OmegaLSB)
	eph.IntegrityStatusFlag = fields.ReadBool(p, fields.Integrity)
	eph.L2CPhasingFlag = fields.ReadBool(p, fields.L2CPhasing)

	if d.maxToeAge > 0 && d.flagEphemeris2 &&
		math.Abs(eph.Toe1-eph.Toe2) > d.maxToeAge {
		// The stored second half is from another epoch.  Drop it
		// rather than wait for a partner that will never come.
		d.flagEphemeris2 = false
	}

	d.flagEphemeris1 = true
}

// decodeEphemeris2 handles a type 11 page - the second ephemeris half.
func (d *Decoder) decodeEphemeris2(p *page.Page) {
	eph := &d.ephemerisRecord
	eph.Toe2 = fields.ReadScaledUnsigned(p, fields.Toe2, utils.EpochLSB)
	eph.Omega0 = fields.ReadScaled(p, fields.Omega0, fields.Omega0LSB)
	eph.DeltaOmegaDot = fields.ReadScaled(p, fields.DeltaOmegaDot, fields.DeltaOmegaDotLSB)
	eph.I0 = fields.ReadScaled(p, fields.I0, fields.I0LSB)
	eph.I0Dot = fields.ReadScaled(p, fields.I0Dot, fields.I0DotLSB)
	eph.Cis = fields.ReadScaled(p, fields.Cis, fields.CisLSB)
	eph.Cic = fields.ReadScaled(p, fields.Cic, fields.CicLSB)
	eph.Crs = fields.ReadScaled(p, fields.Crs, fields.CrsLSB)
	eph.Crc = fields.ReadScaled(p, fields.Crc, fields.CrcLSB)
	eph.Cus = fields.ReadScaled(p, fields.Cus, fields.CusLSB)
	eph.Cuc = fields.ReadScaled(p, fields.Cuc, fields.CucLSB)

	if d.maxToeAge > 0 && d.flagEphemeris1 &&
		math.Abs(eph.Toe1-eph.Toe2) > d.maxToeAge {
		d.flagEphemeris1 = false
	}

	d.flagEphemeris2 = true
}

// decodeClockIono handles a type 30 page - clock correction, group
// delays and the ionospheric model.
func (d *Decoder) decodeClockIono(p *page.Page) {
	eph := &d.ephemerisRecord

	// Clock.
	eph.Toc = fields.ReadScaledUnsigned(p, fields.Toc, utils.EpochLSB)
	eph.URA0 = float64(fields.ReadSigned(p, fields.URANED0))
	eph.URA1 = float64(fields.ReadUnsigned(p, fields.URANED1))
	eph.URA2 = float64(fields.ReadUnsigned(p, fields.URANED2))
	eph.Af0 = fields.ReadScaled(p, fields.Af0, fields.Af0LSB)
	eph.Af1 = fields.ReadScaled(p, fields.Af1, fields.Af1LSB)
	eph.Af2 = fields.ReadScaled(p, fields.Af2, fields.Af2LSB)

	// Group delays.  Each may carry the reserved "not available"
	// pattern, which decodes to zero.
	eph.TGD = readGroupDelay(p, fields.TGD)
	eph.ISCL1CA = readGroupDelay(p, fields.ISCL1CA)
	eph.ISCL2C = readGroupDelay(p, fields.ISCL2C)
	eph.ISCL5I = readGroupDelay(p, fields.ISCL5I)
	eph.ISCL5Q = readGroupDelay(p, fields.ISCL5Q)

	// Iono.
	ion := &d.ionoRecord
	ion.Alpha0 = fields.ReadScaled(p, fields.Alpha0, fields.Alpha0LSB)
	ion.Alpha1 = fields.ReadScaled(p, fields.Alpha1, fields.Alpha1LSB)
	ion.Alpha2 = fields.ReadScaled(p, fields.Alpha2, fields.Alpha2LSB)
	ion.Alpha3 = fields.ReadScaled(p, fields.Alpha3, fields.Alpha3LSB)
	ion.Beta0 = fields.ReadScaled(p, fields.Beta0, fields.Beta0LSB)
	ion.Beta1 = fields.ReadScaled(p, fields.Beta1, fields.Beta1LSB)
	ion.Beta2 = fields.ReadScaled(p, fields.Beta2, fields.Beta2LSB)
	ion.Beta3 = fields.ReadScaled(p, fields.Beta3, fields.Beta3LSB)
	ion.Valid = true

	d.flagIonoValid = true
}

// decodeClockUTC handles a type 33 page - clock correction and the
// UTC model.
func (d *Decoder) decodeClockUTC(p *page.Page) {
	eph := &d.ephemerisRecord
	eph.Top = fields.ReadScaledUnsigned(p, fields.Top1, utils.EpochLSB)
	eph.Toc = fields.ReadScaledUnsigned(p, fields.Toc, utils.EpochLSB)
	eph.Af0 = fields.ReadScaled(p, fields.Af0, fields.Af0LSB)
	eph.Af1 = fields.ReadScaled(p, fields.Af1, fields.Af1LSB)
	eph.Af2 = fields.ReadScaled(p, fields.Af2, fields.Af2LSB)

	utc := &d.utcModelRecord
	utc.A0 = fields.ReadScaled(p, fields.A0, fields.A0LSB)
	utc.A1 = fields.ReadScaled(p, fields.A1, fields.A1LSB)
	utc.A2 = fields.ReadScaled(p, fields.A2, fields.A2LSB)
	utc.DeltaTLS = float64(fields.ReadSigned(p, fields.DeltaTLS))
	utc.Tot = fields.ReadScaled(p, fields.Tot, fields.TotLSB)
	utc.WNot = int(fields.ReadSigned(p, fields.WNot))
	utc.WNlsf = int(fields.ReadSigned(p, fields.WNlsf))
	utc.DN = int(fields.ReadSigned(p, fields.DN))
	utc.DeltaTLSF = float64(fields.ReadSigned(p, fields.DeltaTLSF))

	d.flagUtcValid = true
}

// readGroupDelay extracts one of the 13-bit group delay fields,
// substituting zero for the reserved "not available" pattern and
// scaling the rest.
func readGroupDelay(p *page.Page, layout fields.Layout) float64 {
	raw := fields.ReadSigned(p, layout)
	if raw == utils.InvalidGroupDelay {
		return 0.0
	}
	return float64(raw) * fields.ISCLSB
}

// HasNewEphemeris reports whether a complete, internally consistent
// ephemeris has arrived since the last time it returned true.  Both
// halves must have been decoded and must carry the same time of
// ephemeris - if all the pages have the same Toe they belong to the
// same data set.  A true result consumes the signal: the half flags
// are cleared and the next call returns false until another pair
// completes.
func (d *Decoder) HasNewEphemeris() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.flagEphemeris1 && d.flagEphemeris2 {
		if d.ephemerisRecord.Toe1 == d.ephemerisRecord.Toe2 {
			d.flagEphemeris1 = false
			d.flagEphemeris2 = false
			return true
		}
	}
	return false
}

// Ephemeris returns a copy of the most recently written ephemeris.
// It can be called at any time and doesn't consume anything - check
// HasNewEphemeris first if freshness matters.
func (d *Decoder) Ephemeris() ephemeris.Ephemeris {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ephemerisRecord
}

// HasNewIono reports whether a new ionospheric model has arrived since
// the last time it returned true, consuming the signal.
func (d *Decoder) HasNewIono() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.flagIonoValid {
		d.flagIonoValid = false
		return true
	}
	return false
}

// Iono returns a copy of the most recently written ionospheric model.
func (d *Decoder) Iono() iono.Iono {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ionoRecord
}

// HasNewUtcModel reports whether a new UTC model has arrived since the
// last time it returned true, consuming the signal.
func (d *Decoder) HasNewUtcModel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.flagUtcValid {
		d.flagUtcValid = false
		return true
	}
	return false
}

// UtcModel returns a copy of the most recently written UTC model,
// marking it valid.
func (d *Decoder) UtcModel() utcmodel.UtcModel {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.utcModelRecord.Valid = true
	return d.utcModelRecord
}

// Tow returns the time of week of the last decoded page, seconds.
func (d *Decoder) Tow() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tow
}

// ChannelID returns the receiver channel this decoder serves.
func (d *Decoder) ChannelID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channelID
}

// SetChannelID changes the receiver channel this decoder serves.
func (d *Decoder) SetChannelID(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channelID = id
}

// SatelliteState returns the stored satellite position and velocity.
func (d *Decoder) SatelliteState() (pos, vel [3]float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.satPos, d.satVel
}

// SetSatelliteState stores the satellite position and velocity
// computed by the position engine from the last ephemeris.
func (d *Decoder) SetSatelliteState(pos, vel [3]float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.satPos = pos
	d.satVel = vel
}

// PageCount returns the number of pages of the given message type
// decoded so far, including types the decoder ignores.
func (d *Decoder) PageCount(messageType uint) uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pageCount[messageType]
}
