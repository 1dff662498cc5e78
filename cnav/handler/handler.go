package handler

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-cnav/cnav/fields"
	"github.com/goblimey/go-cnav/cnav/page"
	"github.com/goblimey/go-cnav/cnav/pushback"
	"github.com/goblimey/go-cnav/cnav/utils"
)

// The handler package contains logic to find CNAV pages in a byte
// stream and issue them as messages.
//
//	handler := handler.New(slog.LevelInfo)
//
// creates a page handler.  Given a channel of bytes from a GNSS
// receiver, the handler returns the data as a series of Message
// objects containing the raw data of each page and other values such
// as the message type and a flag to say whether the data is a valid
// page.  CNAV message types are all greater than zero.  There is also
// a special type to indicate data that doesn't contain a valid page,
// for example receiver chatter in another format, an incomplete page
// at the end of the input or a page garbled in transmission.
//
// A page is a fixed-length frame: an 8-bit preamble, the satellite
// PRN, the message type, a time of week count and the message body,
// with a 24-bit CRC at the end.  Encountering a preamble byte doesn't
// guarantee the start of a page - the same value can appear in the
// middle of a page or in other binary data.  We only know we have a
// page when we have scanned a whole frame and checked the CRC.
//
// For an example of usage, see the displaycnav tool in this
// repository.  The tool reads a stream of pages from a receiver and
// emits a readable version.  That's useful when you are setting up a
// receiver and need to know exactly what it's producing.

// Handler finds CNAV pages in a byte stream.
type Handler struct {
	// logLevel is a slog-style logging level (Debug, Info etc).  It
	// controls the data that String produces.
	logLevel slog.Level
}

// New creates a handler.  The log level controls the String functions
// of the messages it produces.
func New(logLevel slog.Level) *Handler {
	handler := Handler{logLevel: logLevel}
	return &handler
}

// HandleMessages reads bytes from ch_in, converts them to CNAV page
// messages and writes the messages to ch_out.  The caller is
// responsible for creating and closing both channels.
func (handler *Handler) HandleMessages(ch_in chan byte, ch_out chan Message) {

	// Turn the input channel into a pushback channel.
	pb := pushback.New(ch_in)

	// Fetch messages until there are no more.
	for {
		message, err := handler.FetchNextMessageFrame(pb)
		if err != nil && err.Error() == "done" {
			// There is no more input.
			close(ch_out)
			return
		}

		// Send the message to the output channel.
		ch_out <- *message
	}
}

// FetchNextMessageFrame gets the next page frame from the given byte
// stream, a channel of bytes.  The byte stream should contain CNAV
// pages but they may be interspersed with data in other formats.  The
// resulting message contains either a single valid page or some
// non-CNAV data that precedes one.
//
// If the function encounters a fatal read error and it has not yet
// read any text, it returns the error.  If it has read some text, it
// just returns that (the assumption being that the next call will get
// no text and the same error).
func (handler *Handler) FetchNextMessageFrame(pc *pushback.ByteChannel) (*Message, error) {

	// Phase 1: eat bytes until we see the preamble byte.
	frame, eatError := eatUntilStartOfFrame(pc)

	if eatError != nil {
		// The channel is exhausted.  If there's nothing in the buffer,
		// return an error.  If there is something in the buffer,
		// continue and deal with that - we should get an error and
		// nothing in the buffer next time.
		if len(frame) == 0 {
			// An error and no bytes.  We're done.
			return nil, eatError
		}
	}

	// eatUntilStartOfFrame has returned some text.  It could be just
	// the preamble byte, some other text followed by the preamble byte
	// or just some other text.  That last case should only happen if
	// we scanned some text and then hit the end of the input.
	if len(frame) > 1 {
		// We have some non-CNAV.
		if frame[len(frame)-1] == utils.StartOfPageFrame {
			// The non-CNAV is followed by a preamble byte.  Push the
			// preamble back so we see it next time.  Return the rest
			// of the buffer as a non-CNAV message.
			pc.PushBack(utils.StartOfPageFrame)
			frameWithoutTrailingStartByte := frame[:len(frame)-1]
			return NewNonCNAV(frameWithoutTrailingStartByte), nil
		}
		// We just have some non-CNAV without a preamble byte,
		// probably because we reached the end of the input.
		return NewNonCNAV(frame), nil
	}

	// Phase 2: if we get to here, the frame buffer contains one byte,
	// the preamble, which may (or may not) mark the beginning of a
	// page.  A page frame is a fixed length, so scan the rest of it.
	wantBytes := utils.PageLengthBytes - 1

	for i := 0; i < wantBytes; i++ {
		b, err := pc.GetNextByte()

		if err != nil {
			// Error - presumably end of input.  However, we've already
			// read some text so return that.  The end of input will be
			// picked up on the next call.
			return NewNonCNAV(frame), nil
		}

		frame = append(frame, b)
	}

	// Phase 3: create a message from the frame and return it.  (This
	// also checks the CRC.  If that fails the text is returned as a
	// non-CNAV message.)
	return handler.GetMessage(frame)
}

// eatUntilStartOfFrame reads bytes from the channel until it
// encounters the preamble byte or the channel is closed.  It returns
// what it has eaten.  If there is an error (implying that the channel
// is closed) it returns what it read so far and the error.
func eatUntilStartOfFrame(pc *pushback.ByteChannel) ([]byte, error) {
	stuff := make([]byte, 0)
	for {
		b, err := pc.GetNextByte()
		if err != nil {
			return stuff, err
		}
		stuff = append(stuff, b)

		if b == utils.StartOfPageFrame {
			return stuff, nil
		}
	}
}

// GetMessage extracts a CNAV page from the given bit stream and
// returns it as a Message.  If the bit stream is empty, it returns an
// error.  If the data doesn't contain a valid page, it returns a
// message with type NonCNAVMessage.
func (handler *Handler) GetMessage(bitStream []byte) (*Message, error) {

	if len(bitStream) == 0 {
		return nil, fmt.Errorf("zero length message frame")
	}

	if bitStream[0] != utils.StartOfPageFrame {
		// This is not a CNAV page.
		return NewNonCNAV(bitStream), nil
	}

	if len(bitStream) < utils.PageLengthBytes {
		// The page is incomplete.  (This can happen if it's the last
		// message in the input stream.)
		message := NewNonCNAV(bitStream)
		message.ErrorMessage = "incomplete page frame"
		return message, fmt.Errorf("%s", message.ErrorMessage)
	}

	p, pageError := page.FromBytes(bitStream[:utils.PageLengthBytes])
	if pageError != nil {
		message := NewNonCNAV(bitStream)
		message.ErrorMessage = pageError.Error()
		return message, pageError
	}

	// A PRN of zero is never broadcast.  If we see one we've just come
	// across a preamble byte in a stream of other binary data.
	prn := uint(fields.ReadUnsigned(p, fields.PRN))
	if prn == 0 {
		return NewNonCNAV(bitStream), nil
	}

	// Check the CRC.  Until this passes we don't know that we have a
	// page at all.
	if !p.CheckCRC() {
		message := NewNonCNAV(bitStream)
		message.ErrorMessage = "CRC check failed"
		return message, fmt.Errorf("%s", message.ErrorMessage)
	}

	// The frame is complete and the CRC check passes, so it's a valid
	// page.
	messageType := int(fields.ReadUnsigned(p, fields.MsgType))
	message := NewMessage(messageType, "", bitStream, p, handler.logLevel)
	message.SatellitePRN = prn
	message.Tow = fields.ReadScaledUnsigned(p, fields.Tow, utils.TowLSB)

	return message, nil
}

// Message contains a CNAV page, or a stream of non-CNAV data.
// Message type NonCNAVMessage indicates the second case.
type Message struct {
	// MessageType is the CNAV message type of the page.  CNAV types
	// are all positive.  Type NonCNAVMessage is negative and indicates
	// a stream of bytes that doesn't contain a valid page.
	MessageType int

	// SatellitePRN identifies the satellite that sent the page.  Only
	// set for a valid page.
	SatellitePRN uint

	// Tow is the time of week from the page, seconds.  Only set for a
	// valid page.
	Tow float64

	// ErrorMessage contains any error message encountered while
	// fetching the message.
	ErrorMessage string

	// RawData is the page frame in its original binary form, including
	// the preamble and the CRC.
	RawData []byte

	// Page is the decoded-ready page.  Nil for non-CNAV data.
	Page *page.Page

	// LogLevel controls the data produced by String.
	LogLevel slog.Level
}

// NewMessage creates a new message.
func NewMessage(messageType int, errorMessage string, bitStream []byte, p *page.Page, logLevel slog.Level) *Message {

	message := Message{
		MessageType:  messageType,
		RawData:      bitStream,
		Page:         p,
		ErrorMessage: errorMessage,
		LogLevel:     logLevel,
	}

	return &message
}

// NewNonCNAV creates a non-CNAV message.
func NewNonCNAV(bitStream []byte) *Message {
	message := Message{
		MessageType: utils.NonCNAVMessage,
		RawData:     bitStream,
	}
	return &message
}

// Copy makes a copy of the message and its contents.
func (message *Message) Copy() Message {
	// Make a copy of the raw data.
	rawData := make([]byte, len(message.RawData))
	copy(rawData, message.RawData)
	var newMessage = Message{
		MessageType:  message.MessageType,
		SatellitePRN: message.SatellitePRN,
		Tow:          message.Tow,
		RawData:      rawData,
		Page:         message.Page,
		ErrorMessage: message.ErrorMessage,
	}
	return newMessage
}

// String takes the given Message object and returns it as a readable
// string.
func (message *Message) String() string {

	display := fmt.Sprintf("Message type %d, %s\n",
		message.MessageType, utils.GetTitle(message.MessageType))

	if message.MessageType > 0 {
		display += fmt.Sprintf("PRN %d, TOW %.0f\n",
			message.SatellitePRN, message.Tow)
	}

	display += fmt.Sprintf("Frame length %d bytes:\n", len(message.RawData))
	display += hex.Dump(message.RawData) + "\n"

	if len(message.ErrorMessage) > 0 {
		display += message.ErrorMessage + "\n"
		return display
	}

	if message.LogLevel == slog.LevelDebug && message.Page != nil {
		// In debug mode show the page as a bit string too.
		display += message.Page.String() + "\n"
	}

	return display
}
