package filehandler

import (
	"bufio"
	"io"
	"log/slog"
	"time"

	cnav "github.com/goblimey/go-cnav/cnav/handler"
)

// Handler provides code to handle a file containing CNAV pages,
// possibly interspersed with data in other formats.  The file may be a
// plain file that's no longer being written to, or the device file of
// a serial USB connection fed by a live GNSS receiver.
type Handler struct {
	PageHandler        *cnav.Handler     // Finds CNAV pages ...
	MessageChan        chan cnav.Message // ... and issues them on this channel.
	RetryIntervalOnEOF time.Duration     // The time to wait between retries on EOF.
	EOFTimeout         time.Duration     // Give up retrying after this time has elapsed.
}

// New creates a handler.
func New(messageChan chan cnav.Message, retryIntervalOnEOF, eofTimeout time.Duration) *Handler {

	handler := Handler{
		MessageChan:        messageChan,
		RetryIntervalOnEOF: retryIntervalOnEOF,
		EOFTimeout:         eofTimeout,
	}
	return &handler
}

// Handle reads the file and sends the contents to a page handler which
// extracts CNAV pages and sends them to the message channel.  If there
// is a read error (typically EOF), it's returned.
func (handler *Handler) Handle(reader *bufio.Reader) error {

	// An EOF on a read is not necessarily fatal.  It can just mean
	// that there is no data to read just now, but there may be some in
	// the future.  If the EOFTimeout is zero, we return immediately on
	// EOF.  If it's set, then we retry reads for that duration and
	// then return the error if the timeout elapses.  On any other read
	// error we stop immediately.
	//
	// If the reader is connected to a file that's not being written,
	// the caller should supply a zero timeout value.  Handle will then
	// process the file and die.
	//
	// If the reader is connected to a serial line fed by a live
	// receiver, the bytes should come in indefinitely, a page every
	// few seconds with silence in between.  If the timeout is set to a
	// small number of seconds then it will only expire if the host
	// machine loses its connection to the device, so the handler may
	// run for days or weeks.  When a read timeout does expire, the
	// handler closes its message channel and returns.  (If the handler
	// is called in a goroutine, closing the message channel signals to
	// the caller that it's stopped.)  The caller should attempt to
	// reopen the connection to the device, create a new handler and
	// continue.

	// timeOfFirstEOF is set when the read has returned EOF one or more
	// times in a row.  It's the time that we saw the first of a stream
	// of EOFs.  If the last read was successful, the value is left as
	// nil.
	var timeOfFirstEOF *time.Time

	byteChan := make(chan byte)
	// Ensure that the byte channel is closed on return.
	defer close(byteChan)

	// Set up a page handler connected to the input and output channels
	// and start it running.
	handler.PageHandler = cnav.New(slog.LevelInfo)
	go handler.PageHandler.HandleMessages(byteChan, handler.MessageChan)

	// Read the file and send the data to the byte channel.
	for {
		buf := make([]byte, 1)
		n, err := reader.Read(buf)
		if err != nil {
			// Error of some kind, probably EOF.
			if err != io.EOF {
				// Some other kind of file handling error.  (This is
				// difficult to provoke during testing without using a
				// mock.)
				return err
			}

			// EOF.
			if handler.EOFTimeout == 0 {
				// No timeout so don't retry.
				return err
			}

			// EOF may really mean end of file or just that there is
			// currently no data to read.  Retry until the timeout
			// elapses and then return.
			if timeOfFirstEOF == nil {
				// The last read was successful, this one produced EOF.
				// Set up the timeout, pause and try again.
				t := time.Now()
				timeOfFirstEOF = &t
				time.Sleep(handler.RetryIntervalOnEOF)
				continue
			}

			// If we get to here, we've seen EOF this time and last
			// time too.
			now := time.Now()
			if now.Sub(*timeOfFirstEOF) > handler.EOFTimeout {
				// The timeout has elapsed.  Give up.
				return err
			}

			// The timeout has not elapsed yet.  Pause and try again.
			time.Sleep(handler.RetryIntervalOnEOF)
		}

		if n > 0 {
			// We have read a byte.  Reset the timeout mechanism and
			// send the byte to the channel.
			timeOfFirstEOF = nil
			byteChan <- buf[0]
		}
	}
}
