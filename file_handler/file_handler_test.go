package filehandler

import (
	"bufio"
	"bytes"
	"testing"

	cnav "github.com/goblimey/go-cnav/cnav/handler"
	"github.com/goblimey/go-cnav/cnav/testdata"
	"github.com/goblimey/go-cnav/cnav/utils"
	"github.com/google/go-cmp/cmp"
)

// batchWithJunk returns a bit stream containing two pages with junk
// between them and after them.
func batchWithJunk() []byte {
	stream := testdata.NewBuilder(7, utils.MessageTypeEphemeris1, 30000, false).
		Seal().Bytes()
	stream = append(stream, []byte("chatter")...)
	stream = append(stream,
		testdata.NewBuilder(7, utils.MessageTypeClockIono, 30004, false).
			Seal().Bytes()...)
	stream = append(stream, []byte("tail")...)
	return stream
}

// TestHandle checks that Handle correctly processes a bit stream
// containing a set of pages.
func TestHandle(t *testing.T) {

	bitStream := batchWithJunk()

	// These are the expected message types.
	wantMessageType := []int{
		utils.MessageTypeEphemeris1,
		utils.NonCNAVMessage,
		utils.MessageTypeClockIono,
		utils.NonCNAVMessage,
	}

	// Create a buffered reader connected to the test bit stream.
	r := bytes.NewReader(bitStream)
	reader := bufio.NewReader(r)

	// Create the output channel.
	messageChan := make(chan cnav.Message, 10)

	// Create and start a file handler.  The file handler reads the
	// input bytes and messages appear on the message channel.

	const waitTimeOnEOF = 0 // Do not wait when encountering End Of File.
	const timeoutOnEOF = 0  // Time out immediately on the first End Of File.

	fh := New(messageChan, waitTimeOnEOF, timeoutOnEOF)
	go fh.Handle(reader)

	// Fetch the messages from the channel.
	messages := make([]cnav.Message, 0)
	for {
		message, ok := <-messageChan
		if !ok {
			break
		}
		messages = append(messages, message)
	}

	// Check the message types.
	gotMessageType := make([]int, 0)
	for _, message := range messages {
		gotMessageType = append(gotMessageType, message.MessageType)
	}

	if diff := cmp.Diff(wantMessageType, gotMessageType); diff != "" {
		t.Error(diff)
	}
}

// TestHandleManyCalls checks that Handle correctly processes a number
// of bit streams containing pages.
func TestHandleManyCalls(t *testing.T) {

	// If the input is a serial line with a GNSS device on the end,
	// Handle will be called many times and the messages from each call
	// will be sent to an aggregate channel.  This test simulates that
	// situation by calling Handle twice using different bit streams
	// each time.  The result on the aggregate message channel should
	// be the messages from the two bit streams in order.

	const waitTimeOnEOF = 0 // Do not wait when encountering End Of File.
	const timeoutOnEOF = 0  // Time out immediately on the first End Of File.

	const messageChannelCapacity = 100

	// The first test bit stream contains 1 page, the second contains
	// 2 pages with junk around them.
	bitStream1 := testdata.NewBuilder(7, utils.MessageTypeEphemeris2, 29996, false).
		Seal().Bytes()
	bitStream2 := batchWithJunk()

	// These are the expected message types.
	wantMessageType := []int{
		utils.MessageTypeEphemeris2,
		utils.MessageTypeEphemeris1,
		utils.NonCNAVMessage,
		utils.MessageTypeClockIono,
		utils.NonCNAVMessage,
	}

	// Create a buffered reader connected to the first test bit stream.
	r1 := bytes.NewReader(bitStream1)
	reader1 := bufio.NewReader(r1)

	// Create an aggregate message channel.  Each of the two phases
	// below will send messages to this.
	aggregateMessageChan := make(chan cnav.Message, messageChannelCapacity)

	// Phase 1:  read from a data source until it's exhausted and send
	// the resulting messages to the aggregate channel.  This data
	// source is a complete page, which is how things will be in the
	// field - the GNSS device will send complete pages in bursts with
	// a long(ish) delay between each burst.

	messageChan1 := make(chan cnav.Message, messageChannelCapacity)

	fh1 := New(messageChan1, waitTimeOnEOF, timeoutOnEOF)
	go fh1.Handle(reader1)

	for {
		message, ok := <-messageChan1
		if !ok {
			break // Phase 1 is done.
		}

		aggregateMessageChan <- message
	}

	// Phase 2:  same again but with different input data.

	r2 := bytes.NewReader(bitStream2)
	reader2 := bufio.NewReader(r2)

	messageChan2 := make(chan cnav.Message, messageChannelCapacity)

	fh2 := New(messageChan2, waitTimeOnEOF, timeoutOnEOF)
	go fh2.Handle(reader2)

	for {
		message, ok := <-messageChan2
		if !ok {
			break // Phase 2 is done.
		}

		aggregateMessageChan <- message
	}

	// We're done.

	close(aggregateMessageChan)

	// Fetch the messages from the aggregate channel.
	messages := make([]cnav.Message, 0)
	for {
		message, ok := <-aggregateMessageChan
		if !ok {
			break
		}
		messages = append(messages, message)
	}

	// Check the message types.
	gotMessageType := make([]int, 0)
	for _, message := range messages {
		gotMessageType = append(gotMessageType, message.MessageType)
	}

	if diff := cmp.Diff(wantMessageType, gotMessageType); diff != "" {
		t.Error(diff)
	}
}
