// go-cnav reads bytes from stdin, extracts the CNAV page frames and
// prints a tally of the message types seen.  Anything in the stream
// that's not a valid page (junk between frames, pages that fail the
// CRC check) is counted under the special non-CNAV type.  It's handy
// for a quick look at a recorded page log.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	cnav "github.com/goblimey/go-cnav/cnav/handler"
	"github.com/goblimey/go-cnav/cnav/utils"
)

func main() {

	messageCount := make(map[int]uint)

	byteChan := make(chan byte, 4096)
	messageChan := make(chan cnav.Message)

	handler := cnav.New(slog.LevelInfo)
	go handler.HandleMessages(byteChan, messageChan)

	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			b, err := reader.ReadByte()
			if err != nil {
				break
			}
			byteChan <- b
		}
		close(byteChan)
	}()

	// The handler closes the message channel when the input dries up.
	for message := range messageChan {
		messageCount[message.MessageType]++
	}

	for c := range messageCount {
		fmt.Printf("message type %4d: %6d (%s)\n",
			c, messageCount[c], utils.GetTitle(c))
	}
}
