// displaycnav reads bytes from stdin or a file, ignores anything
// that's not a CNAV page and writes a readable version of the pages to
// the standard output channel.
//
// Raw CNAV is a tightly compressed binary format, not designed to be
// readable by a human.  Each page is a 300-bit frame carrying a
// message type and a payload of encoded parameters.  The most
// important types are 10 and 11, which together carry a satellite's
// ephemeris (its orbital parameters), and 30 and 33, which carry the
// clock correction plus the ionosphere and UTC models.
//
// The tool shows every page as a hex dump with its type, satellite PRN
// and time of week.  It also feeds the pages through a decoder, one
// per satellite, and whenever an ephemeris, ionosphere or UTC record
// completes it displays the record in plain text.  An ephemeris
// arrives in two halves and the decoder only announces it when both
// halves of the same data set have been seen, so the records shown are
// internally consistent.
//
// For example:
//
//	Message type 10, ephemeris 1 of 2
//	PRN 7, TOW 180000
//	Frame length 38 bytes:
//	00000000  8b 1c a1 d4 c0 00 41 ad  ...
//
// The tool is useful for trouble-shooting, particularly when you have
// a misbehaving receiver and you are trying to figure out what it's
// producing.  You can see which satellites it's tracking, what page
// types they are sending and what the decoded orbits look like.
//
// Usage:
//
//	displaycnav file
//
// Examples:
//
//	displaycnav testdata.cnav
//
//	displaycnav -    # take input from the standard input channel.
package main

import (
	"bufio"
	"io"
	"log"
	"os"

	AppCore "github.com/goblimey/go-cnav/apps/appcore"
	"github.com/goblimey/go-cnav/cnav/decoder"
	cnav "github.com/goblimey/go-cnav/cnav/handler"
	"github.com/goblimey/go-cnav/yamlconfig"
)

func main() {

	if len(os.Args) < 2 {
		log.Fatalf("usage: %s file", os.Args[0])
	}
	appName := os.Args[0]

	fileName := os.Args[1]
	reader, openError := openFile(fileName)
	if openError != nil {
		log.Fatalf("%s: cannot open %s - %v", appName, fileName, openError)
	}

	// We just need the EOF timeout to be zero, which causes
	// HandleMessages to stop when the input file is exhausted, so the
	// zero value of the config is suitable.
	var config yamlconfig.Config

	HandleMessages(reader, os.Stdout, &config)

	os.Exit(0)
}

func HandleMessages(reader io.Reader, writer io.Writer, config *yamlconfig.Config) {

	bufferedReader := bufio.NewReader(reader)
	// Write the heading.
	writer.Write([]byte("CNAV data\n\n"))

	messageChan := make(chan cnav.Message, 2)

	channels := make([]chan cnav.Message, 0)
	channels = append(channels, messageChan)
	appCore := AppCore.New(config, channels)

	go func() {
		appCore.HandleMessagesUntilEOF(bufferedReader)
		close(messageChan)
	}()

	DisplayMessages(messageChan, writer)
}

// DisplayMessages receives messages from the given channel, produces a
// readable display of each and writes them to the writer.  Valid pages
// are also fed through a decoder, one per satellite, and completed
// ephemeris, ionosphere and UTC records are displayed as they arrive.
func DisplayMessages(messageChan chan cnav.Message, writer io.Writer) error {

	// One decoder per satellite.
	decoders := make(map[uint]*decoder.Decoder)

	for {
		message, ok := <-messageChan
		if !ok {
			return nil
		}

		display := message.String()
		_, writeError := writer.Write([]byte(display))
		if writeError != nil {
			return writeError
		}

		if message.MessageType <= 0 || message.Page == nil {
			// Non-CNAV data - nothing to decode.
			continue
		}

		dec, got := decoders[message.SatellitePRN]
		if !got {
			dec = decoder.New(decoder.WithChannelID(int(message.SatellitePRN)))
			decoders[message.SatellitePRN] = dec
		}

		dec.DecodePage(message.Page)

		if dec.HasNewEphemeris() {
			eph := dec.Ephemeris()
			_, writeError = writer.Write(
				[]byte("Complete ephemeris:\n" + eph.String() + "\n"))
			if writeError != nil {
				return writeError
			}
		}

		if dec.HasNewIono() {
			ion := dec.Iono()
			_, writeError = writer.Write(
				[]byte("Ionosphere model:\n" + ion.String() + "\n"))
			if writeError != nil {
				return writeError
			}
		}

		if dec.HasNewUtcModel() {
			utc := dec.UtcModel()
			_, writeError = writer.Write(
				[]byte("UTC model:\n" + utc.String() + "\n"))
			if writeError != nil {
				return writeError
			}
		}
	}
}

// openFile opens the given file and returns a Reader connected to it.
// If the file name is "-" it returns os.Stdin.
func openFile(fileName string) (io.Reader, error) {
	if fileName == "-" {
		return os.Stdin, nil
	}

	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}

	return file, nil
}
