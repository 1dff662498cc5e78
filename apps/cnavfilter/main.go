// The cnavfilter reads a byte stream from stdin, converts it to CNAV
// page frames and sends them to a set of processor functions.  It's
// designed to receive data from a device that emits pages continuously
// so it runs until forcibly stopped.  In the real world the device is
// a GNSS receiver transmitting CNAV pages over a serial USB connection.
// The serial_usb_grabber handles the details of the USB connection and
// transmits the pages on stdout, so we can connect it to this via a
// pipe.
//
// When the application starts up it reads a YAML config file named on
// the command line.  The config settings define which processor
// functions are run, so the results will be different depending on the
// config.  For example:
//
//	writereadablelog: true
//	recordpages: true
//	pagelogdirectory: "pagelog"
//
// The incoming data is assumed to contain bursts of CNAV page frames
// interspersed with other data such as NMEA sentences.  All data is
// presented as cnav.Message objects, each with a message type.  There
// is a special message type for data that is not a CNAV page.
//
// The stream is assumed to come from a GNSS device which is issuing
// pages continuously, for example a receiver sending data on a serial
// USB, IRC or RS/232 connection.  Some of these media are prone to
// dropping or scrambling the occasional character.  That will cause
// the page's CRC check to fail and the page will be deemed invalid.
//
// The application starts a new log file each day with a datestamped
// name (such as "cnavfilter.2026-08-31.cnav"), so each log file
// contains data collected in one day.
//
// The filter can be used to clean up a stream of incoming data by
// filtering out the non-CNAV data and any pages that are corrupted in
// transit, sending only valid pages along a pipe to software such as
// the cnavpublisher:
//
//	 ------   pages and                                      valid  ---------
//	|GNSS  |-------------> serial_usb_grabber ---> cnavfilter ---> |publisher|
//	|device|  serial USB                      pipe            pipe  ---------
//	 ------   connection
//
// Another potential use is to record files of raw pages.  These can be
// replayed later through the display tool or the publisher to recover
// the broadcast ephemeris for that day.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	AppCore "github.com/goblimey/go-cnav/apps/appcore"
	cnav "github.com/goblimey/go-cnav/cnav/handler"
	"github.com/goblimey/go-cnav/cnav/utils"
	"github.com/goblimey/go-cnav/yamlconfig"
	"github.com/goblimey/go-tools/dailylogger"
)

type MessageChannel chan cnav.Message

func main() {

	// logger writes to the daily event log.
	logger := utils.GetDailyLogger("cnavfilter")

	// Get the name of the config file (mandatory).
	var configFileName string
	flag.StringVar(&configFileName, "c", "", "YAML config file")
	flag.StringVar(&configFileName, "config", "", "YAML config file")

	flag.Parse()

	if len(configFileName) == 0 {
		logger.Println("missing config file: -c or --config")
		os.Exit(-1)
	}

	// Get the config.
	config, errConfig := yamlconfig.GetYAMLConfigFromFile(configFileName, logger)

	if errConfig != nil {
		logger.Println(errConfig.Error())
		os.Exit(-1)
	}

	HandleMessages(os.Stdin, os.Stdout, config)
}

// writeCNAVPages receives the messages from the channel and writes the
// valid page frames to the given writer.  If the channel is closed or
// there is an error while writing, it terminates.  It can be run in a
// go routine.
func writeCNAVPages(ch MessageChannel, writer io.Writer) {
	for {
		message, ok := <-ch
		if !ok {
			return
		}

		// We only want valid CNAV pages.
		if message.MessageType == utils.NonCNAVMessage {
			continue
		}

		n, err := writer.Write(message.RawData)
		if err != nil {
			// error - run out of disk space or something.
			return
		}
		if n != len(message.RawData) {
			// incomplete write (which indicates some sort of trouble.)
			return
		}
	}
}

// writeReadablePages receives the messages from the channel, decodes
// them to readable form and writes the result to the given log file.
// It terminates when the channel is closed or there is a write error.
// It can be run in a go routine.
func writeReadablePages(ch MessageChannel, writer io.Writer) {

	for {
		message, ok := <-ch
		if !ok {
			return
		}
		// Decode the message.  (The result is verbose!)
		display := fmt.Sprintf("%s\n", message.String())
		writer.Write([]byte(display))
	}
}

// HandleMessages reads the byte stream, writes the valid page frames
// to the writer and, if the config asks for them, keeps daily logs of
// the readable and the raw forms.  It runs until the input is
// exhausted.
func HandleMessages(reader io.Reader, writer io.Writer, config *yamlconfig.Config) {

	bufferedReader := bufio.NewReader(reader)

	channels := make([]chan cnav.Message, 0)

	messageChan := make(chan cnav.Message)
	go writeCNAVPages(messageChan, writer)
	channels = append(channels, messageChan)

	if config.WriteReadableLog {
		displayLogWriter :=
			dailylogger.New(config.PageLogDirectory, "cnav.", ".txt")
		displayChan := make(chan cnav.Message)
		go writeReadablePages(displayChan, displayLogWriter)
		channels = append(channels, displayChan)
	}
	if config.RecordPages {
		pageLogWriter := dailylogger.New(config.PageLogDirectory, "cnavfilter.", ".cnav")
		pageChan := make(chan cnav.Message)
		go writeCNAVPages(pageChan, pageLogWriter)
		channels = append(channels, pageChan)
	}

	appCore := AppCore.New(config, channels)
	appCore.HandleMessagesUntilEOF(bufferedReader)

	// We only get to here if the handler stops.
	close(messageChan)
}
