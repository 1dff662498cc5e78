package yamlconfig

// The yamlconfig package provides support for reading and using a YAML
// configuration file in a standard format for the various CNAV
// applications.
//
// An example config file:
//
//	input: ["/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyACM2"]
//	writereadablelog: true
//	recordpages: true
//	pagelogdirectory: "pagelog"
//	maxtoeage: 0
//	sendtobroker: true
//	brokerurl: "tcp://broker.example.com:1883"
//	brokertopic: "gnss/cnav"
//	brokerusername: "user"
//	brokerpassword: "password"
//	timeout: 1
//	sleeptime: 2
//
// This example suits a receiver host reading CNAV pages from a GNSS
// device over a serial USB connection and sending the decoded records
// to a set of output channels for processing.  (For example, the
// goroutine at the other end of a channel might publish the records to
// an MQTT broker, or it might log them in a file.)  The config
// specifies the list of Linux devices that may be used to represent
// the USB connection, flags that determine which output channels
// should be enabled, the details needed to connect to the broker and
// some controls for handling timeouts and retries if the incoming page
// stream dies.
//
// Other applications such as the CNAV display tool use the same format
// but don't use all the fields.
//
// The package contains functions to read a configuration from a file,
// connect to the incoming page stream and to attempt to reconnect if
// the stream then dies.

import (
	"io"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains the values from the YAML config file and a
// pointer to the system log.  To support unit testing, functions
// that need to write to the log should get it from the config
// or from an argument.
type Config struct {
	Filenames        []string `yaml:"input"`
	WriteReadableLog bool     `yaml:"writereadablelog"`

	// RecordPages enables a daily log of the raw page frames.
	RecordPages bool `yaml:"recordpages"`
	// PageLogDirectory is the directory for the daily page logs,
	// "." by default.
	PageLogDirectory string `yaml:"pagelogdirectory"`

	// MaxToeAge controls the decoder's staleness policy - the largest
	// difference in seconds between the times of ephemeris of the two
	// halves before the stored half is dropped.  Zero means wait
	// indefinitely for a matching partner.
	MaxToeAge float64 `yaml:"maxtoeage"`

	SendToBroker   bool   `yaml:"sendtobroker"`
	BrokerURL      string `yaml:"brokerurl"`
	BrokerTopic    string `yaml:"brokertopic"`
	BrokerUserName string `yaml:"brokerusername"`
	BrokerPassword string `yaml:"brokerpassword"`
	BrokerClientID string `yaml:"brokerclientid"`

	// LostInputConnectionTimeout defines the input timeout.
	LostInputConnectionTimeout uint `yaml:"timeout"`
	// LostInputConnectionSleepTime is the time to sleep between connection attempts.
	LostInputConnectionSleepTime uint `yaml:"sleeptime"`

	// WaitTimeOnEOFMillis is the time in milliseconds to wait between
	// read retries when the input produces EOF.
	WaitTimeOnEOFMillis uint `yaml:"waittimeoneofmillis"`
	// TimeoutOnEOFSeconds is the time in seconds after which a stream
	// of EOFs is taken to mean that the input has died.  Zero means
	// give up on the first EOF, which suits a plain file.
	TimeoutOnEOFSeconds uint `yaml:"timeoutoneofseconds"`

	// SystemLog is the Writer used for logging and can be nil.  It's
	// not supplied in the YAML.  The application should call
	// GetYAMLConfigFromFile and, if there is a log writer, supply it
	// as a parameter.
	SystemLog *log.Logger

	// logging indicates that logging should be done.
	logging bool
}

// GetYAMLConfigFromFile gets the config from the file given by configFileName.
func GetYAMLConfigFromFile(configFileName string, systemLog *log.Logger) (*Config, error) {

	yamlReader, fileErr := os.Open(configFileName)
	if fileErr != nil {
		return nil, fileErr
	}

	// There is a YAML control file.  Read and unmarshall it.
	config, yamlError := getYAMLConfig(yamlReader, systemLog)
	if yamlError != nil {
		return nil, yamlError
	}

	return config, nil
}

// getYAMLConfig reads from the given source and returns the config.
func getYAMLConfig(yamlSource io.Reader, systemLog *log.Logger) (*Config, error) {

	yamlBytes, yamlReadError := io.ReadAll(yamlSource)
	if yamlReadError != nil {
		// We can't read the control file - permissions?
		systemLog.Printf("cannot read the YAML control file - %s\n", yamlReadError.Error())
		return nil, yamlReadError
	}

	var config Config
	// Parse the YAML control file
	yamlParseError := yaml.Unmarshal(yamlBytes, &config)
	if yamlParseError != nil {
		systemLog.Printf("cannot parse the YAML control file - %s\n", yamlParseError.Error())
		return nil, yamlParseError
	}

	// Set the fields that are not set by the YAML.
	config.SystemLog = systemLog
	config.logging = true

	return &config, nil
}

// WaitTimeOnEOF returns the time to wait between read retries on EOF.
func (config *Config) WaitTimeOnEOF() time.Duration {
	return time.Duration(config.WaitTimeOnEOFMillis) * time.Millisecond
}

// TimeoutOnEOF returns the time after which a stream of EOFs means
// that the input has died.
func (config *Config) TimeoutOnEOF() time.Duration {
	return time.Duration(config.TimeoutOnEOFSeconds) * time.Second
}

// WaitAndConnectToInput tries repeatedly (potentially indefinitely)
// to connect to one of the input files whose names are given.
func (config *Config) WaitAndConnectToInput() io.Reader {
	for {
		reader := findInputDevice(config)
		if reader != nil {
			if config.logging {
				config.SystemLog.Println(
					"waitAndConnect: connected to GNSS source")
			}
			return reader // Success!
		}
		if config.logging {
			config.SystemLog.Println(
				"waitAndConnectToInput: failed to connect to GNSS source.  Retrying")
		}
		sleeptime := time.Duration(config.LostInputConnectionSleepTime) * time.Second
		time.Sleep(sleeptime)
	}
}

// findInputDevice searches the given list of input files.  If one of
// the named files exists and can be opened for reading, it returns a
// Reader connected to it.
func findInputDevice(config *Config) io.Reader {
	// Note:  The device names "/dev/ttyACM0" etc on a Raspberry Pi
	// DO NOT relate to the physical USB sockets on the circuit board.
	// They are used in turn.  After the Pi boots, the first connection
	// uses "/dev/ttyACM0".  If the GNSS device loses power briefly,
	// then when it comes back, the connection is represented by
	// "/dev/ttyACM1", and so on, even though the USB plug is connected
	// to the same port.  So, whenever software running on the Pi needs
	// to establish a connection with a serial USB device, it needs to
	// do this search.

	file := getInputFile(config)
	if file == nil {
		// None of the input files are present.  Return nil.
		return nil
	}

	// The file exists and is open.  Return it.
	return file
}

// getInputFile returns a connection to the first file in the given list
// that it can open for reading or nil if it can't open any file.  If
// the config sets a lost connection timeout, the connection arms a
// read deadline of that length afresh before each read, so a device
// that keeps sending is never cut off but one that has gone quiet for
// the whole timeout is noticed.  With no timeout set, reads block
// indefinitely, which suits a plain file.
func getInputFile(config *Config) io.Reader {
	for _, name := range config.Filenames {
		file, err := os.Open(name)
		if err == nil {
			if config.logging {
				config.SystemLog.Printf("getInputFile: found %s", name)
				// Turn off logging after the first successful scan.
				config.logging = false
			}
			// The file exists and we've just opened it for reading.
			if config.LostInputConnectionTimeout == 0 {
				return file
			}
			timeout := time.Duration(config.LostInputConnectionTimeout) *
				time.Second
			return &timeoutReader{file: file, timeout: timeout}
		}
	}

	return nil
}

// timeoutReader wraps an open input file, arming the read deadline
// afresh before each read.  A read fails only when nothing has arrived
// for the whole timeout, so the deadline catches a connection that has
// died rather than limiting the life of a healthy one.
type timeoutReader struct {
	file    *os.File
	timeout time.Duration
}

func (reader *timeoutReader) Read(p []byte) (int, error) {
	reader.file.SetReadDeadline(time.Now().Add(reader.timeout))
	return reader.file.Read(p)
}
