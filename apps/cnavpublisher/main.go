// cnavpublisher reads CNAV pages from a GNSS receiver on a serial USB
// connection, decodes them and publishes the completed ephemeris,
// ionosphere and UTC records as JSON to an MQTT broker.  Something at
// the other end of the broker - a position engine, a dashboard, a
// logger - subscribes to the topics and consumes the records.
//
// An ephemeris arrives in two halves and the decoder only releases it
// when both halves of the same data set have been seen, so every
// record published is internally consistent.
//
// Usage:
//
//	cnavpublisher config.yaml
//
// The config file gives the input device names, the broker details
// and the decoder's staleness policy - see the yamlconfig package.
//
// The publisher runs until it's killed.  If the receiver drops off the
// USB bus the publisher waits for it to come back, which may be under
// a different device name, so the config should list all the
// candidates.  Progress and errors go to a daily log file.
package main

import (
	"encoding/json"
	"log"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	AppCore "github.com/goblimey/go-cnav/apps/appcore"
	"github.com/goblimey/go-cnav/cnav/decoder"
	"github.com/goblimey/go-cnav/cnav/ephemeris"
	cnav "github.com/goblimey/go-cnav/cnav/handler"
	"github.com/goblimey/go-cnav/cnav/iono"
	"github.com/goblimey/go-cnav/cnav/utcmodel"
	"github.com/goblimey/go-cnav/cnav/utils"
	"github.com/goblimey/go-cnav/yamlconfig"
)

func main() {

	systemLog := utils.GetDailyLogger("cnavpublisher")

	if len(os.Args) < 2 {
		systemLog.Fatalf("usage: %s configfile", os.Args[0])
	}

	config, configError := yamlconfig.GetYAMLConfigFromFile(os.Args[1], systemLog)
	if configError != nil {
		systemLog.Fatalf("cannot read the config - %v", configError)
	}

	if !config.SendToBroker {
		systemLog.Fatalf("config does not enable sendtobroker - nothing to do")
	}

	client, clientError := newMQTTClient(config)
	if clientError != nil {
		systemLog.Fatalf("cannot connect to broker %s - %v",
			config.BrokerURL, clientError)
	}
	systemLog.Printf("connected to broker %s", config.BrokerURL)

	publisher := NewPublisher(client, config.BrokerTopic, config.MaxToeAge, systemLog)

	messageChan := make(chan cnav.Message, 10)

	channels := make([]chan cnav.Message, 0)
	channels = append(channels, messageChan)
	appCore := AppCore.New(config, channels)

	// The app core reads pages from the receiver forever, reconnecting
	// as needed.  The publisher consumes them here.
	go appCore.HandleMessages()

	publisher.HandleMessages(messageChan)
}

// newMQTTClient connects to the broker named in the config.
func newMQTTClient(config *yamlconfig.Config) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(config.BrokerURL).
		SetClientID(config.BrokerClientID).
		SetUsername(config.BrokerUserName).
		SetPassword(config.BrokerPassword)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

// broker is the part of the MQTT client that the publisher uses.  The
// paho client satisfies it and so does a stub in the unit tests.
type broker interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Record is the JSON document published for each completed record.
// Exactly one of the three record fields is set, matching Kind.
type Record struct {
	Kind         string               `json:"kind"`
	SatellitePRN uint                 `json:"prn"`
	Tow          float64              `json:"tow"`
	Ephemeris    *ephemeris.Ephemeris `json:"ephemeris,omitempty"`
	Iono         *iono.Iono           `json:"iono,omitempty"`
	UtcModel     *utcmodel.UtcModel   `json:"utcmodel,omitempty"`
}

// Publisher decodes pages, one decoder per satellite, and publishes
// the completed records.
type Publisher struct {
	client    broker
	topic     string
	maxToeAge float64
	systemLog *log.Logger
	decoders  map[uint]*decoder.Decoder
}

// NewPublisher creates a Publisher.
func NewPublisher(client broker, topic string, maxToeAge float64, systemLog *log.Logger) *Publisher {
	publisher := Publisher{
		client:    client,
		topic:     topic,
		maxToeAge: maxToeAge,
		systemLog: systemLog,
		decoders:  make(map[uint]*decoder.Decoder),
	}
	return &publisher
}

// HandleMessages receives messages from the given channel, feeds the
// valid pages through the decoders and publishes each completed record.
// It returns when the channel is closed.
func (publisher *Publisher) HandleMessages(messageChan chan cnav.Message) {
	for {
		message, ok := <-messageChan
		if !ok {
			return
		}

		if message.MessageType == utils.MessageTypeStop {
			// Only ever sent in testing.
			return
		}

		if message.MessageType <= 0 || message.Page == nil {
			// Non-CNAV data - nothing to decode.
			continue
		}

		dec, got := publisher.decoders[message.SatellitePRN]
		if !got {
			dec = decoder.New(
				decoder.WithChannelID(int(message.SatellitePRN)),
				decoder.WithMaxToeAge(publisher.maxToeAge))
			publisher.decoders[message.SatellitePRN] = dec
		}

		dec.DecodePage(message.Page)

		if dec.HasNewEphemeris() {
			eph := dec.Ephemeris()
			record := Record{
				Kind:         "ephemeris",
				SatellitePRN: eph.SatellitePRN,
				Tow:          eph.Tow,
				Ephemeris:    &eph,
			}
			publisher.publish(record)
		}

		if dec.HasNewIono() {
			ion := dec.Iono()
			record := Record{
				Kind:         "iono",
				SatellitePRN: message.SatellitePRN,
				Tow:          message.Tow,
				Iono:         &ion,
			}
			publisher.publish(record)
		}

		if dec.HasNewUtcModel() {
			utc := dec.UtcModel()
			record := Record{
				Kind:         "utcmodel",
				SatellitePRN: message.SatellitePRN,
				Tow:          message.Tow,
				UtcModel:     &utc,
			}
			publisher.publish(record)
		}
	}
}

// publish marshals the record and sends it to the broker on the topic
// for its kind, for example "gnss/cnav/ephemeris".  Publish errors are
// logged, not fatal - the broker may come back.
func (publisher *Publisher) publish(record Record) {
	payload, marshalError := json.Marshal(record)
	if marshalError != nil {
		publisher.systemLog.Printf("cannot marshal %s record - %v",
			record.Kind, marshalError)
		return
	}

	topic := publisher.topic + "/" + record.Kind
	token := publisher.client.Publish(topic, 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		publisher.systemLog.Printf("cannot publish to %s - %v",
			topic, token.Error())
		return
	}

	publisher.systemLog.Printf("published %s record for PRN %d",
		record.Kind, record.SatellitePRN)
}
