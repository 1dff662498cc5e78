package main

import (
	"encoding/json"
	"log"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/goblimey/go-cnav/cnav/fields"
	cnav "github.com/goblimey/go-cnav/cnav/handler"
	"github.com/goblimey/go-cnav/cnav/testdata"
	"github.com/goblimey/go-cnav/cnav/utils"
	"github.com/goblimey/go-tools/switchwriter"
)

// stubToken is an mqtt.Token that always succeeds immediately.
type stubToken struct{}

func (token *stubToken) Wait() bool                     { return true }
func (token *stubToken) WaitTimeout(time.Duration) bool { return true }
func (token *stubToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (token *stubToken) Error() error { return nil }

// stubBroker records what was published.
type stubBroker struct {
	topics   []string
	payloads [][]byte
}

func (broker *stubBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	broker.topics = append(broker.topics, topic)
	broker.payloads = append(broker.payloads, payload.([]byte))
	return &stubToken{}
}

// toMessage runs the given page frame through the page handler.
func toMessage(t *testing.T, frame []byte) cnav.Message {
	t.Helper()
	handler := cnav.New(slog.LevelInfo)
	message, err := handler.GetMessage(frame)
	if err != nil {
		t.Fatal(err)
	}
	return *message
}

func testLogger() *log.Logger {
	return log.New(switchwriter.New(), "cnavpublisher_test", 0)
}

// TestHandleMessages checks that a matching ephemeris pair and a
// clock/iono page produce an ephemeris record and an iono record on
// the right topics.
func TestHandleMessages(t *testing.T) {

	broker := stubBroker{}
	publisher := NewPublisher(&broker, "gnss/cnav", 0, testLogger())

	messageChan := make(chan cnav.Message, 4)
	messageChan <- toMessage(t,
		testdata.NewBuilder(7, utils.MessageTypeEphemeris1, 30000, false).
			Set(fields.Toe1, 24).
			Seal().Bytes())
	messageChan <- toMessage(t,
		testdata.NewBuilder(7, utils.MessageTypeEphemeris2, 30004, false).
			Set(fields.Toe2, 24).
			Seal().Bytes())
	messageChan <- toMessage(t,
		testdata.NewBuilder(7, utils.MessageTypeClockIono, 30008, false).
			SetSigned(fields.Alpha0, -100).
			Seal().Bytes())
	close(messageChan)

	publisher.HandleMessages(messageChan)

	wantTopics := []string{"gnss/cnav/ephemeris", "gnss/cnav/iono"}

	if len(broker.topics) != len(wantTopics) {
		t.Fatalf("want %d publications got %d", len(wantTopics), len(broker.topics))
	}

	for i, topic := range wantTopics {
		if broker.topics[i] != topic {
			t.Errorf("%d: want topic %s got %s", i, topic, broker.topics[i])
		}
	}

	// Check the ephemeris record.
	var ephRecord Record
	if err := json.Unmarshal(broker.payloads[0], &ephRecord); err != nil {
		t.Fatal(err)
	}

	if ephRecord.Kind != "ephemeris" {
		t.Errorf("want kind ephemeris got %s", ephRecord.Kind)
	}

	if ephRecord.SatellitePRN != 7 {
		t.Errorf("want PRN 7 got %d", ephRecord.SatellitePRN)
	}

	if ephRecord.Ephemeris == nil {
		t.Fatal("want an ephemeris in the record")
	}

	if ephRecord.Ephemeris.Toe1 != 24*utils.EpochLSB {
		t.Errorf("want Toe %f got %f",
			24*utils.EpochLSB, ephRecord.Ephemeris.Toe1)
	}

	if ephRecord.Iono != nil || ephRecord.UtcModel != nil {
		t.Error("ephemeris record should not carry other records")
	}

	// Check the iono record.
	var ionRecord Record
	if err := json.Unmarshal(broker.payloads[1], &ionRecord); err != nil {
		t.Fatal(err)
	}

	if ionRecord.Kind != "iono" {
		t.Errorf("want kind iono got %s", ionRecord.Kind)
	}

	if ionRecord.Iono == nil {
		t.Fatal("want an iono model in the record")
	}

	if ionRecord.Iono.Alpha0 != -100*fields.Alpha0LSB {
		t.Errorf("want alpha0 %e got %e",
			-100*fields.Alpha0LSB, ionRecord.Iono.Alpha0)
	}
}

// TestHandleMessagesWithMismatchedPair checks that nothing is
// published when the two ephemeris halves are from different epochs.
func TestHandleMessagesWithMismatchedPair(t *testing.T) {

	broker := stubBroker{}
	publisher := NewPublisher(&broker, "gnss/cnav", 0, testLogger())

	messageChan := make(chan cnav.Message, 2)
	messageChan <- toMessage(t,
		testdata.NewBuilder(7, utils.MessageTypeEphemeris1, 30000, false).
			Set(fields.Toe1, 24).
			Seal().Bytes())
	messageChan <- toMessage(t,
		testdata.NewBuilder(7, utils.MessageTypeEphemeris2, 30004, false).
			Set(fields.Toe2, 25).
			Seal().Bytes())
	close(messageChan)

	publisher.HandleMessages(messageChan)

	if len(broker.topics) != 0 {
		t.Errorf("want no publications got %d on %v",
			len(broker.topics), broker.topics)
	}
}

// TestHandleMessagesPerSatellite checks that pages from different
// satellites go to different decoders - two halves from different
// satellites must never merge into one ephemeris.
func TestHandleMessagesPerSatellite(t *testing.T) {

	broker := stubBroker{}
	publisher := NewPublisher(&broker, "gnss/cnav", 0, testLogger())

	messageChan := make(chan cnav.Message, 2)
	messageChan <- toMessage(t,
		testdata.NewBuilder(7, utils.MessageTypeEphemeris1, 30000, false).
			Set(fields.Toe1, 24).
			Seal().Bytes())
	messageChan <- toMessage(t,
		testdata.NewBuilder(8, utils.MessageTypeEphemeris2, 30004, false).
			Set(fields.Toe2, 24).
			Seal().Bytes())
	close(messageChan)

	publisher.HandleMessages(messageChan)

	if len(broker.topics) != 0 {
		t.Errorf("want no publications got %d on %v",
			len(broker.topics), broker.topics)
	}
}
