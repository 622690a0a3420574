// Package ingest bridges collar devices publishing over MQTT into the
// scoring pipeline. HTTP ingest and MQTT ingest share the same validation
// and pipeline path.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"collarwatch/internal/model"
	"collarwatch/internal/scoring"
	"collarwatch/internal/store"
)

// Devices publish JSON readings to collars/<device_id>/telemetry.
const telemetryTopic = "collars/+/telemetry"

var (
	mqttReadings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collarwatch_mqtt_readings_total",
		Help: "Telemetry readings received over MQTT",
	})
	mqttRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collarwatch_mqtt_rejected_total",
		Help: "MQTT readings rejected before scoring",
	})
)

// CollarResolver maps the device id on the wire to a registered collar.
type CollarResolver interface {
	CollarByDeviceID(ctx context.Context, deviceID string) (*model.Collar, error)
	TouchCollar(ctx context.Context, collarID string, battery, lat, lon, accuracy *float64) error
}

// Bridge subscribes to collar telemetry and feeds it through the pipeline.
type Bridge struct {
	client   mqtt.Client
	pipeline *scoring.Pipeline
	collars  CollarResolver
}

// devicePayload is the wire format devices publish. Battery rides alongside
// the reading; the rest is the same shape HTTP ingest accepts.
type devicePayload struct {
	model.SensorReading
	BatteryLevel *float64 `json:"battery_level,omitempty"`
}

// NewBridge connects to the broker and subscribes. brokerURL empty means
// MQTT ingest is disabled and the caller should not construct a bridge.
func NewBridge(brokerURL, clientID string, pipeline *scoring.Pipeline, collars CollarResolver) (*Bridge, error) {
	b := &Bridge{pipeline: pipeline, collars: collars}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			if token := c.Subscribe(telemetryTopic, 1, b.handle); token.Wait() && token.Error() != nil {
				log.Printf("ingest: subscribe %s: %v", telemetryTopic, token.Error())
				return
			}
			log.Printf("ingest: subscribed to %s", telemetryTopic)
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Printf("ingest: connection lost: %v", err)
		})

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to broker %s: %w", brokerURL, token.Error())
	}
	return b, nil
}

func (b *Bridge) Close() {
	b.client.Disconnect(250)
}

func (b *Bridge) handle(_ mqtt.Client, msg mqtt.Message) {
	deviceID := deviceFromTopic(msg.Topic())
	if deviceID == "" {
		mqttRejected.Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var payload devicePayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		mqttRejected.Inc()
		log.Printf("ingest: decode payload from %s: %v", deviceID, err)
		return
	}

	collar, err := b.collars.CollarByDeviceID(ctx, deviceID)
	if err != nil {
		mqttRejected.Inc()
		log.Printf("ingest: unknown device %s: %v", deviceID, err)
		return
	}
	if collar.DogID == "" {
		mqttRejected.Inc()
		log.Printf("ingest: collar %s has no assigned dog", deviceID)
		return
	}

	reading := payload.SensorReading
	reading.CollarID = collar.ID
	reading.DogID = collar.DogID

	if err := reading.Validate(); err != nil {
		mqttRejected.Inc()
		log.Printf("ingest: invalid reading from %s: %v", deviceID, err)
		return
	}

	if _, err := b.pipeline.ScoreAndRecord(ctx, &reading); err != nil {
		log.Printf("ingest: score reading from %s: %v", deviceID, err)
		return
	}
	mqttReadings.Inc()

	if err := b.collars.TouchCollar(ctx, collar.ID, payload.BatteryLevel,
		reading.GPSLatitude, reading.GPSLongitude, reading.GPSAccuracy); err != nil {
		log.Printf("ingest: touch collar %s: %v", deviceID, err)
	}
}

func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "collars" || parts[2] != "telemetry" {
		return ""
	}
	return parts[1]
}

var _ CollarResolver = (*store.Store)(nil)
