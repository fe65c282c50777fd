package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mr1hm/sentinel-sea/internal/config"
	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/threat"
)

const (
	connectTimeout = 30 * time.Second
	publishTimeout = 10 * time.Second
)

// ShouldAlert reports whether d warrants an operator alert: a high threat
// score, or a dark vessel inside a protected area.
func ShouldAlert(d models.Detection) bool {
	return d.ThreatScore >= threat.HighThreshold || (d.IsAnomalous() && d.InsideMPA)
}

// Alert is the JSON payload published for an alerting detection.
type Alert struct {
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	DetectionID string           `json:"detection_id"`
	VesselID    string           `json:"vessel_id"`
	Latitude    float64          `json:"latitude"`
	Longitude   float64          `json:"longitude"`
	AISStatus   models.AISStatus `json:"ais_status"`
	ThreatScore int              `json:"threat_score"`
	ThreatLevel string           `json:"threat_level"`
	InsideMPA   bool             `json:"inside_mpa"`
	MPAName     string           `json:"mpa_name,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewAlert(d models.Detection) Alert {
	n := HighThreat(&d)
	if d.ThreatScore < threat.HighThreshold {
		n.Title = "Dark Vessel In Protected Area"
		n.Message = fmt.Sprintf("%s inside %s with AIS off", d.VesselID, d.MPAName)
	}
	return Alert{
		Title:       n.Title,
		Message:     n.Message,
		DetectionID: d.ID,
		VesselID:    d.VesselID,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		AISStatus:   d.AISStatus,
		ThreatScore: d.ThreatScore,
		ThreatLevel: string(threat.Level(d.ThreatScore)),
		InsideMPA:   d.InsideMPA,
		MPAName:     d.MPAName,
		Timestamp:   d.Timestamp,
	}
}

// publisher is the part of mqtt.Client used here.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// MQTTAlerter publishes alerts to <topic>/alerts.
type MQTTAlerter struct {
	client publisher
	topic  string
}

// Dial connects to the configured broker.
func Dial(cfg config.MQTTConfig) (*MQTTAlerter, mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT connection lost", "broker", cfg.Broker, "error", err)
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		slog.Info("connected to MQTT broker", "broker", cfg.Broker)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, nil, fmt.Errorf("MQTT connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("MQTT connection error: %w", err)
	}
	return NewMQTTAlerter(client, cfg.Topic), client, nil
}

func NewMQTTAlerter(client publisher, topic string) *MQTTAlerter {
	return &MQTTAlerter{client: client, topic: topic + "/alerts"}
}

func (a *MQTTAlerter) Topic() string {
	return a.topic
}

func (a *MQTTAlerter) Alert(ctx context.Context, d models.Detection) error {
	if !ShouldAlert(d) {
		return nil
	}

	payload, err := json.Marshal(NewAlert(d))
	if err != nil {
		return fmt.Errorf("error encoding alert: %w", err)
	}

	token := a.client.Publish(a.topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish timeout on %s", a.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("error publishing alert: %w", err)
	}

	slog.Debug("alert published", "topic", a.topic, "vessel_id", d.VesselID, "threat", d.ThreatScore)
	return nil
}

// Nop drops every alert. Used when MQTT is disabled.
type Nop struct{}

func (Nop) Alert(context.Context, models.Detection) error { return nil }
