package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
)

// MQTTClient is the part of common/mqtt.Client the publisher needs.
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	QoS() byte
}

// MQTTPublisher sends each event to <prefix>/<kind>.
type MQTTPublisher struct {
	client MQTTClient
	prefix string
}

func NewMQTTPublisher(client MQTTClient, prefix string) *MQTTPublisher {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "vaac/events"
	}
	return &MQTTPublisher{client: client, prefix: prefix}
}

// Topic returns the topic an event of kind is published on.
func (p *MQTTPublisher) Topic(kind domain.EventKind) string {
	return p.prefix + "/" + string(kind)
}

func (p *MQTTPublisher) Publish(_ context.Context, events []domain.CaseEvent) error {
	for i := range events {
		payload, err := json.Marshal(&events[i])
		if err != nil {
			return fmt.Errorf("encode event %d: %w", events[i].Seq, err)
		}
		if err := p.client.Publish(p.Topic(events[i].Kind), p.client.QoS(), false, payload); err != nil {
			return err
		}
	}
	return nil
}
