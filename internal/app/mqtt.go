// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

// ClientID returns a broker-unique client id such as
// "gnss-overlay-producer-3f2a9c1e".
func ClientID(prefix, role string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, role, uuid.NewString()[:8])
}

// ConnectMQTT connects to the broker with auto-reconnect enabled.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, token.Error())
	}
	glog.Infof("mqtt: %s connected to broker at %s", clientID, broker)
	return client, nil
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// DefaultPublishTimeout bounds the wait for a publish acknowledgement.
const DefaultPublishTimeout = 2 * time.Second

// FixPublisher publishes fixes as retained JSON so late subscribers get the
// latest one immediately.
type FixPublisher struct {
	Client  publisher
	Topic   string
	QoS     byte
	Timeout time.Duration // zero means DefaultPublishTimeout
}

// PublishFix implements FixSink.
func (p *FixPublisher) PublishFix(f gps.Fix) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("mqtt: marshal fix: %w", err)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	token := p.Client.Publish(p.Topic, p.QoS, true, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt: publish %s: no acknowledgement within %s", p.Topic, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", p.Topic, err)
	}
	return nil
}

// SubscribeFixes calls fn for every valid fix published on topic.
func SubscribeFixes(client subscriber, topic string, qos byte, fn func(gps.Fix)) error {
	token := client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			glog.Warningf("mqtt: fix unmarshal error on %s: %v", msg.Topic(), err)
			return
		}
		if err := f.Validate(); err != nil {
			glog.Warningf("mqtt: dropping fix on %s: %v", msg.Topic(), err)
			return
		}
		fn(f)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", topic, err)
	}
	glog.Infof("mqtt: subscribed to %s", topic)
	return nil
}
