/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package announce learns about devices from MQTT.
//
// A device publishes a discovery.Device (CBOR or JSON) to
// PREFIX/devices/SYSTEMID, usually retained.  An empty payload, which
// also clears a retained message, means the device has left.
package announce

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Comcast/pcom/contract"
	"github.com/Comcast/pcom/device"
	"github.com/Comcast/pcom/discovery"
	"github.com/Comcast/pcom/storage"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var NotConnected = errors.New("not connected")

// Options configures the MQTT client.
type Options struct {
	Broker    string
	ClientId  string
	Username  string
	Password  string
	KeepAlive time.Duration
	Reconnect bool
	Insecure  bool

	// Prefix is the first part of every topic.
	Prefix string

	QoS byte

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint
}

// Listener applies device announcements to a Pool, a Catalog, and a
// Storage.  Any of those can be nil.
type Listener struct {
	Client  mqtt.Client
	Prefix  string
	QoS     byte
	Quiesce uint

	Devices *device.Pool
	Catalog *discovery.Catalog
	Storage storage.Storage

	Verbose bool
}

// NewListener makes a Listener with a new (unconnected) MQTT client.
func NewListener(o *Options, pool *device.Pool, c *discovery.Catalog, s storage.Storage) *Listener {
	mqtt.ERROR = log.New(os.Stderr, "mqtt.error ", 0)

	l := &Listener{
		Prefix:  o.Prefix,
		QoS:     o.QoS,
		Quiesce: o.Quiesce,
		Devices: pool,
		Catalog: c,
		Storage: s,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientId)
	if o.KeepAlive > 0 {
		opts.SetKeepAlive(o.KeepAlive)
	}
	opts.Username = o.Username
	opts.Password = o.Password
	opts.AutoReconnect = o.Reconnect
	opts.CleanSession = true
	opts.SetTLSConfig(&tls.Config{
		InsecureSkipVerify: o.Insecure,
	})

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("announce MQTT connection lost: %v", err)
	}

	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		if err := l.Handle(context.Background(), msg.Topic(), msg.Payload()); err != nil {
			log.Printf("announce %s error %v", msg.Topic(), err)
		}
	}

	l.Client = mqtt.NewClient(opts)

	return l
}

func (l *Listener) logf(format string, args ...interface{}) {
	if l.Verbose {
		log.Printf("Listener."+format, args...)
	}
}

// Topic returns the announcement topic for the device.
func Topic(prefix, systemId string) string {
	return strings.TrimSuffix(prefix, "/") + "/devices/" + systemId
}

// SystemId extracts the system id from an announcement topic.
func SystemId(prefix, topic string) (string, bool) {
	p := strings.TrimSuffix(prefix, "/") + "/devices/"
	if !strings.HasPrefix(topic, p) {
		return "", false
	}
	sid := topic[len(p):]
	if sid == "" || strings.Contains(sid, "/") {
		return "", false
	}
	return sid, true
}

// Decode parses a JSON object or CBOR.
func Decode(payload []byte) (*discovery.Device, error) {
	var d discovery.Device
	if bytes.HasPrefix(bytes.TrimSpace(payload), []byte("{")) {
		if err := json.Unmarshal(payload, &d); err != nil {
			return nil, err
		}
		return &d, nil
	}
	if err := contract.DecodeCBOR(payload, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Encode makes the CBOR payload for the device.
func Encode(d *discovery.Device) ([]byte, error) {
	return contract.EncodeCBOR(d)
}

// Handle processes one announcement.
func (l *Listener) Handle(ctx context.Context, topic string, payload []byte) error {
	sid, ok := SystemId(l.Prefix, topic)
	if !ok {
		return fmt.Errorf("unexpected topic %s", topic)
	}

	if len(payload) == 0 {
		l.logf("Handle %s left", sid)
		discovery.Forget(sid, l.Catalog, l.Devices)
		if l.Storage != nil {
			return l.Storage.RemDevice(ctx, sid)
		}
		return nil
	}

	d, err := Decode(payload)
	if err != nil {
		return err
	}
	if d.SystemId != "" && d.SystemId != sid {
		return fmt.Errorf("device %s announced on %s", d.SystemId, topic)
	}
	d.SystemId = sid

	l.logf("Handle %s with %d providers and %d offers", sid, len(d.Providers), len(d.Offers))
	if err = d.Apply(l.Catalog, l.Devices); err != nil {
		return err
	}
	if l.Storage != nil {
		return l.Storage.PutDevice(ctx, d)
	}
	return nil
}

// Start connects and subscribes.
func (l *Listener) Start(ctx context.Context) error {
	log.Printf("announce connecting to broker")
	if token := l.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	topic := Topic(l.Prefix, "+")
	log.Printf("announce subscribing to %s (%d)", topic, l.QoS)
	if t := l.Client.Subscribe(topic, l.QoS, nil); t.Wait() && t.Error() != nil {
		return t.Error()
	}
	return nil
}

// Announce publishes (and retains) the device.
func (l *Listener) Announce(ctx context.Context, d *discovery.Device) error {
	if l.Client == nil || !l.Client.IsConnected() {
		return NotConnected
	}
	bs, err := Encode(d)
	if err != nil {
		return err
	}
	t := l.Client.Publish(Topic(l.Prefix, d.SystemId), l.QoS, true, bs)
	t.Wait()
	return t.Error()
}

// Withdraw clears the device's retained announcement.
func (l *Listener) Withdraw(ctx context.Context, systemId string) error {
	if l.Client == nil || !l.Client.IsConnected() {
		return NotConnected
	}
	t := l.Client.Publish(Topic(l.Prefix, systemId), l.QoS, true, []byte{})
	t.Wait()
	return t.Error()
}

// Stop disconnects.
func (l *Listener) Stop() {
	log.Printf("announce disconnecting")
	l.Client.Disconnect(l.Quiesce)
}
