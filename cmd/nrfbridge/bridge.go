package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/soypat/nrf24"
	mqtt "github.com/soypat/natiu-mqtt"
)

var errDisconnected = errors.New("mqtt disconnected")

type publisher interface {
	Publish(topic string, payload []byte) error
}

func pipeTopic(prefix string, pipe uint8) string {
	return prefix + "/pipe/" + strconv.Itoa(int(pipe))
}

// pump forwards packets received on rx to pub until ctx is done. Packets that
// fail to publish are dropped.
func pump(ctx context.Context, rx *nrf24.Rx, pub publisher, prefix string, poll time.Duration, logger *slog.Logger) error {
	var received, dropped int
	defer func() {
		logger.Info("pump:stop", slog.Int("received", received), slog.Int("dropped", dropped))
	}()
	for {
		p, err := rx.Read()
		switch {
		case err == nil:
			received++
			topic := pipeTopic(prefix, p.Pipe())
			err = pub.Publish(topic, p.Bytes())
			if err != nil {
				dropped++
				logger.Warn("pump:publish-failed", slog.String("topic", topic), slog.String("err", err.Error()))
			} else {
				logger.Debug("pump:published", slog.String("topic", topic), slog.Int("len", p.Len()))
			}
			continue // Drain the RX FIFO before sleeping.
		case errors.Is(err, nrf24.ErrWouldBlock):
		case errors.Is(err, nrf24.ErrCorruptPayload):
			dropped++
		default:
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// mqttPublisher publishes QoS0 messages and keeps the broker connection alive.
type mqttPublisher struct {
	cfg     MQTTConfig
	logger  *slog.Logger
	client  *mqtt.Client
	varconn mqtt.VariablesConnect
	flags   mqtt.PacketFlags

	mu   sync.Mutex
	conn net.Conn
}

func newMQTTPublisher(cfg MQTTConfig, logger *slog.Logger) *mqttPublisher {
	m := &mqttPublisher{
		cfg:    cfg,
		logger: logger,
		client: mqtt.NewClient(mqtt.ClientConfig{
			Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1500)},
		}),
	}
	m.flags, _ = mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	m.varconn.SetDefaultMQTT([]byte(cfg.ClientID))
	m.varconn.KeepAlive = cfg.KeepAliveSec
	if cfg.Username != "" {
		m.varconn.Username = []byte(cfg.Username)
		m.varconn.Password = []byte(cfg.Password)
	}
	return m
}

func (m *mqttPublisher) Publish(topic string, payload []byte) error {
	if !m.client.IsConnected() {
		return errDisconnected
	}
	return m.client.PublishPayload(m.flags, mqtt.VariablesPublish{TopicName: []byte(topic)}, payload)
}

// run reconnects with exponential backoff and sends keepalive pings until ctx
// is done.
func (m *mqttPublisher) run(ctx context.Context) {
	const maxBackoff = 30 * time.Second
	backoff := time.Second
	keepalive := time.Duration(m.cfg.KeepAliveSec) * time.Second
	for ctx.Err() == nil {
		wait := time.Second
		if !m.client.IsConnected() {
			err := m.connect(ctx)
			if err != nil {
				m.logger.Error("mqtt:connect-failed", slog.String("broker", m.cfg.Broker), slog.String("err", err.Error()), slog.Duration("retry", backoff))
				wait = backoff
				backoff = min(2*backoff, maxBackoff)
			} else {
				m.logger.Info("mqtt:connected", slog.String("broker", m.cfg.Broker))
				backoff = time.Second
			}
		} else if keepalive > 0 && time.Since(m.client.LastTx()) > keepalive/2 {
			if err := m.client.StartPing(); err != nil {
				m.logger.Warn("mqtt:ping-failed", slog.String("err", err.Error()))
			}
		}
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
}

func (m *mqttPublisher) connect(ctx context.Context) error {
	timeout := time.Duration(m.cfg.TimeoutSec) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", m.cfg.Broker)
	if err != nil {
		return err
	}
	conn.SetDeadline(time.Now().Add(timeout))
	err = m.client.Connect(ctx, conn, &m.varconn)
	if err != nil {
		conn.Close()
		return err
	}
	conn.SetDeadline(time.Time{})
	m.setConn(conn)
	go m.readLoop()
	return nil
}

// setConn replaces the broker connection. The client does not close the
// transport when it sees EOF so the previous connection is closed here.
func (m *mqttPublisher) setConn(conn net.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.conn = conn
}

// readLoop handles incoming packets such as PINGRESP until disconnected.
func (m *mqttPublisher) readLoop() {
	for m.client.IsConnected() {
		err := m.client.HandleNext()
		if err != nil {
			m.logger.Warn("mqtt:disconnected", slog.String("err", err.Error()))
		}
	}
}

// Close closes the broker connection, which unblocks readLoop.
func (m *mqttPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
