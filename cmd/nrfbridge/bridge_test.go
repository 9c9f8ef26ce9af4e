package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/internal/nrfsim"
)

type message struct {
	topic   string
	payload string
}

type fakePublisher struct {
	msgs []message
	err  error
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, message{topic: topic, payload: string(payload)})
	return nil
}

func TestPump(t *testing.T) {
	sim := nrfsim.New()
	sb, err := nrf24.New(sim, sim.CE, sim.CSN, nrf24.Config{})
	if err != nil {
		t.Fatal(err)
	}
	cfg := defaultConfig().Radio
	cfg.Pipes = append(cfg.Pipes, PipeConfig{Pipe: 3, Address: "c3", Length: 2})
	if err := configureRadio(sb, cfg); err != nil {
		t.Fatal(err)
	}
	rx, err := sb.Rx()
	if err != nil {
		t.Fatal(err)
	}
	sim.Inject(1, []byte("hello"))
	sim.Inject(3, []byte("ok"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var pub fakePublisher
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = pump(ctx, rx, &pub, "nrf", time.Millisecond, logger)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected deadline exceeded, got", err)
	}
	want := []message{{"nrf/pipe/1", "hello"}, {"nrf/pipe/3", "ok"}}
	if len(pub.msgs) != len(want) {
		t.Fatalf("got %v, want %v", pub.msgs, want)
	}
	for i := range want {
		if pub.msgs[i] != want[i] {
			t.Errorf("message %d: got %v, want %v", i, pub.msgs[i], want[i])
		}
	}

	// Failed publishes drop the packet without stopping the pump.
	pub.err = errDisconnected
	sim.Inject(1, []byte("lost"))
	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	pump(ctx, rx, &pub, "nrf", time.Millisecond, logger)
	if sim.RxQueued() != 0 {
		t.Error("packet not drained from RX FIFO")
	}
}

func TestPumpBusError(t *testing.T) {
	sim := nrfsim.New()
	sb, err := nrf24.New(sim, sim.CE, sim.CSN, nrf24.Config{})
	if err != nil {
		t.Fatal(err)
	}
	rx, err := sb.Rx()
	if err != nil {
		t.Fatal(err)
	}
	errBus := errors.New("bus fault")
	sim.Err = errBus
	err = pump(context.Background(), rx, &fakePublisher{}, "nrf", time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != errBus {
		t.Fatal("expected bus error, got", err)
	}
}

func TestPipeTopic(t *testing.T) {
	if got := pipeTopic("a/b", 5); got != "a/b/pipe/5" {
		t.Error("got", got)
	}
}

func TestPublisherReconnectClosesConn(t *testing.T) {
	m := newMQTTPublisher(defaultConfig().MQTT, slog.New(slog.NewTextHandler(io.Discard, nil)))
	old, oldPeer := net.Pipe()
	defer oldPeer.Close()
	m.setConn(old)
	conn, peer := net.Pipe()
	defer peer.Close()
	m.setConn(conn)
	oldPeer.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := oldPeer.Read(make([]byte, 1)); err != io.EOF {
		t.Error("previous connection not closed on reconnect:", err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	peer.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := peer.Read(make([]byte, 1)); err != io.EOF {
		t.Error("connection not closed by Close:", err)
	}
}
