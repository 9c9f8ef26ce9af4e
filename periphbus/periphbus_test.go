package periphbus

import (
	"errors"
	"testing"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/internal/nrfsim"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"
)

type simConn struct {
	sim *nrfsim.Radio
}

func (c simConn) String() string       { return "nrfsim" }
func (c simConn) Duplex() conn.Duplex  { return conn.Full }
func (c simConn) Tx(w, r []byte) error { return c.sim.Tx(w, r) }
func (c simConn) TxPackets(p []spi.Packet) error {
	for i := range p {
		if err := c.sim.Tx(p[i].W, p[i].R); err != nil {
			return err
		}
	}
	return nil
}

// simPin mirrors its level onto the simulated radio.
type simPin struct {
	*gpiotest.Pin
	set func(bool)
	err error
}

func (p *simPin) Out(l gpio.Level) error {
	if p.err != nil {
		return p.err
	}
	p.set(bool(l))
	return p.Pin.Out(l)
}

func newSimBus(t *testing.T) (*Bus, *nrfsim.Radio, *simPin) {
	t.Helper()
	sim := nrfsim.New()
	ce := &simPin{Pin: &gpiotest.Pin{N: "CE"}, set: sim.CE}
	csn := &simPin{Pin: &gpiotest.Pin{N: "CSN", L: gpio.High}, set: sim.CSN}
	return New(simConn{sim: sim}, ce, csn), sim, ce
}

func TestRadio(t *testing.T) {
	bus, sim, ce := newSimBus(t)
	defer bus.Close()
	sb, err := bus.Radio(nrf24.Config{})
	if err != nil {
		t.Fatal(err)
	}
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Send([]byte("periph")); err != nil {
		t.Fatal(err)
	}
	if ce.Read() != gpio.High {
		t.Error("CE pin not raised by Send")
	}
	if err := tx.WaitEmpty(); err != nil {
		t.Fatal(err)
	}
	if ce.Read() != gpio.Low {
		t.Error("CE pin still high after transmission")
	}
	if len(sim.Sent) != 1 || string(sim.Sent[0]) != "periph" {
		t.Errorf("sent %q", sim.Sent)
	}
	if sim.Violations != 0 {
		t.Error("transactions without CSN:", sim.Violations)
	}
	if bus.String() != "nrfsim" {
		t.Error("unexpected String:", bus.String())
	}
}

func TestPinError(t *testing.T) {
	bus, _, ce := newSimBus(t)
	sb, err := bus.Radio(nrf24.Config{})
	if err != nil {
		t.Fatal(err)
	}
	errPin := errors.New("gpio busy")
	ce.err = errPin
	bus.CE(true)
	_, err = sb.Status()
	if !errors.Is(err, errPin) {
		t.Fatalf("got %v, want pin error", err)
	}
	if _, err = sb.Status(); err != nil {
		t.Error("pin error reported twice:", err)
	}
}

func TestHardwareCS(t *testing.T) {
	sim := nrfsim.New()
	// Without a CSN pin the port asserts chip select itself.
	sim.CSN(false)
	bus := New(simConn{sim: sim}, &simPin{Pin: &gpiotest.Pin{N: "CE"}, set: sim.CE}, nil)
	bus.CSN(true)
	if _, err := bus.Radio(nrf24.Config{}); err != nil {
		t.Fatal(err)
	}
}
