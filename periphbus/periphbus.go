// Package periphbus attaches an nRF24L01(+) to a Linux host through spidev and
// sysfs/gpiochip GPIO using periph.io.
package periphbus

import (
	"errors"
	"io"

	"github.com/soypat/nrf24"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// DefaultFrequency is the SPI clock used when Config.Frequency is zero.
const DefaultFrequency = 8 * physic.MegaHertz

// Config selects the SPI port and GPIO pins the transceiver is wired to.
type Config struct {
	// Bus is the spireg port name, i.e: "/dev/spidev0.0" or "SPI0.0".
	// Empty selects the first port found.
	Bus string
	// Frequency is the SPI clock. The transceiver supports up to 10MHz.
	Frequency physic.Frequency
	// CE is the gpioreg name of the pin wired to CE, i.e: "GPIO25".
	CE string
	// CSN is the gpioreg name of the pin wired to CSN. If empty the spidev
	// hardware chip select is used, which frames each transaction.
	CSN string
}

// Bus implements [nrf24.SPI] and provides CE and CSN as [nrf24.OutputPin]s.
// GPIO errors are reported by the next call to Tx since output pins can't
// return errors.
type Bus struct {
	conn   spi.Conn
	closer io.Closer
	ce     gpio.PinOut
	csn    gpio.PinOut
	err    error
}

var _ nrf24.SPI = (*Bus)(nil)

// Open initializes the host drivers and opens the SPI port and pins named in cfg.
func Open(cfg Config) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	if cfg.CE == "" {
		return nil, errors.New("periphbus: CE pin not specified")
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultFrequency
	}
	ce := gpioreg.ByName(cfg.CE)
	if ce == nil {
		return nil, errors.New("periphbus: CE pin " + cfg.CE + " not found")
	}
	var csn gpio.PinOut
	mode := spi.Mode0
	if cfg.CSN != "" {
		pin := gpioreg.ByName(cfg.CSN)
		if pin == nil {
			return nil, errors.New("periphbus: CSN pin " + cfg.CSN + " not found")
		}
		csn = pin
		mode |= spi.NoCS
	}
	port, err := spireg.Open(cfg.Bus)
	if err != nil {
		return nil, err
	}
	conn, err := port.Connect(cfg.Frequency, mode, 8)
	if err != nil {
		port.Close()
		return nil, errors.Join(errors.New("periphbus: connecting to "+port.String()), err)
	}
	b := New(conn, ce, csn)
	b.closer = port
	return b, nil
}

// New returns a Bus over an already connected SPI conn. csn may be nil if conn
// asserts chip select on its own for every Tx call.
func New(conn spi.Conn, ce, csn gpio.PinOut) *Bus {
	return &Bus{conn: conn, ce: ce, csn: csn}
}

// Radio initializes the transceiver attached to b.
func (b *Bus) Radio(cfg nrf24.Config) (*nrf24.Standby, error) {
	return nrf24.New(b, b.CE, b.CSN, cfg)
}

// Tx performs a full duplex transaction.
func (b *Bus) Tx(w, r []byte) error {
	if b.err != nil {
		err := b.err
		b.err = nil
		return err
	}
	return b.conn.Tx(w, r)
}

// CE sets the CE pin level.
func (b *Bus) CE(level bool) { b.out(b.ce, level) }

// CSN sets the CSN pin level. It is a no-op when using hardware chip select.
func (b *Bus) CSN(level bool) {
	if b.csn != nil {
		b.out(b.csn, level)
	}
}

func (b *Bus) out(p gpio.PinOut, level bool) {
	if err := p.Out(gpio.Level(level)); err != nil && b.err == nil {
		b.err = errors.Join(errors.New("periphbus: "+p.Name()), err)
	}
}

// Close releases the SPI port. Pins are left as they are.
func (b *Bus) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func (b *Bus) String() string {
	return b.conn.String()
}
