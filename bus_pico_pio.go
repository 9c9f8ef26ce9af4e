//go:build (rp2040 || rp2350) && !nrf24nopio

package nrf24

import (
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"
)

// NewPicoPIO initializes a transceiver on arbitrary pins using a PIO0 state
// machine as SPI controller, leaving the hardware SPI peripherals free.
// frequency is the SPI clock in Hz, 0 selects 8MHz.
func NewPicoPIO(sck, sdo, sdi, ce, csn machine.Pin, frequency uint32, cfg Config) (*Standby, error) {
	if frequency == 0 {
		frequency = 8 * machine.MHz
	}
	ce.Configure(machine.PinConfig{Mode: machine.PinOutput})
	csn.Configure(machine.PinConfig{Mode: machine.PinOutput})
	csn.High()
	sm, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		return nil, err
	}
	spi, err := piolib.NewSPI(sm, machine.SPIConfig{
		Frequency: frequency,
		SCK:       sck,
		SDO:       sdo,
		SDI:       sdi,
		Mode:      0,
	})
	if err != nil {
		sm.Unclaim()
		return nil, err
	}
	return New(spi, ce.Set, csn.Set, cfg)
}
