//go:build tinygo

package nrf24

import (
	"machine"

	"tinygo.org/x/drivers"
)

var (
	_ SPI         = (drivers.SPI)(nil)
	_ drivers.SPI = (*SPIbb)(nil)
)

// NewMachine configures the CE and CSN pins as outputs and initializes the
// transceiver on spi, which must be configured in mode 0 at 10MHz or less.
//
//	machine.SPI0.Configure(machine.SPIConfig{Frequency: 8 * machine.MHz})
//	radio, err := nrf24.NewMachine(machine.SPI0, machine.GP20, machine.GP17, nrf24.Config{})
func NewMachine(spi drivers.SPI, ce, csn machine.Pin, cfg Config) (*Standby, error) {
	ce.Configure(machine.PinConfig{Mode: machine.PinOutput})
	csn.Configure(machine.PinConfig{Mode: machine.PinOutput})
	csn.High()
	return New(spi, ce.Set, csn.Set, cfg)
}
