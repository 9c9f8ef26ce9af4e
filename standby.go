package nrf24

import (
	"log/slog"

	"github.com/soypat/nrf24/reg"
)

// Standby is the transceiver powered up with CE low, ready to switch to TX or
// RX mode. Registers are usually configured in this mode.
//
// A Standby handle is consumed by a successful mode transition. Calls on a
// consumed handle return [ErrConsumed].
type Standby struct {
	mode
}

// PowerDown is the transceiver with PWR_UP cleared. Register values are kept
// and can be written while powered down.
//
// A PowerDown handle is consumed by a successful [PowerDown.PowerUp].
type PowerDown struct {
	mode
}

// PowerUp sets PWR_UP and waits for the crystal oscillator to start.
// It is the inverse of [Standby.PowerDown].
func (p *PowerDown) PowerUp() (*Standby, error) {
	d, err := p.device()
	if err != nil {
		return nil, err
	}
	d.CEDisable()
	err = d.powerUp()
	if err != nil {
		return nil, err
	}
	d.debug("nrf24:power-up")
	return &Standby{mode{dev: p.take()}}, nil
}

// PowerDown clears PWR_UP and returns the powered down handle.
func (s *Standby) PowerDown() (*PowerDown, error) {
	d, err := s.device()
	if err != nil {
		return nil, err
	}
	err = d.UpdateConfig(func(c *reg.Config) { c.SetPwrUp(false) })
	if err != nil {
		return nil, err
	}
	d.debug("nrf24:power-down")
	return &PowerDown{mode{dev: s.take()}}, nil
}

// Tx switches to TX mode. CE is kept low until a payload is sent.
func (s *Standby) Tx() (*Tx, error) {
	d, err := s.device()
	if err != nil {
		return nil, err
	}
	err = d.UpdateConfig(func(c *reg.Config) { c.SetPrimRx(false) })
	if err != nil {
		return nil, err
	}
	d.debug("nrf24:standby->tx")
	return &Tx{mode{dev: s.take()}}, nil
}

// Rx switches to RX mode and raises CE to start listening.
func (s *Standby) Rx() (*Rx, error) {
	d, err := s.device()
	if err != nil {
		return nil, err
	}
	err = d.UpdateConfig(func(c *reg.Config) { c.SetPrimRx(true) })
	if err != nil {
		return nil, err
	}
	d.CEEnable()
	d.debug("nrf24:standby->rx", slog.String("config", d.config.String()))
	return &Rx{mode{dev: s.take()}}, nil
}

// standbyFrom lowers CE and moves the device of m to a new Standby handle.
func standbyFrom(m *mode) *Standby {
	d := m.take()
	d.CEDisable()
	return &Standby{mode{dev: d}}
}
