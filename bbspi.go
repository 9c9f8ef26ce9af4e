//go:build tinygo

package nrf24

import (
	"device"
	"machine"
)

// SPIbb is a bit-bang implementation of SPI mode 0 (CPOL=0, CPHA=0), MSB
// first, for boards without a free SPI peripheral. The transceiver samples SDO
// on the rising SCK edge and shifts out SDI on the falling edge.
type SPIbb struct {
	SCK machine.Pin
	SDI machine.Pin
	SDO machine.Pin
	// Delay is the number of nops per quarter clock cycle.
	Delay uint32
}

// Configure sets up SCK and SDO as outputs driven low and SDI as input.
func (s *SPIbb) Configure() {
	s.SCK.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.SDO.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.SDI.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	s.SCK.Low()
	s.SDO.Low()
	if s.Delay == 0 {
		s.Delay = 1
	}
}

// Tx matches signature of machine.SPI.Tx. If r is shorter than w the excess
// input is discarded. If w is shorter than r zeros are clocked out.
func (s *SPIbb) Tx(w, r []byte) error {
	n := max(len(w), len(r))
	for i := 0; i < n; i++ {
		var out byte
		if i < len(w) {
			out = w[i]
		}
		in := s.transfer(out)
		if i < len(r) {
			r[i] = in
		}
	}
	return nil
}

// Transfer matches signature of machine.SPI.Transfer.
func (s *SPIbb) Transfer(b byte) (byte, error) {
	return s.transfer(b), nil
}

func (s *SPIbb) transfer(b byte) (in byte) {
	for bit := 7; bit >= 0; bit-- {
		s.SDO.Set(b&(1<<bit) != 0)
		s.delay()
		s.SCK.High()
		s.delay()
		if s.SDI.Get() {
			in |= 1 << bit
		}
		s.delay()
		s.SCK.Low()
		s.delay()
	}
	return in
}

// delay represents a quarter of the clock cycle.
//
//go:inline
func (s *SPIbb) delay() {
	for i := uint32(0); i < s.Delay; i++ {
		device.Asm("nop")
	}
}
