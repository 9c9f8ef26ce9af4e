package nrf24

// SPI is the full duplex bus the transceiver is attached to. It is satisfied by
// machine.SPI, tinygo.org/x/drivers.SPI and periph.io's spi.Conn.
type SPI interface {
	// Tx clocks out w while clocking in r. Both buffers have the same length.
	Tx(w, r []byte) error
}

// OutputPin sets a digital output line. true is high.
type OutputPin func(level bool)
