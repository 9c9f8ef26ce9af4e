// Package reg defines the nRF24L01(+) SPI command set and register map.
package reg

import "golang.org/x/exp/constraints"

// SPI command opcodes. Register commands are OR'd with a 5 bit register address.
const (
	R_REGISTER         = 0x00
	W_REGISTER         = 0x20
	R_RX_PL_WID        = 0x60
	R_RX_PAYLOAD       = 0x61
	W_TX_PAYLOAD       = 0xA0
	W_ACK_PAYLOAD      = 0xA8
	W_TX_PAYLOAD_NOACK = 0xB0
	FLUSH_TX           = 0xE1
	FLUSH_RX           = 0xE2
	REUSE_TX_PL        = 0xE3
	NOP                = 0xFF

	// AddrMask masks the register address bits of R_REGISTER/W_REGISTER.
	AddrMask = 0x1f
)

// Register map.
const (
	CONFIG      = 0x00
	EN_AA       = 0x01
	EN_RXADDR   = 0x02
	SETUP_AW    = 0x03
	SETUP_RETR  = 0x04
	RF_CH       = 0x05
	RF_SETUP    = 0x06
	STATUS      = 0x07
	OBSERVE_TX  = 0x08
	RPD         = 0x09
	RX_ADDR_P0  = 0x0A
	RX_ADDR_P1  = 0x0B
	RX_ADDR_P2  = 0x0C
	RX_ADDR_P3  = 0x0D
	RX_ADDR_P4  = 0x0E
	RX_ADDR_P5  = 0x0F
	TX_ADDR     = 0x10
	RX_PW_P0    = 0x11
	RX_PW_P1    = 0x12
	RX_PW_P2    = 0x13
	RX_PW_P3    = 0x14
	RX_PW_P4    = 0x15
	RX_PW_P5    = 0x16
	FIFO_STATUS = 0x17
	DYNPD       = 0x1C
	FEATURE     = 0x1D
)

const (
	// Pipes is the number of RX data pipes.
	Pipes = 6
	// MaxPayload is the largest payload the FIFOs hold.
	MaxPayload = 32
	// MinAddrWidth and MaxAddrWidth bound the SETUP_AW address width in bytes.
	MinAddrWidth = 3
	MaxAddrWidth = 5
	// ConfigReset is the value of CONFIG after power on reset.
	ConfigReset Config = 0b0000_1000
	// RxPipeEmpty is the RX_P_NO value reported when the RX FIFO is empty.
	RxPipeEmpty = 0b111
)

// Register is a typed view over a device register. Decode must be implemented
// on a pointer receiver so that values can be read in place.
type Register interface {
	// Addr is the 5 bit register address.
	Addr() uint8
	// Len is the register width in bytes.
	Len() int
	// Encode writes the register value to dst, len(dst)==Len().
	Encode(dst []byte)
	// Decode sets the register value from src, len(src)==Len().
	Decode(src []byte)
}

// Name returns the datasheet mnemonic of a register address.
func Name(addr uint8) string {
	addr &= AddrMask
	switch addr {
	case CONFIG:
		return "CONFIG"
	case EN_AA:
		return "EN_AA"
	case EN_RXADDR:
		return "EN_RXADDR"
	case SETUP_AW:
		return "SETUP_AW"
	case SETUP_RETR:
		return "SETUP_RETR"
	case RF_CH:
		return "RF_CH"
	case RF_SETUP:
		return "RF_SETUP"
	case STATUS:
		return "STATUS"
	case OBSERVE_TX:
		return "OBSERVE_TX"
	case RPD:
		return "RPD"
	case RX_ADDR_P0, RX_ADDR_P1, RX_ADDR_P2, RX_ADDR_P3, RX_ADDR_P4, RX_ADDR_P5:
		return "RX_ADDR_P" + string(rune('0'+addr-RX_ADDR_P0))
	case TX_ADDR:
		return "TX_ADDR"
	case RX_PW_P0, RX_PW_P1, RX_PW_P2, RX_PW_P3, RX_PW_P4, RX_PW_P5:
		return "RX_PW_P" + string(rune('0'+addr-RX_PW_P0))
	case FIFO_STATUS:
		return "FIFO_STATUS"
	case DYNPD:
		return "DYNPD"
	case FEATURE:
		return "FEATURE"
	}
	return "RESERVED"
}

// Width returns the width in bytes of the register at addr.
func Width(addr uint8) int {
	switch addr & AddrMask {
	case RX_ADDR_P0, RX_ADDR_P1, TX_ADDR:
		return MaxAddrWidth
	}
	return 1
}

// Raw is a register accessed by address with an arbitrary width.
// It is used for the multi-byte address registers.
type Raw struct {
	Address uint8
	Data    []byte
}

func (r *Raw) Addr() uint8       { return r.Address & AddrMask }
func (r *Raw) Len() int          { return len(r.Data) }
func (r *Raw) Encode(dst []byte) { copy(dst, r.Data) }
func (r *Raw) Decode(src []byte) { copy(r.Data, src) }
func (r *Raw) String() string    { return Name(r.Address) }

func bit[T constraints.Unsigned](v T, n uint8) bool {
	return v&(1<<n) != 0
}

func setbit[T constraints.Unsigned](v T, n uint8, b bool) T {
	if b {
		return v | 1<<n
	}
	return v &^ (1 << n)
}

func field[T constraints.Unsigned](v T, shift, width uint8) T {
	return (v >> shift) & (1<<width - 1)
}

func setfield[T constraints.Unsigned](v T, shift, width uint8, f T) T {
	mask := T(1<<width-1) << shift
	return v&^mask | (f<<shift)&mask
}

// flags renders the bits of b selected by mask into the template f,
// replacing each '+' with '+' or '-' depending on the bit value.
func flags(f string, mask, b byte) string {
	buf := make([]byte, len(f))
	m := byte(0x80)
	for i := range buf {
		if f[i] == '+' {
			for mask&m == 0 {
				m >>= 1
			}
			if b&m == 0 {
				buf[i] = '-'
			} else {
				buf[i] = '+'
			}
			m >>= 1
		} else {
			buf[i] = f[i]
		}
	}
	return string(buf)
}
