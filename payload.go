package nrf24

import (
	"encoding/hex"
	"strconv"

	"github.com/soypat/nrf24/reg"
)

// Payload is a received packet. It is a value type so it is owned by the caller.
type Payload struct {
	buf  [reg.MaxPayload]byte
	n    uint8
	pipe uint8
}

// Bytes returns the packet data. The slice aliases p.
func (p *Payload) Bytes() []byte { return p.buf[:p.n] }

// Len returns the packet length, 0..32.
func (p *Payload) Len() int { return int(p.n) }

// Pipe returns the RX pipe the packet was received on, 0..5.
func (p *Payload) Pipe() uint8 { return p.pipe }

func (p *Payload) String() string {
	return "pipe" + strconv.Itoa(int(p.pipe)) + ":" + hex.EncodeToString(p.Bytes())
}
