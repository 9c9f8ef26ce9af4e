package nrf24

import (
	"github.com/soypat/nrf24/reg"
)

// Command is a single SPI transaction with the transceiver. The bus is full
// duplex: the response is clocked in while the command is clocked out, and the
// first byte clocked in is always the STATUS register.
type Command interface {
	// Len is the number of bytes exchanged, command byte included.
	Len() int
	// Encode writes the command to buf. len(buf)==Len() and buf is zeroed.
	Encode(buf []byte)
	// Decode extracts the command response from buf, the bytes clocked in
	// during the transaction. buf[0] holds STATUS.
	Decode(buf []byte)
}

// ReadRegister is the R_REGISTER command. The register value is decoded into Reg.
type ReadRegister struct {
	Reg reg.Register
}

func (c *ReadRegister) Len() int { return 1 + c.Reg.Len() }

func (c *ReadRegister) Encode(buf []byte) { buf[0] = reg.R_REGISTER | c.Reg.Addr()&reg.AddrMask }

func (c *ReadRegister) Decode(buf []byte) { c.Reg.Decode(buf[1:]) }

// WriteRegister is the W_REGISTER command. Only valid in power down or standby modes.
type WriteRegister struct {
	Reg reg.Register
}

func (c *WriteRegister) Len() int { return 1 + c.Reg.Len() }

func (c *WriteRegister) Encode(buf []byte) {
	buf[0] = reg.W_REGISTER | c.Reg.Addr()&reg.AddrMask
	c.Reg.Encode(buf[1:])
}

func (c *WriteRegister) Decode([]byte) {}

// ReadRxPayloadWidth is the R_RX_PL_WID command. It returns the width of the
// payload at the head of the RX FIFO when dynamic payload length is in use.
type ReadRxPayloadWidth struct {
	Width uint8
}

func (c *ReadRxPayloadWidth) Len() int          { return 2 }
func (c *ReadRxPayloadWidth) Encode(buf []byte) { buf[0] = reg.R_RX_PL_WID }
func (c *ReadRxPayloadWidth) Decode(buf []byte) { c.Width = buf[1] }

// ReadRxPayload is the R_RX_PAYLOAD command. len(Payload) bytes are read from
// the head of the RX FIFO into Payload, which is removed from the FIFO.
type ReadRxPayload struct {
	Payload []byte
}

func (c *ReadRxPayload) Len() int          { return 1 + len(c.Payload) }
func (c *ReadRxPayload) Encode(buf []byte) { buf[0] = reg.R_RX_PAYLOAD }
func (c *ReadRxPayload) Decode(buf []byte) { copy(c.Payload, buf[1:]) }

// WriteTxPayload is the W_TX_PAYLOAD command. Payload is 1..32 bytes.
type WriteTxPayload struct {
	Payload []byte
}

func (c *WriteTxPayload) Len() int { return 1 + len(c.Payload) }

func (c *WriteTxPayload) Encode(buf []byte) {
	buf[0] = reg.W_TX_PAYLOAD
	copy(buf[1:], c.Payload)
}

func (c *WriteTxPayload) Decode([]byte) {}

// WriteTxPayloadNoAck is the W_TX_PAYLOAD_NOACK command. The packet is sent
// without requesting an acknowledgement. Requires FEATURE.EN_DYN_ACK.
type WriteTxPayloadNoAck struct {
	Payload []byte
}

func (c *WriteTxPayloadNoAck) Len() int { return 1 + len(c.Payload) }

func (c *WriteTxPayloadNoAck) Encode(buf []byte) {
	buf[0] = reg.W_TX_PAYLOAD_NOACK
	copy(buf[1:], c.Payload)
}

func (c *WriteTxPayloadNoAck) Decode([]byte) {}

// FlushTx is the FLUSH_TX command.
type FlushTx struct{}

func (FlushTx) Len() int          { return 1 }
func (FlushTx) Encode(buf []byte) { buf[0] = reg.FLUSH_TX }
func (FlushTx) Decode([]byte)     {}

// FlushRx is the FLUSH_RX command.
type FlushRx struct{}

func (FlushRx) Len() int          { return 1 }
func (FlushRx) Encode(buf []byte) { buf[0] = reg.FLUSH_RX }
func (FlushRx) Decode([]byte)     {}

// ReuseTxPayload is the REUSE_TX_PL command: the last transmitted payload is
// sent again for as long as CE is high, until W_TX_PAYLOAD or FLUSH_TX.
type ReuseTxPayload struct{}

func (ReuseTxPayload) Len() int          { return 1 }
func (ReuseTxPayload) Encode(buf []byte) { buf[0] = reg.REUSE_TX_PL }
func (ReuseTxPayload) Decode([]byte)     {}

// Nop is the NOP command, used to read STATUS alone.
type Nop struct{}

func (Nop) Len() int          { return 1 }
func (Nop) Encode(buf []byte) { buf[0] = reg.NOP }
func (Nop) Decode([]byte)     {}
