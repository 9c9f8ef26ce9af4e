// Package nrfsim implements an in-memory nRF24L01+ transceiver attached to a
// simulated SPI bus. It is used for testing the driver and for running the
// shell without hardware.
package nrfsim

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/soypat/nrf24/reg"
)

const fifoDepth = 3

// ErrCSNHigh is returned by [Radio.Tx] when CSN was not driven low before the
// transaction.
var ErrCSNHigh = errors.New("nrfsim: transaction with CSN high")

// Transaction is a recorded SPI transaction.
type Transaction struct {
	W []byte // Bytes clocked out by the host.
	R []byte // Bytes clocked in by the host.
}

type packet struct {
	pipe  uint8
	data  []byte
	noack bool
}

// Radio is a simulated transceiver. Its zero value is not usable, use [New].
//
// The TX FIFO is processed one packet per SPI transaction while CE is high,
// PWR_UP is set and PRIM_RX is clear. Processing happens before the
// transaction's STATUS byte is computed.
type Radio struct {
	regs   [reg.FEATURE + 1][]byte
	tx     []packet
	rx     []packet
	lastTx []byte
	reuse  bool
	ce     bool
	csn    bool
	writes map[uint8]int

	// Stall stops TX FIFO processing, as if the radio never finished sending.
	Stall bool
	// Drop makes every acknowledged transmission fail with MAX_RT.
	Drop bool
	// Err is returned by Tx when set. The transaction has no effect.
	Err error
	// Peer receives transmitted packets when set. Packets sent with
	// acknowledgement fail with MAX_RT if Peer is not listening on the TX address.
	Peer *Radio
	// Sent holds every packet that left the antenna.
	Sent [][]byte
	// Log holds every transaction.
	Log []Transaction
	// CEHistory holds every level CE was driven to.
	CEHistory []bool
	// Violations counts transactions issued with CSN high.
	Violations int

	Logger *slog.Logger
}

// New returns a powered down transceiver with registers at reset values.
func New() *Radio {
	r := &Radio{csn: true, writes: make(map[uint8]int)}
	for i := range r.regs {
		r.regs[i] = make([]byte, 1)
	}
	for _, a := range []uint8{reg.RX_ADDR_P0, reg.RX_ADDR_P1, reg.TX_ADDR} {
		r.regs[a] = make([]byte, reg.MaxAddrWidth)
	}
	r.regs[reg.CONFIG][0] = byte(reg.ConfigReset)
	r.regs[reg.EN_AA][0] = 0x3f
	r.regs[reg.EN_RXADDR][0] = 0x03
	r.regs[reg.SETUP_AW][0] = 0x03
	r.regs[reg.SETUP_RETR][0] = 0x03
	r.regs[reg.RF_CH][0] = 0x02
	r.regs[reg.RF_SETUP][0] = 0x0e
	copy(r.regs[reg.RX_ADDR_P0], bytes.Repeat([]byte{0xe7}, 5))
	copy(r.regs[reg.RX_ADDR_P1], bytes.Repeat([]byte{0xc2}, 5))
	copy(r.regs[reg.TX_ADDR], bytes.Repeat([]byte{0xe7}, 5))
	for p := uint8(2); p < reg.Pipes; p++ {
		r.regs[reg.RX_ADDR_P0+p][0] = 0xc1 + p
	}
	return r
}

// CE sets the chip enable level.
func (r *Radio) CE(level bool) {
	r.ce = level
	r.CEHistory = append(r.CEHistory, level)
}

// CSN sets the chip select level. Transactions are framed by CSN low.
func (r *Radio) CSN(level bool) { r.csn = level }

// CELevel returns the current CE level.
func (r *Radio) CELevel() bool { return r.ce }

// Tx performs a full duplex SPI transaction. len(w) must equal len(rd).
func (r *Radio) Tx(w, rd []byte) error {
	if r.Err != nil {
		return r.Err
	}
	if len(w) != len(rd) {
		return errors.New("nrfsim: mismatched buffer lengths")
	}
	if r.csn {
		r.Violations++
		return ErrCSNHigh
	}
	if len(w) == 0 {
		return nil
	}
	r.step()
	rd[0] = byte(r.status())
	r.exec(w, rd)
	r.Log = append(r.Log, Transaction{W: bytes.Clone(w), R: bytes.Clone(rd)})
	return nil
}

// Inject places a received packet in the RX FIFO as if it arrived on pipe.
// It returns false if the RX FIFO is full and the packet was dropped.
func (r *Radio) Inject(pipe uint8, data []byte) bool {
	if len(r.rx) == fifoDepth {
		return false
	}
	r.rx = append(r.rx, packet{pipe: pipe, data: bytes.Clone(data)})
	r.regs[reg.STATUS][0] |= 1 << 6
	return true
}

// Reg returns a copy of the register at addr.
func (r *Radio) Reg(addr uint8) []byte {
	switch addr {
	case reg.STATUS:
		return []byte{byte(r.status())}
	case reg.FIFO_STATUS:
		return []byte{byte(r.fifoStatus())}
	}
	addr &= reg.AddrMask
	if int(addr) >= len(r.regs) {
		return []byte{0}
	}
	return bytes.Clone(r.regs[addr])
}

// SetReg sets the register at addr bypassing SPI, as a stale value left by a
// previous session would.
func (r *Radio) SetReg(addr uint8, value ...byte) {
	if int(addr) < len(r.regs) {
		copy(r.regs[addr], value)
	}
}

// Writes returns the number of W_REGISTER transactions to addr.
func (r *Radio) Writes(addr uint8) int { return r.writes[addr] }

// TxQueued returns the number of packets in the TX FIFO.
func (r *Radio) TxQueued() int { return len(r.tx) }

// RxQueued returns the number of packets in the RX FIFO.
func (r *Radio) RxQueued() int { return len(r.rx) }

func (r *Radio) config() reg.Config { return reg.Config(r.regs[reg.CONFIG][0]) }

func (r *Radio) status() reg.Status {
	s := reg.Status(r.regs[reg.STATUS][0] & 0x70)
	pipe := uint8(reg.RxPipeEmpty)
	if len(r.rx) > 0 {
		pipe = r.rx[0].pipe
	}
	s |= reg.Status(pipe << 1)
	if len(r.tx) == fifoDepth {
		s |= 1
	}
	return s
}

func (r *Radio) fifoStatus() reg.FIFOStatus {
	var f uint8
	if len(r.rx) == 0 {
		f |= 1 << 0
	}
	if len(r.rx) == fifoDepth {
		f |= 1 << 1
	}
	if len(r.tx) == 0 && !r.reuse {
		f |= 1 << 4
	}
	if len(r.tx) == fifoDepth {
		f |= 1 << 5
	}
	if r.reuse {
		f |= 1 << 6
	}
	return reg.FIFOStatus(f)
}

func (r *Radio) exec(w, rd []byte) {
	op := w[0]
	switch {
	case op < reg.W_REGISTER:
		copy(rd[1:], r.Reg(op&reg.AddrMask))
	case op <= reg.W_REGISTER|reg.AddrMask:
		r.writeReg(op&reg.AddrMask, w[1:])
	case op == reg.R_RX_PL_WID:
		if len(rd) > 1 && len(r.rx) > 0 {
			rd[1] = uint8(len(r.rx[0].data))
		}
	case op == reg.R_RX_PAYLOAD:
		if len(r.rx) > 0 {
			copy(rd[1:], r.rx[0].data)
			r.rx = r.rx[1:]
		}
	case op == reg.W_TX_PAYLOAD_NOACK && !reg.Feature(r.regs[reg.FEATURE][0]).EnDynAck():
		r.debug("nrfsim:noack-disabled")
	case op == reg.W_TX_PAYLOAD || op == reg.W_TX_PAYLOAD_NOACK:
		r.reuse = false
		if len(r.tx) < fifoDepth {
			r.tx = append(r.tx, packet{data: bytes.Clone(w[1:]), noack: op == reg.W_TX_PAYLOAD_NOACK})
		}
	case op == reg.FLUSH_TX:
		r.tx = r.tx[:0]
		r.reuse = false
	case op == reg.FLUSH_RX:
		r.rx = r.rx[:0]
	case op == reg.REUSE_TX_PL:
		r.reuse = r.lastTx != nil
	}
}

func (r *Radio) writeReg(addr uint8, data []byte) {
	r.writes[addr]++
	switch addr {
	case reg.STATUS:
		if len(data) > 0 {
			// Interrupt flags are cleared by writing 1.
			r.regs[reg.STATUS][0] &^= data[0] & 0x70
		}
		return
	case reg.FIFO_STATUS, reg.OBSERVE_TX, reg.RPD:
		return
	case reg.RF_CH:
		r.regs[reg.OBSERVE_TX][0] &= 0x0f
	}
	if int(addr) < len(r.regs) {
		copy(r.regs[addr], data)
	}
}

func (r *Radio) step() {
	cfg := r.config()
	if !r.ce || !cfg.PwrUp() || cfg.PrimRx() || r.Stall {
		return
	}
	if reg.Status(r.regs[reg.STATUS][0]).MaxRT() {
		return
	}
	if len(r.tx) == 0 {
		if r.reuse {
			r.transmit(packet{data: r.lastTx})
		}
		return
	}
	if !r.transmit(r.tx[0]) {
		return
	}
	r.lastTx = r.tx[0].data
	r.tx = r.tx[1:]
}

// transmit sends pkt and reports whether it was delivered.
func (r *Radio) transmit(pkt packet) bool {
	var retr reg.SetupRetr
	retr.Decode(r.regs[reg.SETUP_RETR])
	ack := !pkt.noack && retr.Count() > 0
	delivered := !r.Drop
	if r.Peer != nil {
		delivered = r.Peer.receive(r.txAddr(), pkt.data) && delivered
	}
	if ack && !delivered {
		obs := r.regs[reg.OBSERVE_TX][0]
		lost := min(obs>>4+1, 15)
		r.regs[reg.OBSERVE_TX][0] = lost<<4 | retr.Count()
		r.regs[reg.STATUS][0] |= 1 << 4
		r.debug("nrfsim:max-rt", slog.Int("lost", int(lost)))
		return false
	}
	r.regs[reg.OBSERVE_TX][0] &= 0xf0
	r.regs[reg.STATUS][0] |= 1 << 5
	r.Sent = append(r.Sent, bytes.Clone(pkt.data))
	r.debug("nrfsim:sent", slog.Int("len", len(pkt.data)))
	return true
}

func (r *Radio) addrWidth() int {
	var aw reg.SetupAw
	aw.Decode(r.regs[reg.SETUP_AW])
	return int(aw.Width())
}

func (r *Radio) txAddr() []byte {
	return r.regs[reg.TX_ADDR][:r.addrWidth()]
}

// receive accepts a packet addressed to addr if listening on a matching pipe.
func (r *Radio) receive(addr, data []byte) bool {
	cfg := r.config()
	if !r.ce || !cfg.PwrUp() || !cfg.PrimRx() || len(addr) != r.addrWidth() {
		return false
	}
	var en reg.EnRxAddr
	en.Decode(r.regs[reg.EN_RXADDR])
	for pipe := uint8(0); pipe < reg.Pipes; pipe++ {
		if !en.Pipe(pipe) || !bytes.Equal(addr, r.pipeAddr(pipe)) {
			continue
		}
		data = r.fitPayload(pipe, data)
		if data == nil {
			return false
		}
		return r.Inject(pipe, data)
	}
	return false
}

func (r *Radio) pipeAddr(pipe uint8) []byte {
	w := r.addrWidth()
	if pipe < 2 {
		return r.regs[reg.RX_ADDR_P0+pipe][:w]
	}
	addr := bytes.Clone(r.regs[reg.RX_ADDR_P1][:w])
	addr[0] = r.regs[reg.RX_ADDR_P0+pipe][0]
	return addr
}

// fitPayload returns data as received by pipe, truncated or zero padded to
// the static payload width unless the pipe uses dynamic payload length.
func (r *Radio) fitPayload(pipe uint8, data []byte) []byte {
	dynpd := reg.DynPD(r.regs[reg.DYNPD][0])
	feature := reg.Feature(r.regs[reg.FEATURE][0])
	if feature.EnDPL() && dynpd.Pipe(pipe) {
		return data
	}
	width := int(r.regs[reg.RX_PW_P0+pipe][0] & 0x3f)
	if width == 0 {
		return nil
	}
	fitted := make([]byte, width)
	copy(fitted, data)
	return fitted
}

func (r *Radio) debug(msg string, attrs ...slog.Attr) {
	if r.Logger != nil {
		r.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
	}
}
