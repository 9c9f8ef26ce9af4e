package nrf24

import (
	"encoding/hex"
	"strconv"

	"github.com/soypat/nrf24/reg"
)

// Transaction is a decoded SPI transaction as seen on the wire, typically
// captured with a logic analyzer.
type Transaction struct {
	// Opcode is the command byte with register address bits cleared.
	Opcode uint8
	// Addr is the register address of R_REGISTER and W_REGISTER commands.
	Addr uint8
	// Status is the first byte clocked in. Valid when HasStatus is true.
	Status    reg.Status
	HasStatus bool
	// Data is the meaningful data of the transaction: bytes clocked out for
	// writes and bytes clocked in (after STATUS) for reads.
	Data []byte
	// Write is true for commands that transfer data to the transceiver.
	Write bool
}

// DecodeTransaction decodes the bytes clocked out (mosi) and in (miso) during a
// single chip select frame. miso may be nil or shorter than mosi when the
// capture lacks the input line.
func DecodeTransaction(mosi, miso []byte) (tx Transaction) {
	if len(mosi) == 0 {
		return tx
	}
	if len(miso) > 0 {
		tx.Status = reg.Status(miso[0])
		tx.HasStatus = true
	}
	op := mosi[0]
	switch {
	case op < reg.W_REGISTER:
		tx.Opcode = reg.R_REGISTER
		tx.Addr = op & reg.AddrMask
		if len(miso) > 1 {
			tx.Data = miso[1:]
		}
	case op <= reg.W_REGISTER|reg.AddrMask:
		tx.Opcode = reg.W_REGISTER
		tx.Addr = op & reg.AddrMask
		tx.Data = mosi[1:]
		tx.Write = true
	default:
		tx.Opcode = op
		switch {
		case op == reg.W_TX_PAYLOAD || op == reg.W_TX_PAYLOAD_NOACK || op&^0x07 == reg.W_ACK_PAYLOAD:
			tx.Data = mosi[1:]
			tx.Write = true
		case op == reg.R_RX_PAYLOAD || op == reg.R_RX_PL_WID:
			if len(miso) > 1 {
				tx.Data = miso[1:]
			}
		}
	}
	return tx
}

// Name returns the datasheet mnemonic of the command.
func (tx Transaction) Name() string {
	switch tx.Opcode {
	case reg.R_REGISTER:
		return "R_REGISTER"
	case reg.W_REGISTER:
		return "W_REGISTER"
	case reg.R_RX_PL_WID:
		return "R_RX_PL_WID"
	case reg.R_RX_PAYLOAD:
		return "R_RX_PAYLOAD"
	case reg.W_TX_PAYLOAD:
		return "W_TX_PAYLOAD"
	case reg.W_TX_PAYLOAD_NOACK:
		return "W_TX_PAYLOAD_NOACK"
	case reg.FLUSH_TX:
		return "FLUSH_TX"
	case reg.FLUSH_RX:
		return "FLUSH_RX"
	case reg.REUSE_TX_PL:
		return "REUSE_TX_PL"
	case reg.NOP:
		return "NOP"
	}
	if tx.Opcode&^0x07 == reg.W_ACK_PAYLOAD {
		return "W_ACK_PAYLOAD"
	}
	return "UNKNOWN(0x" + strconv.FormatUint(uint64(tx.Opcode), 16) + ")"
}

func (tx Transaction) String() string {
	s := tx.Name()
	if tx.Opcode == reg.R_REGISTER || tx.Opcode == reg.W_REGISTER {
		s += " " + reg.Name(tx.Addr)
	}
	if len(tx.Data) > 0 {
		s += " data=" + hex.EncodeToString(tx.Data)
	}
	if tx.HasStatus {
		s += " status=(" + tx.Status.String() + ")"
	}
	return s
}
