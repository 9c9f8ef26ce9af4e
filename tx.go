package nrf24

import (
	"context"
	"log/slog"

	"github.com/soypat/nrf24/reg"
)

// Tx is the transceiver in TX mode. Packets are queued in the 3 level TX FIFO
// with [Tx.Send] and transmitted while CE is high.
//
// The transceiver should not be kept in TX mode with CE high for more than 4ms
// at a time. This is not enforced, the driver only logs a warning when it
// observes a longer CE high period during [Tx.PollSend] or [Tx.WaitEmpty].
type Tx struct {
	mode
}

// Standby waits for the TX FIFO to empty and returns to standby mode. If
// waiting fails the handle remains usable.
func (t *Tx) Standby() (*Standby, error) {
	if err := t.WaitEmpty(); err != nil {
		return nil, err
	}
	d := t.dev
	d.debug("nrf24:tx->standby")
	return standbyFrom(&t.mode), nil
}

// Send queues packet in the TX FIFO and raises CE to start transmission.
// It does not wait for the packet to be sent, use [Tx.PollSend] for that.
// packet must be 1..32 bytes long.
func (t *Tx) Send(packet []byte) error {
	return t.send(&WriteTxPayload{Payload: packet}, len(packet))
}

// SendNoAck is like [Tx.Send] but the receiver does not acknowledge the packet.
// Requires FEATURE.EN_DYN_ACK to be set.
func (t *Tx) SendNoAck(packet []byte) error {
	return t.send(&WriteTxPayloadNoAck{Payload: packet}, len(packet))
}

func (t *Tx) send(cmd Command, n int) error {
	d, err := t.device()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEmptyPayload
	} else if n > reg.MaxPayload {
		return ErrPayloadTooLong
	}
	_, err = d.SendCommand(cmd)
	if err != nil {
		return err
	}
	d.CEEnable()
	return nil
}

// Reuse retransmits the last sent payload for as long as CE is high, until
// the next Send or FlushTx.
func (t *Tx) Reuse() error {
	d, err := t.device()
	if err != nil {
		return err
	}
	_, err = d.SendCommand(ReuseTxPayload{})
	if err != nil {
		return err
	}
	d.CEEnable()
	return nil
}

// IsEmpty reports whether the TX FIFO is empty.
func (t *Tx) IsEmpty() (bool, error) {
	fifo, err := t.fifo()
	return fifo.TxEmpty(), err
}

// IsFull reports whether the TX FIFO is full.
func (t *Tx) IsFull() (bool, error) {
	fifo, err := t.fifo()
	return fifo.TxFull(), err
}

// CanSend reports whether the TX FIFO has space for another packet.
func (t *Tx) CanSend() (bool, error) {
	full, err := t.IsFull()
	return !full && err == nil, err
}

func (t *Tx) fifo() (fifo reg.FIFOStatus, err error) {
	d, err := t.device()
	if err != nil {
		return 0, err
	}
	_, err = d.ReadRegister(&fifo)
	return fifo, err
}

// PollSend checks for completion of the queued packets without blocking.
//   - If MAX_RT is set a packet was not acknowledged within the configured
//     retransmit count. The TX FIFO is flushed, dropping the packet and any
//     packet queued after it, and PollSend returns false.
//   - If the TX FIFO is empty all packets were delivered and PollSend returns true.
//   - Otherwise CE is raised again and [ErrWouldBlock] is returned.
//
// TX interrupt flags are cleared and CE lowered whenever PollSend returns without error.
func (t *Tx) PollSend() (delivered bool, err error) {
	d, err := t.device()
	if err != nil {
		return false, err
	}
	var fifo reg.FIFOStatus
	status, err := d.ReadRegister(&fifo)
	if err != nil {
		return false, err
	}
	d.checkCE()
	switch {
	case status.MaxRT():
		d.debug("nrf24:max-rt", statusAttr(status))
		_, err = d.SendCommand(FlushTx{})
		if err != nil {
			return false, err
		}
	case fifo.TxEmpty():
		delivered = true
	default:
		d.CEEnable()
		return false, ErrWouldBlock
	}
	err = d.clearTxInterrupts()
	if err != nil {
		return false, err
	}
	d.CEDisable()
	return delivered, nil
}

// WaitEmpty blocks until the TX FIFO is empty, then lowers CE. Packets that
// reach the retransmit limit are flushed from the FIFO along with the packets
// queued after them. WaitEmpty may block forever if the transceiver never
// reports an empty TX FIFO, see [Tx.WaitEmptyContext].
func (t *Tx) WaitEmpty() error {
	return t.WaitEmptyContext(context.Background())
}

// WaitEmptyContext is like [Tx.WaitEmpty] but stops waiting when ctx is done,
// in which case CE is lowered and the context error returned.
func (t *Tx) WaitEmptyContext(ctx context.Context) error {
	d, err := t.device()
	if err != nil {
		return err
	}
	var dropped int
	for {
		if err := ctx.Err(); err != nil {
			d.CEDisable()
			return err
		}
		var fifo reg.FIFOStatus
		status, err := d.ReadRegister(&fifo)
		if err != nil {
			return err
		}
		empty := fifo.TxEmpty()
		if !empty {
			d.CEEnable()
			d.checkCE()
		}
		if status.MaxRT() {
			dropped++
			_, err = d.SendCommand(FlushTx{})
			if err != nil {
				return err
			}
			err = d.clearTxInterrupts()
			if err != nil {
				return err
			}
		}
		if empty {
			break
		}
	}
	d.CEDisable()
	if dropped > 0 {
		d.debug("nrf24:wait-empty", slog.Int("flushes", dropped))
	}
	return nil
}

// clearTxInterrupts clears TX_DS and MAX_RT. Transmission does not continue
// while MAX_RT is set.
func (d *Device) clearTxInterrupts() error {
	var flags reg.Status
	flags.SetTxDS(true)
	flags.SetMaxRT(true)
	_, err := d.WriteRegister(&flags)
	return err
}

// Observe reads the OBSERVE_TX retransmission counters.
func (t *Tx) Observe() (reg.ObserveTx, error) {
	var obs reg.ObserveTx
	_, err := t.ReadRegister(&obs)
	return obs, err
}
