package nrf24

import (
	"log/slog"

	"github.com/soypat/nrf24/reg"
)

// Rx is the transceiver in RX mode with CE high, listening for packets on the
// enabled pipes.
type Rx struct {
	mode
}

// Standby lowers CE and returns to standby mode. A packet being received is lost.
func (r *Rx) Standby() (*Standby, error) {
	d, err := r.device()
	if err != nil {
		return nil, err
	}
	d.debug("nrf24:rx->standby")
	return standbyFrom(&r.mode), nil
}

// CanRead returns the pipe of the packet at the head of the RX FIFO. ok is
// false if the RX FIFO is empty.
func (r *Rx) CanRead() (pipe uint8, ok bool, err error) {
	status, err := r.Status()
	if err != nil || status.RxEmpty() {
		return 0, false, err
	}
	return status.RxPipe(), true, nil
}

// IsEmpty reports whether the RX FIFO is empty.
func (r *Rx) IsEmpty() (bool, error) {
	var fifo reg.FIFOStatus
	_, err := r.ReadRegister(&fifo)
	return fifo.RxEmpty(), err
}

// IsFull reports whether the RX FIFO is full. Packets received while the RX
// FIFO is full are dropped.
func (r *Rx) IsFull() (bool, error) {
	var fifo reg.FIFOStatus
	_, err := r.ReadRegister(&fifo)
	return fifo.RxFull(), err
}

// Read pops the packet at the head of the RX FIFO. It returns [ErrWouldBlock]
// if the RX FIFO is empty. A reported payload width over 32 bytes means the
// packet is corrupt, in which case the RX FIFO is flushed and
// [ErrCorruptPayload] returned.
func (r *Rx) Read() (p Payload, err error) {
	d, err := r.device()
	if err != nil {
		return p, err
	}
	var width ReadRxPayloadWidth
	status, err := d.SendCommand(&width)
	if err != nil {
		return p, err
	}
	if status.RxEmpty() {
		return p, ErrWouldBlock
	}
	if width.Width == 0 || width.Width > reg.MaxPayload {
		d.warn("nrf24:corrupt-payload", slog.Int("width", int(width.Width)))
		_, err = d.SendCommand(FlushRx{})
		if err != nil {
			return p, err
		}
		return p, ErrCorruptPayload
	}
	p.n = width.Width
	p.pipe = status.RxPipe()
	_, err = d.SendCommand(&ReadRxPayload{Payload: p.buf[:p.n]})
	if err != nil {
		return Payload{}, err
	}
	return p, nil
}
