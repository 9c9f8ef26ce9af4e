package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/reg"
)

var errPoweredDown = errors.New("radio powered down, run powerup")

// console tracks the radio handle across mode transitions. Exactly one of its
// handles is non-nil.
type console struct {
	sb  *nrf24.Standby
	tx  *nrf24.Tx
	rx  *nrf24.Rx
	off *nrf24.PowerDown
	// timeout bounds blocking commands.
	timeout time.Duration
}

func newConsole(sb *nrf24.Standby) *console {
	return &console{sb: sb, timeout: time.Second}
}

func (c *console) set(sb *nrf24.Standby, tx *nrf24.Tx, rx *nrf24.Rx, off *nrf24.PowerDown) {
	c.sb, c.tx, c.rx, c.off = sb, tx, rx, off
}

func (c *console) mode() string {
	switch {
	case c.tx != nil:
		return "tx"
	case c.rx != nil:
		return "rx"
	case c.sb != nil:
		return "standby"
	}
	return "off"
}

func (c *console) radio() (nrf24.Configuration, error) {
	switch {
	case c.tx != nil:
		return c.tx, nil
	case c.rx != nil:
		return c.rx, nil
	case c.sb != nil:
		return c.sb, nil
	}
	return nil, errPoweredDown
}

func (c *console) standby() (sb *nrf24.Standby, err error) {
	switch {
	case c.sb != nil:
		return c.sb, nil
	case c.tx != nil:
		sb, err = c.tx.Standby()
	case c.rx != nil:
		sb, err = c.rx.Standby()
	default:
		sb, err = c.off.PowerUp()
	}
	if err != nil {
		return nil, err
	}
	c.set(sb, nil, nil, nil)
	return sb, nil
}

func (c *console) toTx() (*nrf24.Tx, error) {
	if c.tx != nil {
		return c.tx, nil
	}
	sb, err := c.standby()
	if err != nil {
		return nil, err
	}
	tx, err := sb.Tx()
	if err != nil {
		return nil, err
	}
	c.set(nil, tx, nil, nil)
	return tx, nil
}

func (c *console) toRx() (*nrf24.Rx, error) {
	if c.rx != nil {
		return c.rx, nil
	}
	sb, err := c.standby()
	if err != nil {
		return nil, err
	}
	rx, err := sb.Rx()
	if err != nil {
		return nil, err
	}
	c.set(nil, nil, rx, nil)
	return rx, nil
}

func (c *console) powerDown() error {
	if c.off != nil {
		return nil
	}
	sb, err := c.standby()
	if err != nil {
		return err
	}
	off, err := sb.PowerDown()
	if err != nil {
		return err
	}
	c.set(nil, nil, nil, off)
	return nil
}

// send queues data and polls until it is acknowledged, dropped after the
// retransmit limit or the console timeout expires.
func (c *console) send(data []byte, noack bool) (delivered bool, err error) {
	tx, err := c.toTx()
	if err != nil {
		return false, err
	}
	if noack {
		err = tx.SetDynamicAck(true)
		if err != nil {
			return false, err
		}
		err = tx.SendNoAck(data)
	} else {
		err = tx.Send(data)
	}
	if err != nil {
		return false, err
	}
	deadline := time.Now().Add(c.timeout)
	for {
		delivered, err = tx.PollSend()
		if !errors.Is(err, nrf24.ErrWouldBlock) {
			return delivered, err
		}
		if time.Now().After(deadline) {
			return false, context.DeadlineExceeded
		}
		time.Sleep(time.Millisecond)
	}
}

// receive returns the packets read before the console timeout expires or limit
// packets are read.
func (c *console) receive(limit int) (payloads []nrf24.Payload, err error) {
	rx, err := c.toRx()
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(c.timeout)
	for len(payloads) < limit && time.Now().Before(deadline) {
		p, err := rx.Read()
		switch {
		case err == nil:
			payloads = append(payloads, p)
			continue
		case errors.Is(err, nrf24.ErrWouldBlock), errors.Is(err, nrf24.ErrCorruptPayload):
		default:
			return payloads, err
		}
		time.Sleep(time.Millisecond)
	}
	return payloads, nil
}

func (c *console) status(w io.Writer) error {
	r, err := c.radio()
	if err != nil {
		fmt.Fprintln(w, "mode:", c.mode())
		return nil
	}
	var fifo reg.FIFOStatus
	status, err := r.ReadRegister(&fifo)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "mode: %s\nstatus: %s\nfifo: %s\n", c.mode(), status, fifo)
	return nil
}

// dump prints every register.
func (c *console) dump(w io.Writer) error {
	r, err := c.radio()
	if err != nil {
		return err
	}
	var aw reg.SetupAw
	_, err = r.ReadRegister(&aw)
	if err != nil {
		return err
	}
	for addr := uint8(0); addr <= reg.FEATURE; addr++ {
		name := reg.Name(addr)
		if name == "RESERVED" {
			continue
		}
		n := 1
		if addr == reg.RX_ADDR_P0 || addr == reg.RX_ADDR_P1 || addr == reg.TX_ADDR {
			n = int(aw.Width())
		}
		raw := reg.Raw{Address: addr, Data: make([]byte, n)}
		_, err = r.ReadRegister(&raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%02x %-12s %x\n", addr, name, raw.Data)
	}
	return nil
}

func (c *console) observe() (reg.ObserveTx, error) {
	r, err := c.radio()
	if err != nil {
		return 0, err
	}
	var obs reg.ObserveTx
	_, err = r.ReadRegister(&obs)
	return obs, err
}

func (c *console) flush() error {
	r, err := c.radio()
	if err != nil {
		return err
	}
	return errors.Join(r.FlushTx(), r.FlushRx(), r.ClearInterrupts())
}
