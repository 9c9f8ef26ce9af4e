package nrf24

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/soypat/nrf24/reg"
)

const (
	// powerUpDelay is the Tpd2stby crystal start up time with an external clock
	// source. With a Ls=90mH crystal it can take as long as 4.5ms.
	powerUpDelay = 1500 * time.Microsecond
	// maxTxCEHigh is the longest time CE should be held high in TX mode.
	maxTxCEHigh = 4 * time.Millisecond
	maxTxLen    = 1 + reg.MaxPayload
)

// Device is an nRF24L01(+) transceiver attached over SPI. It is not safe for
// concurrent use. Users usually interact with the device through the mode
// handles returned by [New]: [Standby], [Tx] and [Rx].
type Device struct {
	spi SPI
	ce  OutputPin
	csn OutputPin
	// config is a copy of the last value written to CONFIG. It is never read back
	// from the device, so writes to CONFIG that bypass [Device.WriteRegister]
	// make it diverge.
	config   reg.Config
	ceHigh   bool
	ceHighAt time.Time
	ceWarned bool
	txbuf    [maxTxLen]byte
	rxbuf    [maxTxLen]byte

	logger        *slog.Logger
	_traceenabled bool
}

// Config holds the optional settings of [New].
type Config struct {
	// Logger receives driver logs. Bus transactions are logged at level
	// [slog.LevelDebug]-1. A nil Logger disables logging.
	Logger *slog.Logger
	// SkipConnectCheck skips validating SETUP_AW during [New].
	SkipConnectCheck bool
}

// New initializes the transceiver and returns it powered up in standby mode.
// The SPI bus must be configured in mode 0 with a clock no faster than 10MHz.
// CONFIG is assumed to hold its reset value so the transceiver should have
// just been powered on.
func New(spi SPI, ce, csn OutputPin, cfg Config) (*Standby, error) {
	d := &Device{
		spi:    spi,
		ce:     ce,
		csn:    csn,
		logger: cfg.Logger,
	}
	d._traceenabled = d.logger != nil && d.logger.Handler().Enabled(context.Background(), levelTrace)
	d.config = reg.ConfigReset
	d.config.SetMaskRxDR(false)
	d.config.SetMaskTxDS(false)
	d.config.SetMaskMaxRT(false)

	d.CEDisable()
	d.csn(true)
	if !cfg.SkipConnectCheck {
		ok, err := d.IsConnected()
		if err != nil {
			return nil, errors.Join(errors.New("nrf24: reading SETUP_AW"), err)
		}
		if !ok {
			return nil, ErrNotConnected
		}
	}
	d.CEDisable()
	err := d.powerUp()
	if err != nil {
		return nil, errors.Join(errors.New("nrf24: power up"), err)
	}
	d.info("nrf24:init", slog.String("config", d.config.String()))
	return &Standby{mode{dev: d}}, nil
}

// SendCommand executes cmd in a single SPI transaction framed by CSN and
// decodes the response into cmd. The returned status is the STATUS register
// value clocked in during the transaction. Errors from the SPI bus are
// returned unchanged and the command is not retried.
func (d *Device) SendCommand(cmd Command) (reg.Status, error) {
	n := cmd.Len()
	if n > len(d.txbuf) {
		return 0, ErrPayloadTooLong
	}
	w, r := d.txbuf[:n], d.rxbuf[:n]
	clear(w)
	clear(r)
	cmd.Encode(w)
	d.csn(false)
	err := d.spi.Tx(w, r)
	d.csn(true)
	if err != nil {
		d.logerr("nrf24:spi", slog.String("err", err.Error()))
		return 0, err
	}
	d.traceTx(w, r)
	cmd.Decode(r)
	return reg.Status(r[0]), nil
}

// ReadRegister reads the register at r.Addr() into r.
func (d *Device) ReadRegister(r reg.Register) (reg.Status, error) {
	return d.SendCommand(&ReadRegister{Reg: r})
}

// WriteRegister writes r. Writes to CONFIG update the cached CONFIG value.
func (d *Device) WriteRegister(r reg.Register) (reg.Status, error) {
	status, err := d.SendCommand(&WriteRegister{Reg: r})
	if err == nil && r.Addr() == reg.CONFIG {
		var b [1]byte
		r.Encode(b[:])
		d.config = reg.Config(b[0])
	}
	return status, err
}

// UpdateRegister reads r from the device, applies f to it and writes it back
// only if f changed its value. It panics if r is CONFIG, use [Device.UpdateConfig] instead.
func UpdateRegister[P reg.Register](d *Device, r P, f func(P)) error {
	if r.Addr() == reg.CONFIG {
		panic("nrf24: UpdateRegister called with CONFIG")
	}
	n := r.Len()
	if n > reg.MaxPayload {
		return ErrPayloadTooLong
	}
	if _, err := d.ReadRegister(r); err != nil {
		return err
	}
	var old, cur [reg.MaxPayload]byte
	r.Encode(old[:n])
	f(r)
	r.Encode(cur[:n])
	if bytes.Equal(old[:n], cur[:n]) {
		return nil
	}
	_, err := d.WriteRegister(r)
	return err
}

// UpdateConfig applies f to the cached CONFIG value and writes CONFIG only if
// it changed. The device is never read.
func (d *Device) UpdateConfig(f func(*reg.Config)) error {
	cfg := d.config
	f(&cfg)
	if cfg == d.config {
		return nil
	}
	_, err := d.WriteRegister(&cfg)
	return err
}

// Config returns the cached CONFIG value.
func (d *Device) Config() reg.Config { return d.config }

// CEEnable drives CE high. In RX mode the transceiver listens. In TX mode it
// transmits the TX FIFO contents.
func (d *Device) CEEnable() {
	if !d.ceHigh {
		d.ceHigh = true
		d.ceHighAt = time.Now()
		d.ceWarned = false
	}
	d.ce(true)
}

// CEDisable drives CE low, returning the transceiver to standby.
func (d *Device) CEDisable() {
	d.ceHigh = false
	d.ce(false)
}

// IsConnected reports whether SETUP_AW holds a valid address width, which is
// the case for a responding transceiver. A floating MISO line reads 0xff or
// 0x00, both invalid.
func (d *Device) IsConnected() (bool, error) {
	var aw reg.SetupAw
	_, err := d.ReadRegister(&aw)
	if err != nil {
		return false, err
	}
	w := aw.Width()
	valid := aw&^0b11 == 0 && w >= reg.MinAddrWidth && w <= reg.MaxAddrWidth
	if !valid {
		d.debug("nrf24:not-connected", slog.Uint64("SETUP_AW", uint64(aw)))
	}
	return valid, nil
}

// checkCE warns once per CE high episode when CE has been held high in TX mode
// for longer than the transceiver tolerates.
func (d *Device) checkCE() {
	if !d.ceHigh || d.ceWarned || d.config.PrimRx() {
		return
	}
	if held := time.Since(d.ceHighAt); held > maxTxCEHigh {
		d.ceWarned = true
		d.warn("nrf24:CE held high in TX mode", slog.Duration("held", held))
	}
}

func (d *Device) powerUp() error {
	wasUp := d.config.PwrUp()
	err := d.UpdateConfig(func(c *reg.Config) { c.SetPwrUp(true) })
	if err != nil {
		return err
	}
	if !wasUp {
		time.Sleep(powerUpDelay)
	}
	return nil
}
