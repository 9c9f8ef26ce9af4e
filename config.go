package nrf24

import (
	"golang.org/x/exp/constraints"

	"github.com/soypat/nrf24/reg"
)

// DataRate is the over the air data rate.
type DataRate uint8

const (
	R1Mbps DataRate = iota
	R2Mbps
	// R250Kbps is only available on the nRF24L01+.
	R250Kbps
)

func (r DataRate) String() string {
	switch r {
	case R1Mbps:
		return "1Mbps"
	case R2Mbps:
		return "2Mbps"
	case R250Kbps:
		return "250kbps"
	}
	return "unknown"
}

// CRCMode selects the packet CRC length.
type CRCMode uint8

const (
	CRCDisabled CRCMode = iota
	CRC1Byte
	CRC2Byte
)

// PipeLength is the payload width of a RX pipe, 1..32 bytes, or DynamicLength.
type PipeLength uint8

// DynamicLength selects dynamic payload length for a pipe.
const DynamicLength PipeLength = 0

// Configuration is the set of operations available in every mode.
// It is implemented by [Standby], [Tx] and [Rx].
type Configuration interface {
	Status() (reg.Status, error)
	ReadRegister(r reg.Register) (reg.Status, error)
	FlushRx() error
	FlushTx() error
	Frequency() (uint8, error)
	SetFrequency(ch uint8) error
	SetRF(rate DataRate, power uint8) error
	SetCRC(crc CRCMode) error
	SetInterruptMask(rxDR, txDS, maxRT bool) error
	SetAutoRetransmit(delay, count uint8) error
	AutoAck() ([reg.Pipes]bool, error)
	SetAutoAck(enable [reg.Pipes]bool) error
	AddressWidth() (uint8, error)
	SetAddressWidth(width uint8) error
	SetPipesRxEnable(enable [reg.Pipes]bool) error
	SetPipesRxLengths(lengths [reg.Pipes]PipeLength) error
	SetDynamicAck(enable bool) error
	SetRxAddr(pipe uint8, addr []byte) error
	SetTxAddr(addr []byte) error
	Interrupts() (rxDR, txDS, maxRT bool, err error)
	ClearInterrupts() error
}

var (
	_ Configuration = (*Standby)(nil)
	_ Configuration = (*Tx)(nil)
	_ Configuration = (*Rx)(nil)
)

// mode is embedded in every mode handle. A transition moves the device to the
// new handle, leaving dev nil.
type mode struct {
	dev *Device
}

func (m *mode) device() (*Device, error) {
	if m == nil || m.dev == nil {
		return nil, ErrConsumed
	}
	return m.dev, nil
}

func (m *mode) take() *Device {
	d := m.dev
	m.dev = nil
	return d
}

// Status returns the STATUS register by sending a NOP.
func (m *mode) Status() (reg.Status, error) {
	d, err := m.device()
	if err != nil {
		return 0, err
	}
	return d.SendCommand(Nop{})
}

// ReadRegister reads any register. Reading has no side effects in any mode.
func (m *mode) ReadRegister(r reg.Register) (reg.Status, error) {
	d, err := m.device()
	if err != nil {
		return 0, err
	}
	return d.ReadRegister(r)
}

// FlushRx discards the contents of the RX FIFO.
func (m *mode) FlushRx() error {
	d, err := m.device()
	if err != nil {
		return err
	}
	_, err = d.SendCommand(FlushRx{})
	return err
}

// FlushTx discards the contents of the TX FIFO.
func (m *mode) FlushTx() error {
	d, err := m.device()
	if err != nil {
		return err
	}
	_, err = d.SendCommand(FlushTx{})
	return err
}

// Frequency returns the RF channel. The carrier frequency is 2400+ch MHz.
func (m *mode) Frequency() (uint8, error) {
	d, err := m.device()
	if err != nil {
		return 0, err
	}
	var ch reg.RfCh
	_, err = d.ReadRegister(&ch)
	return ch.Channel(), err
}

// SetFrequency sets the RF channel, 0..125.
func (m *mode) SetFrequency(ch uint8) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	if ch > 125 {
		return ErrBadFrequency
	}
	return UpdateRegister(d, new(reg.RfCh), func(r *reg.RfCh) { r.SetChannel(ch) })
}

// SetRF sets the data rate and output power. Power ranges from 0 (-18dBm) to 3 (0dBm).
func (m *mode) SetRF(rate DataRate, power uint8) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	power = clamp(power, 0, 3)
	return UpdateRegister(d, new(reg.RfSetup), func(r *reg.RfSetup) {
		r.SetDrLow(rate == R250Kbps)
		r.SetDrHigh(rate == R2Mbps)
		r.SetPower(power)
	})
}

// SetCRC sets the packet CRC length. CRC is forced on by the transceiver when
// auto acknowledgement is enabled on any pipe.
func (m *mode) SetCRC(crc CRCMode) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	return d.UpdateConfig(func(c *reg.Config) {
		c.SetEnCRC(crc != CRCDisabled)
		c.SetCRCO(crc == CRC2Byte)
	})
}

// SetInterruptMask masks the IRQ pin reflection of each interrupt.
// The STATUS flags are still set.
func (m *mode) SetInterruptMask(rxDR, txDS, maxRT bool) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	return d.UpdateConfig(func(c *reg.Config) {
		c.SetMaskRxDR(rxDR)
		c.SetMaskTxDS(txDS)
		c.SetMaskMaxRT(maxRT)
	})
}

// SetAutoRetransmit sets the auto retransmit delay to (delay+1)*250µs and the
// retransmit count. Both range 0..15, count 0 disables retransmission.
func (m *mode) SetAutoRetransmit(delay, count uint8) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	delay = clamp(delay, 0, 15)
	count = clamp(count, 0, 15)
	return UpdateRegister(d, new(reg.SetupRetr), func(r *reg.SetupRetr) {
		r.SetDelay(delay)
		r.SetCount(count)
	})
}

// AutoAck returns the auto acknowledgement setting of each pipe.
func (m *mode) AutoAck() (pipes [reg.Pipes]bool, err error) {
	d, err := m.device()
	if err != nil {
		return pipes, err
	}
	var aa reg.EnAA
	_, err = d.ReadRegister(&aa)
	for i := range pipes {
		pipes[i] = aa.Pipe(uint8(i))
	}
	return pipes, err
}

// SetAutoAck enables auto acknowledgement (Enhanced ShockBurst) per pipe.
func (m *mode) SetAutoAck(enable [reg.Pipes]bool) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	return UpdateRegister(d, new(reg.EnAA), func(r *reg.EnAA) {
		for i, en := range enable {
			r.SetPipe(uint8(i), en)
		}
	})
}

// AddressWidth returns the RX/TX address width in bytes.
func (m *mode) AddressWidth() (uint8, error) {
	d, err := m.device()
	if err != nil {
		return 0, err
	}
	var aw reg.SetupAw
	_, err = d.ReadRegister(&aw)
	return aw.Width(), err
}

// SetAddressWidth sets the RX/TX address width, 3..5 bytes.
func (m *mode) SetAddressWidth(width uint8) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	if width < reg.MinAddrWidth || width > reg.MaxAddrWidth {
		return ErrBadAddress
	}
	return UpdateRegister(d, new(reg.SetupAw), func(r *reg.SetupAw) { r.SetWidth(width) })
}

// SetPipesRxEnable enables or disables each RX pipe.
func (m *mode) SetPipesRxEnable(enable [reg.Pipes]bool) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	return UpdateRegister(d, new(reg.EnRxAddr), func(r *reg.EnRxAddr) {
		for i, en := range enable {
			r.SetPipe(uint8(i), en)
		}
	})
}

// SetPipesRxLengths sets the payload width of each RX pipe. Pipes set to
// [DynamicLength] use dynamic payload length, which also requires auto
// acknowledgement on the pipe. Static widths are clamped to 1..32.
func (m *mode) SetPipesRxLengths(lengths [reg.Pipes]PipeLength) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	var dynpd reg.DynPD
	for i, l := range lengths {
		pipe := uint8(i)
		if l == DynamicLength {
			dynpd.SetPipe(pipe, true)
			continue
		}
		_, err = d.WriteRegister(&reg.RxPw{Pipe: pipe, Width: uint8(clamp(l, 1, reg.MaxPayload))})
		if err != nil {
			return err
		}
	}
	// EN_DPL must be set before DYNPD.
	err = UpdateRegister(d, new(reg.Feature), func(r *reg.Feature) { r.SetEnDPL(dynpd != 0) })
	if err != nil {
		return err
	}
	_, err = d.WriteRegister(&dynpd)
	return err
}

// SetDynamicAck enables the W_TX_PAYLOAD_NOACK command used by [Tx.SendNoAck].
func (m *mode) SetDynamicAck(enable bool) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	return UpdateRegister(d, new(reg.Feature), func(r *reg.Feature) { r.SetEnDynAck(enable) })
}

// SetRxAddr sets the address of an RX pipe, least significant byte first.
// Pipes 0 and 1 take a full 3..5 byte address. Pipes 2..5 share the upper bytes
// of pipe 1 so only addr[0] is written.
func (m *mode) SetRxAddr(pipe uint8, addr []byte) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	if pipe >= reg.Pipes {
		return ErrBadPipe
	}
	if len(addr) == 0 {
		return ErrBadAddress
	}
	if pipe > 1 {
		addr = addr[:1]
	} else if len(addr) < reg.MinAddrWidth || len(addr) > reg.MaxAddrWidth {
		return ErrBadAddress
	}
	_, err = d.WriteRegister(&reg.Raw{Address: reg.RX_ADDR_P0 + pipe, Data: addr})
	return err
}

// SetTxAddr sets the destination address, least significant byte first.
// RX_ADDR_P0 is set to the same address to receive auto acknowledgements.
func (m *mode) SetTxAddr(addr []byte) error {
	d, err := m.device()
	if err != nil {
		return err
	}
	if len(addr) < reg.MinAddrWidth || len(addr) > reg.MaxAddrWidth {
		return ErrBadAddress
	}
	_, err = d.WriteRegister(&reg.Raw{Address: reg.RX_ADDR_P0, Data: addr})
	if err != nil {
		return err
	}
	_, err = d.WriteRegister(&reg.Raw{Address: reg.TX_ADDR, Data: addr})
	return err
}

// Interrupts returns the interrupt flags of STATUS.
func (m *mode) Interrupts() (rxDR, txDS, maxRT bool, err error) {
	status, err := m.Status()
	return status.RxDR(), status.TxDS(), status.MaxRT(), err
}

// ClearInterrupts clears all interrupt flags of STATUS.
func (m *mode) ClearInterrupts() error {
	d, err := m.device()
	if err != nil {
		return err
	}
	var flags reg.Status
	flags.SetRxDR(true)
	flags.SetTxDS(true)
	flags.SetMaxRT(true)
	_, err = d.WriteRegister(&flags)
	return err
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
