package nrf24

import "errors"

var (
	// ErrWouldBlock is returned by non-blocking operations that have not completed yet.
	// The caller should retry later.
	ErrWouldBlock = errors.New("nrf24: operation would block")
	// ErrConsumed is returned when calling a mode handle after it transitioned to another mode.
	ErrConsumed = errors.New("nrf24: mode handle used after transition")
	// ErrNotConnected is returned by New when SETUP_AW does not hold a valid address width.
	ErrNotConnected = errors.New("nrf24: transceiver not responding")
	// ErrPayloadTooLong is returned when sending more than 32 bytes.
	ErrPayloadTooLong = errors.New("nrf24: payload exceeds 32 bytes")
	// ErrEmptyPayload is returned when sending zero bytes.
	ErrEmptyPayload = errors.New("nrf24: empty payload")
	// ErrCorruptPayload is returned by Read when R_RX_PL_WID reports 0 or more
	// than 32 bytes. The RX FIFO has been flushed.
	ErrCorruptPayload = errors.New("nrf24: invalid RX payload width, RX FIFO flushed")
	// ErrBadPipe is returned for pipe numbers above 5.
	ErrBadPipe = errors.New("nrf24: pipe number out of range 0..5")
	// ErrBadAddress is returned for addresses outside 3..5 bytes.
	ErrBadAddress = errors.New("nrf24: address width out of range 3..5")
	// ErrBadFrequency is returned for RF channels above 125.
	ErrBadFrequency = errors.New("nrf24: RF channel out of range 0..125")
)
