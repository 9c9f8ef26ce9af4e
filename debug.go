package nrf24

import (
	"context"
	"encoding/hex"
	"log/slog"

	"github.com/soypat/nrf24/reg"
)

// levelTrace is used for per transaction bus logging.
const levelTrace slog.Level = slog.LevelDebug - 1

func (d *Device) logerr(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelError, msg, attrs...)
}

func (d *Device) warn(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelWarn, msg, attrs...)
}

func (d *Device) info(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelInfo, msg, attrs...)
}

func (d *Device) debug(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelDebug, msg, attrs...)
}

func (d *Device) trace(msg string, attrs ...slog.Attr) {
	d.logattrs(levelTrace, msg, attrs...)
}

func (d *Device) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	if d.logger != nil {
		d.logger.LogAttrs(context.Background(), level, msg, attrs...)
	}
}

// traceTx logs a completed bus transaction. Buffers are hex encoded only when
// trace logging is enabled since it allocates.
func (d *Device) traceTx(w, r []byte) {
	if !d._traceenabled {
		return
	}
	d.trace("spi:tx",
		slog.String("cmd", DecodeTransaction(w, r).Name()),
		slog.String("w", hex.EncodeToString(w)),
		slog.String("r", hex.EncodeToString(r)),
	)
}

func statusAttr(s reg.Status) slog.Attr {
	return slog.String("status", s.String())
}
