package nrf24

import (
	"bytes"
	"testing"

	"github.com/soypat/nrf24/reg"
)

func TestDecodeTransaction(t *testing.T) {
	for _, tc := range []struct {
		mosi, miso []byte
		name       string
		addr       uint8
		data       []byte
		write      bool
		str        string
	}{
		{
			mosi: []byte{0x25, 0x4c}, miso: []byte{0x0e, 0x00},
			name: "W_REGISTER", addr: reg.RF_CH, data: []byte{0x4c}, write: true,
			str: "W_REGISTER RF_CH data=4c status=(RxDR- TxDS- MaxRT- TxFull- RxPipe:7)",
		},
		{
			mosi: []byte{0x17, 0x00}, miso: []byte{0x0e, 0x11},
			name: "R_REGISTER", addr: reg.FIFO_STATUS, data: []byte{0x11},
			str: "R_REGISTER FIFO_STATUS data=11 status=(RxDR- TxDS- MaxRT- TxFull- RxPipe:7)",
		},
		{
			mosi: []byte{0xa0, 1, 2, 3}, miso: nil,
			name: "W_TX_PAYLOAD", data: []byte{1, 2, 3}, write: true,
			str: "W_TX_PAYLOAD data=010203",
		},
		{
			mosi: []byte{0x61, 0, 0}, miso: []byte{0x40, 0xbe, 0xef},
			name: "R_RX_PAYLOAD", data: []byte{0xbe, 0xef},
		},
		{
			mosi: []byte{0xa9, 0xaa}, miso: []byte{0x0e, 0x0e},
			name: "W_ACK_PAYLOAD", data: []byte{0xaa}, write: true,
		},
		{mosi: []byte{0xff}, miso: []byte{0x2e}, name: "NOP", str: "NOP status=(RxDR- TxDS+ MaxRT- TxFull- RxPipe:7)"},
		{mosi: []byte{0xe1}, name: "FLUSH_TX", str: "FLUSH_TX"},
		{mosi: []byte{0x50, 0x73}, name: "UNKNOWN(0x50)"},
	} {
		tx := DecodeTransaction(tc.mosi, tc.miso)
		if tx.Name() != tc.name {
			t.Errorf("%#x: got %s, want %s", tc.mosi, tx.Name(), tc.name)
		}
		if tx.Addr != tc.addr || tx.Write != tc.write || !bytes.Equal(tx.Data, tc.data) {
			t.Errorf("%#x: got addr=%#x write=%v data=%#x", tc.mosi, tx.Addr, tx.Write, tx.Data)
		}
		if tc.str != "" && tx.String() != tc.str {
			t.Errorf("%#x: got %q, want %q", tc.mosi, tx.String(), tc.str)
		}
	}
}

func TestDecodeSimLog(t *testing.T) {
	sb, sim := newSimDevice(t)
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	tx.Send([]byte("hi"))
	tx.PollSend()
	var names []string
	for _, l := range sim.Log {
		names = append(names, DecodeTransaction(l.W, l.R).Name())
	}
	want := []string{"R_REGISTER", "W_REGISTER", "W_TX_PAYLOAD", "R_REGISTER", "W_REGISTER"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("transaction %d: got %s, want %s", i, names[i], want[i])
		}
	}
}
