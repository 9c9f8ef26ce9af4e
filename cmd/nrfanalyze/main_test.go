package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/soypat/nrf24/reg"
	"github.com/soypat/saleae/analyzers"
)

func TestProcess(t *testing.T) {
	poll := analyzers.TxSPI{SDO: []byte{0x17, 0x00}, SDI: []byte{0x0e, 0x00}}
	txs := []analyzers.TxSPI{
		{SDO: []byte{0x25, 0x4c}, SDI: []byte{0x0e, 0x00}},
		{SDO: []byte{0xa0, 1, 2}, SDI: []byte{0x0e, 0x0e, 0x0e}},
		poll, poll, poll,
		{SDO: []byte{0x17, 0x00}, SDI: []byte{0x2e, 0x11}},
		{SDO: []byte{0xff}, SDI: []byte{0x2e}},
	}
	got := process(txs)
	wantNum := []int{1, 1, 3, 1, 1}
	if len(got) != len(wantNum) {
		t.Fatalf("got %d transactions, want %d", len(got), len(wantNum))
	}
	for i, n := range wantNum {
		if got[i].Num != n {
			t.Errorf("transaction %d: count %d, want %d", i, got[i].Num, n)
		}
	}
	if got[2].Tx.Addr != reg.FIFO_STATUS || got[2].Tx.Write {
		t.Error("bad poll decode", got[2].Tx)
	}

	var buf bytes.Buffer
	f := Filter{OmitNOP: true, OmitStatus: true, OmitAddrs: map[uint8]bool{reg.RF_CH: true}}
	if err := f.write(&buf, got, false); err != nil {
		t.Fatal(err)
	}
	want := "cmd×  1 W_TX_PAYLOAD data=0102\n" +
		"cmd×  3 R_REGISTER FIFO_STATUS data=00\n" +
		"cmd×  1 R_REGISTER FIFO_STATUS data=11\n"
	if buf.String() != want {
		t.Errorf("got output:\n%s\nwant:\n%s", buf.String(), want)
	}

	buf.Reset()
	f = Filter{OmitRead: true}
	f.write(&buf, got, false)
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Errorf("got %d write lines, want 2:\n%s", lines, buf.String())
	}
}

func TestParseRegs(t *testing.T) {
	addrs, err := parseRegs("STATUS, FIFO_STATUS,RX_ADDR_P3")
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 3 || !addrs[reg.STATUS] || !addrs[reg.FIFO_STATUS] || !addrs[reg.RX_ADDR_P3] {
		t.Error("unexpected addresses", addrs)
	}
	if _, err := parseRegs("STATUS,BOGUS"); err == nil {
		t.Error("expected error for unknown register")
	}
}
