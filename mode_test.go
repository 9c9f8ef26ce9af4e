package nrf24

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/soypat/nrf24/internal/nrfsim"
	"github.com/soypat/nrf24/reg"
)

func TestSendAndPoll(t *testing.T) {
	addrRx := []byte{0xe1, 0xf0, 0xf0, 0xf0, 0xf0}
	addrTx := []byte{0xd2, 0xf0, 0xf0, 0xf0, 0xf0}
	sb, sim := newSimDevice(t)
	if err := sb.SetRxAddr(1, addrRx); err != nil {
		t.Fatal(err)
	}
	if err := sb.SetTxAddr(addrTx); err != nil {
		t.Fatal(err)
	}
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	if sim.CELevel() {
		t.Error("CE raised before sending")
	}
	if err := tx.Send([]byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatal(err)
	}
	if !sim.CELevel() {
		t.Error("CE not raised after send")
	}
	delivered, err := tx.PollSend()
	if err != nil {
		t.Fatal(err)
	}
	if !delivered {
		t.Error("expected delivery")
	}
	if sim.CELevel() {
		t.Error("CE high after successful send")
	}
	if len(sim.Sent) != 1 || !bytes.Equal(sim.Sent[0], []byte{1, 2, 3}) {
		t.Errorf("sent %#x", sim.Sent)
	}
	if !bytes.Equal(sim.Reg(reg.TX_ADDR), addrTx) || !bytes.Equal(sim.Reg(reg.RX_ADDR_P0), addrTx) {
		t.Error("TX_ADDR and RX_ADDR_P0 must match for auto acknowledgement")
	}
	if !bytes.Equal(sim.Reg(reg.RX_ADDR_P1), addrRx) {
		t.Error("bad RX_ADDR_P1")
	}
	if sim.Violations != 0 {
		t.Error("transactions without CSN:", sim.Violations)
	}
}

func TestPollSendStates(t *testing.T) {
	for _, tc := range []struct {
		name       string
		stall      bool
		drop       bool
		delivered  bool
		err        error
		ceHigh     bool
		queuedLeft int
	}{
		{name: "delivered", delivered: true},
		{name: "max-rt", drop: true, delivered: false},
		{name: "pending", stall: true, err: ErrWouldBlock, ceHigh: true, queuedLeft: 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sb, sim := newSimDevice(t)
			tx, err := sb.Tx()
			if err != nil {
				t.Fatal(err)
			}
			sim.Stall = tc.stall
			sim.Drop = tc.drop
			if err := tx.Send([]byte("hello")); err != nil {
				t.Fatal(err)
			}
			delivered, err := tx.PollSend()
			if err != tc.err {
				t.Fatalf("got err %v, want %v", err, tc.err)
			}
			if delivered != tc.delivered {
				t.Errorf("delivered=%v, want %v", delivered, tc.delivered)
			}
			if sim.CELevel() != tc.ceHigh {
				t.Errorf("CE=%v, want %v", sim.CELevel(), tc.ceHigh)
			}
			if sim.TxQueued() != tc.queuedLeft {
				t.Errorf("TX FIFO holds %d packets, want %d", sim.TxQueued(), tc.queuedLeft)
			}
			status := reg.Status(sim.Reg(reg.STATUS)[0])
			if tc.err == nil && (status.TxDS() || status.MaxRT()) {
				t.Error("TX interrupts not cleared:", status)
			}
		})
	}
}

func TestObserve(t *testing.T) {
	sb, sim := newSimDevice(t)
	if err := sb.SetAutoRetransmit(1, 5); err != nil {
		t.Fatal(err)
	}
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	sim.Drop = true
	for i := 0; i < 2; i++ {
		tx.Send([]byte{byte(i)})
		delivered, err := tx.PollSend()
		if err != nil || delivered {
			t.Fatal("expected failed delivery", err)
		}
	}
	obs, err := tx.Observe()
	if err != nil {
		t.Fatal(err)
	}
	if obs.LostPackets() != 2 || obs.Retransmits() != 5 {
		t.Error("unexpected OBSERVE_TX", obs)
	}
}

func TestWaitEmpty(t *testing.T) {
	sb, sim := newSimDevice(t)
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := tx.Send([]byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.WaitEmpty(); err != nil {
		t.Fatal(err)
	}
	if len(sim.Sent) != 3 || sim.TxQueued() != 0 || sim.CELevel() {
		t.Errorf("sent=%d queued=%d CE=%v", len(sim.Sent), sim.TxQueued(), sim.CELevel())
	}

	// Undeliverable packets are flushed instead of blocking forever.
	sim.Drop = true
	tx.Send([]byte{1})
	tx.Send([]byte{2})
	if err := tx.WaitEmpty(); err != nil {
		t.Fatal(err)
	}
	if len(sim.Sent) != 3 || sim.TxQueued() != 0 || sim.CELevel() {
		t.Errorf("sent=%d queued=%d CE=%v", len(sim.Sent), sim.TxQueued(), sim.CELevel())
	}
}

func TestWaitEmptyContext(t *testing.T) {
	sb, sim := newSimDevice(t)
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	sim.Stall = true
	tx.Send([]byte{1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = tx.WaitEmptyContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatal("expected cancellation, got", err)
	}
	if sim.CELevel() {
		t.Error("CE left high after cancellation")
	}
	// Standby drains the FIFO once the radio resumes.
	sim.Stall = false
	_, err = tx.Standby()
	if err != nil {
		t.Fatal(err)
	}
}

func TestSendLimits(t *testing.T) {
	sb, sim := newSimDevice(t)
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	ntx := len(sim.Log)
	if err := tx.Send(make([]byte, 33)); err != ErrPayloadTooLong {
		t.Error("expected ErrPayloadTooLong, got", err)
	}
	if err := tx.Send(nil); err != ErrEmptyPayload {
		t.Error("expected ErrEmptyPayload, got", err)
	}
	if len(sim.Log) != ntx {
		t.Error("invalid payload reached the bus")
	}
	if err := tx.Send(make([]byte, 32)); err != nil {
		t.Error(err)
	}
}

func TestTxFIFO(t *testing.T) {
	sb, sim := newSimDevice(t)
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	sim.Stall = true
	empty, err := tx.IsEmpty()
	if err != nil || !empty {
		t.Fatal("expected empty TX FIFO", err)
	}
	for i := 0; i < 3; i++ {
		ok, err := tx.CanSend()
		if err != nil || !ok {
			t.Fatal("expected room in TX FIFO", err)
		}
		tx.Send([]byte{byte(i)})
	}
	full, err := tx.IsFull()
	if err != nil || !full {
		t.Error("expected full TX FIFO", err)
	}
	ok, _ := tx.CanSend()
	if ok {
		t.Error("CanSend on full FIFO")
	}
	if err := tx.FlushTx(); err != nil {
		t.Fatal(err)
	}
	if sim.TxQueued() != 0 {
		t.Error("FIFO not flushed")
	}
}

func TestReuse(t *testing.T) {
	sb, sim := newSimDevice(t)
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	tx.Send([]byte{7})
	if ok, err := tx.PollSend(); !ok || err != nil {
		t.Fatal("send failed", err)
	}
	if err := tx.Reuse(); err != nil {
		t.Fatal(err)
	}
	tx.Status() // Transmits once more.
	if len(sim.Sent) < 2 || !bytes.Equal(sim.Sent[1], []byte{7}) {
		t.Errorf("payload not reused: %#x", sim.Sent)
	}
	tx.FlushTx()
	tx.dev.CEDisable()
}

func TestReceive(t *testing.T) {
	sb, sim := newSimDevice(t)
	rx, err := sb.Rx()
	if err != nil {
		t.Fatal(err)
	}
	if !sim.CELevel() || !reg.Config(sim.Reg(reg.CONFIG)[0]).PrimRx() {
		t.Fatal("not listening")
	}
	_, ok, err := rx.CanRead()
	if err != nil || ok {
		t.Fatal("expected empty RX FIFO", err)
	}
	if _, err := rx.Read(); err != ErrWouldBlock {
		t.Fatal("expected ErrWouldBlock, got", err)
	}
	sim.Inject(2, []byte("abc"))
	sim.Inject(4, []byte("0123456789"))
	pipe, ok, err := rx.CanRead()
	if err != nil || !ok || pipe != 2 {
		t.Fatalf("CanRead: pipe=%d ok=%v err=%v", pipe, ok, err)
	}
	p, err := rx.Read()
	if err != nil {
		t.Fatal(err)
	}
	if p.Pipe() != 2 || string(p.Bytes()) != "abc" {
		t.Errorf("got %s", &p)
	}
	p, err = rx.Read()
	if err != nil {
		t.Fatal(err)
	}
	if p.Pipe() != 4 || p.Len() != 10 {
		t.Errorf("got %s", &p)
	}
	empty, err := rx.IsEmpty()
	if err != nil || !empty {
		t.Error("expected empty RX FIFO", err)
	}

	if _, err := rx.Standby(); err != nil {
		t.Fatal(err)
	}
	if sim.CELevel() {
		t.Error("CE high in standby")
	}
}

func TestReceiveCorrupt(t *testing.T) {
	sb, sim := newSimDevice(t)
	rx, err := sb.Rx()
	if err != nil {
		t.Fatal(err)
	}
	sim.Inject(0, make([]byte, 40))
	sim.Inject(0, []byte{1})
	if _, err := rx.Read(); err != ErrCorruptPayload {
		t.Fatal("expected ErrCorruptPayload, got", err)
	}
	if sim.RxQueued() != 0 {
		t.Error("RX FIFO not flushed")
	}
}

func TestRxFull(t *testing.T) {
	sb, sim := newSimDevice(t)
	rx, err := sb.Rx()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		sim.Inject(1, []byte{byte(i)})
	}
	full, err := rx.IsFull()
	if err != nil || !full {
		t.Error("expected full RX FIFO", err)
	}
	if err := rx.FlushRx(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := rx.CanRead(); ok {
		t.Error("RX FIFO not flushed")
	}
}

func TestConsumedHandles(t *testing.T) {
	sb, sim := newSimDevice(t)
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	ntx := len(sim.Log)
	if _, err := sb.Status(); err != ErrConsumed {
		t.Error("standby handle usable after Tx:", err)
	}
	if _, err := sb.Rx(); err != ErrConsumed {
		t.Error("standby handle transitioned twice:", err)
	}
	if len(sim.Log) != ntx {
		t.Error("consumed handle issued bus traffic")
	}

	sb2, err := tx.Standby()
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Send([]byte{1}); err != ErrConsumed {
		t.Error("tx handle usable after Standby:", err)
	}
	if _, err := tx.PollSend(); err != ErrConsumed {
		t.Error("tx handle usable after Standby:", err)
	}
	rx, err := sb2.Rx()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rx.Standby(); err != nil {
		t.Fatal(err)
	}
	if _, err := rx.Read(); err != ErrConsumed {
		t.Error("rx handle usable after Standby:", err)
	}
}

func TestFailedTransitionKeepsHandle(t *testing.T) {
	sb, sim := newSimDevice(t)
	errBus := errors.New("bus fault")
	sim.Err = errBus
	rx, err := sb.Rx()
	if err != errBus || rx != nil {
		t.Fatalf("got %v %v, want transport error", rx, err)
	}
	if sb.dev == nil || sb.dev.Config().PrimRx() {
		t.Fatal("failed transition altered standby handle")
	}
	if sim.CELevel() {
		t.Error("CE raised on failed transition")
	}
	sim.Err = nil
	if _, err := sb.Rx(); err != nil {
		t.Fatal(err)
	}
}

func TestPowerDown(t *testing.T) {
	sb, sim := newSimDevice(t)
	off, err := sb.PowerDown()
	if err != nil {
		t.Fatal(err)
	}
	if reg.Config(sim.Reg(reg.CONFIG)[0]).PwrUp() {
		t.Error("PWR_UP set after PowerDown")
	}
	if _, err := sb.Tx(); err != ErrConsumed {
		t.Error("standby usable after PowerDown:", err)
	}
	if err := off.SetFrequency(42); err != nil {
		t.Error("configure while powered down:", err)
	}
	sb, err = off.PowerUp()
	if err != nil {
		t.Fatal(err)
	}
	if !reg.Config(sim.Reg(reg.CONFIG)[0]).PwrUp() {
		t.Error("PWR_UP clear after PowerUp")
	}
	if got := sim.Reg(reg.RF_CH)[0]; got != 42 {
		t.Errorf("RF_CH=%d after power cycle, want 42", got)
	}
	// A second PowerUp must not hand out another live handle.
	if _, err := off.PowerUp(); err != ErrConsumed {
		t.Error("powered down handle reused:", err)
	}
	if err := off.SetFrequency(1); err != ErrConsumed {
		t.Error("powered down handle configurable after PowerUp:", err)
	}
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Send([]byte{1}); err != nil {
		t.Fatal(err)
	}
	if reg.Config(sim.Reg(reg.CONFIG)[0]).PrimRx() {
		t.Error("PRIM_RX set while a Tx handle is live")
	}
}

func TestLinkedRadios(t *testing.T) {
	addr := []byte{1, 2, 3, 4, 5}
	simA, simB := nrfsim.New(), nrfsim.New()
	simA.Peer = simB
	sbA, err := New(simA, simA.CE, simA.CSN, Config{})
	if err != nil {
		t.Fatal(err)
	}
	sbB, err := New(simB, simB.CE, simB.CSN, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := sbB.SetRxAddr(1, addr); err != nil {
		t.Fatal(err)
	}
	if err := sbB.SetPipesRxLengths([reg.Pipes]PipeLength{}); err != nil {
		t.Fatal(err)
	}
	if err := sbA.SetTxAddr(addr); err != nil {
		t.Fatal(err)
	}
	tx, err := sbA.Tx()
	if err != nil {
		t.Fatal(err)
	}

	// Receiver is not listening yet.
	tx.Send([]byte("ping"))
	if ok, err := tx.PollSend(); ok || err != nil {
		t.Fatal("expected failed delivery", err)
	}

	rx, err := sbB.Rx()
	if err != nil {
		t.Fatal(err)
	}
	tx.Send([]byte("ping"))
	if ok, err := tx.PollSend(); !ok || err != nil {
		t.Fatal("expected delivery", err)
	}
	p, err := rx.Read()
	if err != nil {
		t.Fatal(err)
	}
	if p.Pipe() != 1 || string(p.Bytes()) != "ping" {
		t.Errorf("received %s", &p)
	}
}

func TestSendNoAck(t *testing.T) {
	sb, sim := newSimDevice(t)
	sim.Drop = true
	tx, err := sb.Tx()
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.SendNoAck([]byte{1}); err != nil {
		t.Fatal(err)
	}
	if sim.TxQueued() != 0 {
		t.Error("W_TX_PAYLOAD_NOACK accepted without EN_DYN_ACK")
	}
	if err := tx.FlushTx(); err != nil {
		t.Fatal(err)
	}
	if err := tx.SetDynamicAck(true); err != nil {
		t.Fatal(err)
	}
	if !reg.Feature(sim.Reg(reg.FEATURE)[0]).EnDynAck() {
		t.Fatal("EN_DYN_ACK not set")
	}
	if err := tx.SendNoAck([]byte{2}); err != nil {
		t.Fatal(err)
	}
	delivered, err := tx.PollSend()
	if err != nil || !delivered {
		t.Fatalf("delivered=%v err=%v, unacknowledged packets never reach MAX_RT", delivered, err)
	}
	if len(sim.Sent) != 1 || sim.Sent[0][0] != 2 {
		t.Errorf("sent %#x", sim.Sent)
	}
}
