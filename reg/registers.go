package reg

import "strconv"

// Status is the STATUS register. Its value is clocked out as the first byte of
// every SPI transaction. Interrupt flags are cleared by writing 1 to them.
type Status uint8

const (
	statusTxFull = 0
	statusRxPNo  = 1
	statusMaxRT  = 4
	statusTxDS   = 5
	statusRxDR   = 6
)

func (s Status) Addr() uint8        { return STATUS }
func (s Status) Len() int           { return 1 }
func (s Status) Encode(dst []byte)  { dst[0] = byte(s) }
func (s *Status) Decode(src []byte) { *s = Status(src[0]) }
func (s Status) RxDR() bool         { return bit(s, statusRxDR) }
func (s Status) TxDS() bool         { return bit(s, statusTxDS) }
func (s Status) MaxRT() bool        { return bit(s, statusMaxRT) }
func (s Status) TxFull() bool       { return bit(s, statusTxFull) }
func (s *Status) SetRxDR(b bool)    { *s = setbit(*s, statusRxDR, b) }
func (s *Status) SetTxDS(b bool)    { *s = setbit(*s, statusTxDS, b) }
func (s *Status) SetMaxRT(b bool)   { *s = setbit(*s, statusMaxRT, b) }

// RxPipe is the RX_P_NO field: the data pipe of the payload at the head of the
// RX FIFO. 0b110 is unused and [RxPipeEmpty] means the RX FIFO is empty.
func (s Status) RxPipe() uint8 { return uint8(field(s, statusRxPNo, 3)) }

// RxEmpty reports whether RX_P_NO indicates an empty RX FIFO.
func (s Status) RxEmpty() bool { return s.RxPipe() == RxPipeEmpty }

func (s Status) String() string {
	return flags("RxDR+ TxDS+ MaxRT+ TxFull+ RxPipe:", 0x71, byte(s)) + strconv.Itoa(int(s.RxPipe()))
}

// Config is the CONFIG register.
type Config uint8

const (
	configPrimRx = iota
	configPwrUp
	configCRCO
	configEnCRC
	configMaskMaxRT
	configMaskTxDS
	configMaskRxDR
)

func (c Config) Addr() uint8          { return CONFIG }
func (c Config) Len() int             { return 1 }
func (c Config) Encode(dst []byte)    { dst[0] = byte(c) }
func (c *Config) Decode(src []byte)   { *c = Config(src[0]) }
func (c Config) PrimRx() bool         { return bit(c, configPrimRx) }
func (c Config) PwrUp() bool          { return bit(c, configPwrUp) }
func (c Config) CRCO() bool           { return bit(c, configCRCO) }
func (c Config) EnCRC() bool          { return bit(c, configEnCRC) }
func (c Config) MaskMaxRT() bool      { return bit(c, configMaskMaxRT) }
func (c Config) MaskTxDS() bool       { return bit(c, configMaskTxDS) }
func (c Config) MaskRxDR() bool       { return bit(c, configMaskRxDR) }
func (c *Config) SetPrimRx(b bool)    { *c = setbit(*c, configPrimRx, b) }
func (c *Config) SetPwrUp(b bool)     { *c = setbit(*c, configPwrUp, b) }
func (c *Config) SetCRCO(b bool)      { *c = setbit(*c, configCRCO, b) }
func (c *Config) SetEnCRC(b bool)     { *c = setbit(*c, configEnCRC, b) }
func (c *Config) SetMaskMaxRT(b bool) { *c = setbit(*c, configMaskMaxRT, b) }
func (c *Config) SetMaskTxDS(b bool)  { *c = setbit(*c, configMaskTxDS, b) }
func (c *Config) SetMaskRxDR(b bool)  { *c = setbit(*c, configMaskRxDR, b) }

func (c Config) String() string {
	return flags("Mask(RxDR+ TxDS+ MaxRT+) EnCRC+ CRCO+ PwrUp+ PrimRx+", 0x7f, byte(c))
}

// FIFOStatus is the FIFO_STATUS register. It is read only.
type FIFOStatus uint8

func (f FIFOStatus) Addr() uint8        { return FIFO_STATUS }
func (f FIFOStatus) Len() int           { return 1 }
func (f FIFOStatus) Encode(dst []byte)  { dst[0] = byte(f) }
func (f *FIFOStatus) Decode(src []byte) { *f = FIFOStatus(src[0]) }
func (f FIFOStatus) RxEmpty() bool      { return bit(f, 0) }
func (f FIFOStatus) RxFull() bool       { return bit(f, 1) }
func (f FIFOStatus) TxEmpty() bool      { return bit(f, 4) }
func (f FIFOStatus) TxFull() bool       { return bit(f, 5) }
func (f FIFOStatus) TxReuse() bool      { return bit(f, 6) }

func (f FIFOStatus) String() string {
	return flags("TxReuse+ TxFull+ TxEmpty+ RxFull+ RxEmpty+", 0x73, byte(f))
}

// ObserveTx is the OBSERVE_TX transmit diagnostics register.
type ObserveTx uint8

func (o ObserveTx) Addr() uint8        { return OBSERVE_TX }
func (o ObserveTx) Len() int           { return 1 }
func (o ObserveTx) Encode(dst []byte)  { dst[0] = byte(o) }
func (o *ObserveTx) Decode(src []byte) { *o = ObserveTx(src[0]) }

// LostPackets is PLOS_CNT, the count of packets lost since the last write to RF_CH.
// It saturates at 15.
func (o ObserveTx) LostPackets() uint8 { return uint8(field(o, 4, 4)) }

// Retransmits is ARC_CNT, the count of retransmissions of the current packet.
func (o ObserveTx) Retransmits() uint8 { return uint8(field(o, 0, 4)) }

func (o ObserveTx) String() string {
	return "lost=" + strconv.Itoa(int(o.LostPackets())) + " retransmits=" + strconv.Itoa(int(o.Retransmits()))
}

// SetupAw is the SETUP_AW address width register.
type SetupAw uint8

func (a SetupAw) Addr() uint8        { return SETUP_AW }
func (a SetupAw) Len() int           { return 1 }
func (a SetupAw) Encode(dst []byte)  { dst[0] = byte(a) }
func (a *SetupAw) Decode(src []byte) { *a = SetupAw(src[0]) }

// Width returns the address width in bytes. 0b00 is illegal and yields 2.
func (a SetupAw) Width() uint8 { return uint8(field(a, 0, 2)) + 2 }

// SetWidth sets the address width in bytes, w must be in 3..5.
func (a *SetupAw) SetWidth(w uint8) { *a = setfield(*a, 0, 2, SetupAw(w-2)) }

// SetupRetr is the SETUP_RETR automatic retransmission register.
type SetupRetr uint8

func (r SetupRetr) Addr() uint8        { return SETUP_RETR }
func (r SetupRetr) Len() int           { return 1 }
func (r SetupRetr) Encode(dst []byte)  { dst[0] = byte(r) }
func (r *SetupRetr) Decode(src []byte) { *r = SetupRetr(src[0]) }

// Delay is ARD: wait (Delay+1)*250µs between retransmits.
func (r SetupRetr) Delay() uint8 { return uint8(field(r, 4, 4)) }

// Count is ARC: the maximum number of retransmits.
func (r SetupRetr) Count() uint8      { return uint8(field(r, 0, 4)) }
func (r *SetupRetr) SetDelay(d uint8) { *r = setfield(*r, 4, 4, SetupRetr(d)) }
func (r *SetupRetr) SetCount(c uint8) { *r = setfield(*r, 0, 4, SetupRetr(c)) }

// RfCh is the RF_CH channel register. The frequency is 2400+channel MHz.
type RfCh uint8

func (c RfCh) Addr() uint8        { return RF_CH }
func (c RfCh) Len() int           { return 1 }
func (c RfCh) Encode(dst []byte)  { dst[0] = byte(c) }
func (c *RfCh) Decode(src []byte) { *c = RfCh(src[0]) }
func (c RfCh) Channel() uint8     { return uint8(field(c, 0, 7)) }
func (c *RfCh) SetChannel(ch uint8) {
	*c = setfield(*c, 0, 7, RfCh(ch))
}

// RfSetup is the RF_SETUP register.
type RfSetup uint8

const (
	rfPwr      = 1
	rfDrHigh   = 3
	rfPllLock  = 4
	rfDrLow    = 5
	rfContWave = 7
)

func (s RfSetup) Addr() uint8        { return RF_SETUP }
func (s RfSetup) Len() int           { return 1 }
func (s RfSetup) Encode(dst []byte)  { dst[0] = byte(s) }
func (s *RfSetup) Decode(src []byte) { *s = RfSetup(src[0]) }

// Power is RF_PWR: 0=-18dBm 1=-12dBm 2=-6dBm 3=0dBm.
func (s RfSetup) Power() uint8        { return uint8(field(s, rfPwr, 2)) }
func (s RfSetup) DrHigh() bool        { return bit(s, rfDrHigh) }
func (s RfSetup) DrLow() bool         { return bit(s, rfDrLow) }
func (s RfSetup) ContWave() bool      { return bit(s, rfContWave) }
func (s *RfSetup) SetPower(p uint8)   { *s = setfield(*s, rfPwr, 2, RfSetup(p)) }
func (s *RfSetup) SetDrHigh(b bool)   { *s = setbit(*s, rfDrHigh, b) }
func (s *RfSetup) SetDrLow(b bool)    { *s = setbit(*s, rfDrLow, b) }
func (s *RfSetup) SetContWave(b bool) { *s = setbit(*s, rfContWave, b) }

// PowerDBm returns the output power in dBm.
func (s RfSetup) PowerDBm() int { return 6*int(s.Power()) - 18 }

func (s RfSetup) String() string {
	return flags("Wave+ DRLow+ Lock+ DRHigh+ Pwr:", 0xb8, byte(s)) + strconv.Itoa(s.PowerDBm()) + "dBm"
}

// EnAA is the EN_AA auto acknowledgement register, one bit per pipe.
type EnAA uint8

func (e EnAA) Addr() uint8              { return EN_AA }
func (e EnAA) Len() int                 { return 1 }
func (e EnAA) Encode(dst []byte)        { dst[0] = byte(e) }
func (e *EnAA) Decode(src []byte)       { *e = EnAA(src[0]) }
func (e EnAA) Pipe(n uint8) bool        { return bit(e, n) }
func (e *EnAA) SetPipe(n uint8, b bool) { *e = setbit(*e, n, b) }

// EnRxAddr is the EN_RXADDR register, one bit per enabled RX pipe.
type EnRxAddr uint8

func (e EnRxAddr) Addr() uint8              { return EN_RXADDR }
func (e EnRxAddr) Len() int                 { return 1 }
func (e EnRxAddr) Encode(dst []byte)        { dst[0] = byte(e) }
func (e *EnRxAddr) Decode(src []byte)       { *e = EnRxAddr(src[0]) }
func (e EnRxAddr) Pipe(n uint8) bool        { return bit(e, n) }
func (e *EnRxAddr) SetPipe(n uint8, b bool) { *e = setbit(*e, n, b) }

// DynPD is the DYNPD register, one bit per pipe with dynamic payload length.
type DynPD uint8

func (e DynPD) Addr() uint8              { return DYNPD }
func (e DynPD) Len() int                 { return 1 }
func (e DynPD) Encode(dst []byte)        { dst[0] = byte(e) }
func (e *DynPD) Decode(src []byte)       { *e = DynPD(src[0]) }
func (e DynPD) Pipe(n uint8) bool        { return bit(e, n) }
func (e *DynPD) SetPipe(n uint8, b bool) { *e = setbit(*e, n, b) }

// Feature is the FEATURE register.
type Feature uint8

func (f Feature) Addr() uint8         { return FEATURE }
func (f Feature) Len() int            { return 1 }
func (f Feature) Encode(dst []byte)   { dst[0] = byte(f) }
func (f *Feature) Decode(src []byte)  { *f = Feature(src[0]) }
func (f Feature) EnDynAck() bool      { return bit(f, 0) }
func (f Feature) EnAckPay() bool      { return bit(f, 1) }
func (f Feature) EnDPL() bool         { return bit(f, 2) }
func (f *Feature) SetEnDynAck(b bool) { *f = setbit(*f, 0, b) }
func (f *Feature) SetEnAckPay(b bool) { *f = setbit(*f, 1, b) }
func (f *Feature) SetEnDPL(b bool)    { *f = setbit(*f, 2, b) }

func (f Feature) String() string {
	return flags("DPL+ AckPay+ DynAck+", 7, byte(f))
}

// Rpd is the RPD received power detector register.
type Rpd uint8

func (r Rpd) Addr() uint8        { return RPD }
func (r Rpd) Len() int           { return 1 }
func (r Rpd) Encode(dst []byte)  { dst[0] = byte(r) }
func (r *Rpd) Decode(src []byte) { *r = Rpd(src[0]) }

// Detected reports received power above -64dBm.
func (r Rpd) Detected() bool { return bit(r, 0) }

// RxPw is an RX_PW_Pn static payload width register.
type RxPw struct {
	Pipe  uint8
	Width uint8
}

func (p RxPw) Addr() uint8        { return RX_PW_P0 + p.Pipe }
func (p RxPw) Len() int           { return 1 }
func (p RxPw) Encode(dst []byte)  { dst[0] = p.Width & 0x3f }
func (p *RxPw) Decode(src []byte) { p.Width = src[0] & 0x3f }
