package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/reg"
	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
)

// Filter selects which transactions are written to output.
type Filter struct {
	OmitRead   bool
	OmitWrite  bool
	OmitNOP    bool
	OmitStatus bool
	// OmitAddrs omits register commands addressing these registers.
	OmitAddrs map[uint8]bool
}

type nrftx struct {
	Num   int
	Tx    nrf24.Transaction
	Start float64
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "nrfanalyze - Process Binary Saleae digital data files corresponding to nRF24L01 transactions.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	cs := flag.String("f-cs", "digital_0.bin", "Input filename: SPI CSN data.")
	mosi := flag.String("f-mosi", "digital_1.bin", "Input filename: SPI MOSI data.")
	clk := flag.String("f-clk", "digital_2.bin", "Input filename: SPI SCK data.")
	miso := flag.String("f-miso", "digital_3.bin", "Input filename: SPI MISO data.")
	output := flag.String("o", "commands.txt", "Output filename of nRF24L01 command transactions. Use '-' for stdout.")
	timings := flag.Bool("time", false, "Prefix each line with the transaction start time in seconds.")
	omitRead := flag.Bool("omit-read", false, "Omit commands that read from the transceiver.")
	omitWrite := flag.Bool("omit-write", false, "Omit commands that write to the transceiver.")
	omitNOP := flag.Bool("omit-nop", false, "Omit NOP commands, usually status polls.")
	omitStatus := flag.Bool("omit-status", false, "Omit STATUS byte from output.")
	omitRegs := flag.String("omit-regs", "", "Omit register commands addressing these registers. Comma separated register names, i.e: FIFO_STATUS,STATUS")
	flag.Parse()

	filter := Filter{
		OmitRead:   *omitRead,
		OmitWrite:  *omitWrite,
		OmitNOP:    *omitNOP,
		OmitStatus: *omitStatus,
	}
	if filter.OmitRead && filter.OmitWrite {
		fatal("cannot omit both read and write commands")
	}
	if *omitRegs != "" {
		var err error
		filter.OmitAddrs, err = parseRegs(*omitRegs)
		if err != nil {
			fatal(err.Error())
		}
	}
	start := time.Now()
	if err := run(filter, *clk, *cs, *mosi, *miso, *output, *timings); err != nil {
		fatal(err.Error())
	}
	slog.Info("finished", slog.Duration("elapsed", time.Since(start)))
}

func fatal(msg string) {
	slog.Error(msg)
	os.Exit(1)
}

func run(filter Filter, clk, cs, mosi, miso, output string, timings bool) error {
	txs, err := processSpiFiles(clk, cs, mosi, miso)
	if err != nil {
		return err
	}
	slog.Debug("scanned capture", slog.Int("transactions", len(txs)))
	var w io.Writer = os.Stdout
	if output != "-" {
		fp, err := os.Create(output)
		if err != nil {
			return err
		}
		defer fp.Close()
		w = fp
	}
	return filter.write(w, process(txs), timings)
}

func processSpiFiles(fclk, fcs, fmosi, fmiso string) ([]analyzers.TxSPI, error) {
	clk, err := opendigital(fclk)
	if err != nil {
		return nil, err
	}
	cs, err := opendigital(fcs)
	if err != nil {
		return nil, err
	}
	mosi, err := opendigital(fmosi)
	if err != nil {
		return nil, err
	}
	miso, err := opendigital(fmiso)
	if err != nil {
		return nil, err
	}
	var spi analyzers.SPI
	return spi.Scan(clk, cs, mosi, miso)
}

func opendigital(filename string) (*saleae.DigitalFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return saleae.ReadDigitalFile(fp)
}

// process decodes transactions and collapses runs of identical consecutive
// transactions, which are common when polling.
func process(txs []analyzers.TxSPI) (nrftxs []nrftx) {
	for i := 0; i < len(txs); i++ {
		n := 1
		for j := i + 1; j < len(txs); j++ {
			if !bytes.Equal(txs[i].SDO, txs[j].SDO) || !bytes.Equal(txs[i].SDI, txs[j].SDI) {
				break
			}
			n++
		}
		nrftxs = append(nrftxs, nrftx{
			Num:   n,
			Tx:    nrf24.DecodeTransaction(txs[i].SDO, txs[i].SDI),
			Start: txs[i].StartTime(),
		})
		i += n - 1
	}
	return nrftxs
}

func (f *Filter) omit(tx nrf24.Transaction) bool {
	switch {
	case f.OmitRead && !tx.Write, f.OmitWrite && tx.Write:
		return true
	case f.OmitNOP && tx.Opcode == reg.NOP:
		return true
	case tx.Opcode == reg.R_REGISTER || tx.Opcode == reg.W_REGISTER:
		return f.OmitAddrs[tx.Addr]
	}
	return false
}

func (f *Filter) write(w io.Writer, txs []nrftx, timings bool) error {
	for _, action := range txs {
		if f.omit(action.Tx) {
			continue
		}
		if f.OmitStatus {
			action.Tx.HasStatus = false
		}
		if timings {
			fmt.Fprintf(w, "t=%f\t", action.Start)
		}
		_, err := fmt.Fprintf(w, "cmd×%3d %s\n", action.Num, action.Tx.String())
		if err != nil {
			return err
		}
	}
	return nil
}

func parseRegs(list string) (map[uint8]bool, error) {
	addrs := make(map[uint8]bool)
	for _, name := range strings.Split(list, ",") {
		addr, ok := regAddr(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown register %q", name)
		}
		addrs[addr] = true
	}
	return addrs, nil
}

func regAddr(name string) (uint8, bool) {
	for addr := uint8(0); addr <= reg.AddrMask; addr++ {
		if reg.Name(addr) == name {
			return addr, true
		}
	}
	return 0, false
}
