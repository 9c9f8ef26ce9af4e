package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/internal/nrfsim"
	"github.com/soypat/nrf24/periphbus"
	"github.com/soypat/nrf24/reg"
	"periph.io/x/conn/v3/physic"
)

const consoleKey = "$console"

var (
	// flags

	useSim  bool
	verbose bool
	timeout = time.Second
	busCfg  = periphbus.Config{Bus: "", CE: "GPIO25"}
	freqMHz = 8
)

func init() {
	flag.BoolVar(&useSim, "sim", useSim, "Use a simulated radio with a listening peer instead of hardware.")
	flag.BoolVar(&verbose, "v", verbose, "Log radio operations to stderr.")
	flag.DurationVar(&timeout, "timeout", timeout, "Timeout for tx and rx commands.")
	flag.StringVar(&busCfg.Bus, "bus", busCfg.Bus, "SPI port name. Empty selects the first available.")
	flag.StringVar(&busCfg.CE, "ce", busCfg.CE, "CE pin name.")
	flag.StringVar(&busCfg.CSN, "csn", busCfg.CSN, "CSN pin name. Empty uses the SPI port chip select.")
	flag.IntVar(&freqMHz, "freq", freqMHz, "SPI clock in MHz.")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "nrfsh - Interactive nRF24L01 console. Commands passed as arguments are run non-interactively.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	var cfg nrf24.Config
	if verbose {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	shell := ishell.New()
	var (
		sb  *nrf24.Standby
		err error
	)
	if useSim {
		var sim *simRadio
		sim, sb, err = newSimRadio(cfg)
		if err == nil {
			shell.Set(simKey, sim)
			shell.AddCmd(&injectCmd)
			shell.AddCmd(&peerCmd)
		}
	} else {
		var bus *periphbus.Bus
		busCfg.Frequency = physic.Frequency(freqMHz) * physic.MegaHertz
		bus, err = periphbus.Open(busCfg)
		if err == nil {
			defer bus.Close()
			sb, err = bus.Radio(cfg)
		}
	}
	if err != nil {
		log.Fatalln(err)
	}
	c := newConsole(sb)
	c.timeout = timeout
	shell.Set(consoleKey, c)
	shell.SetPrompt("[standby] > ")
	for _, cmd := range commands {
		shell.AddCmd(cmd)
	}
	if args := flag.Args(); len(args) > 0 {
		if err := shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	shell.Run()
}

func consoleFrom(c *ishell.Context) *console {
	return c.Get(consoleKey).(*console)
}

// withConsole runs fn and updates the prompt to the resulting radio mode.
func withConsole(fn func(c *ishell.Context, con *console) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		con := consoleFrom(c)
		if err := fn(c, con); err != nil {
			c.Err(err)
		}
		c.SetPrompt("[" + con.mode() + "] > ")
	}
}

func parseHexArg(c *ishell.Context, i int, what string) ([]byte, error) {
	if len(c.Args) <= i {
		return nil, errors.New(what + " required")
	}
	b, err := hex.DecodeString(c.Args[i])
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", what, err)
	}
	return b, nil
}

func parseUintArg(c *ishell.Context, i int, what string, limit uint64) (uint8, error) {
	if len(c.Args) <= i {
		return 0, errors.New(what + " required")
	}
	v, err := strconv.ParseUint(c.Args[i], 10, 8)
	if err != nil || v > limit {
		return 0, fmt.Errorf("invalid %s %q", what, c.Args[i])
	}
	return uint8(v), nil
}

var commands = []*ishell.Cmd{
	{
		Name: "status",
		Help: "print mode, STATUS and FIFO_STATUS",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			return con.status(shellWriter{c})
		}),
	},
	{
		Name: "config",
		Help: "dump all registers",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			return con.dump(shellWriter{c})
		}),
	},
	{
		Name: "tx",
		Help: "[-n] HEX: send a packet and wait for it, -n sends without acknowledgement",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			noack := len(c.Args) > 0 && c.Args[0] == "-n"
			idx := 0
			if noack {
				idx = 1
			}
			data, err := parseHexArg(c, idx, "payload")
			if err != nil {
				return err
			}
			delivered, err := con.send(data, noack)
			if err != nil {
				return err
			}
			if delivered {
				c.Println("delivered")
			} else {
				c.Println("lost, TX FIFO flushed")
			}
			return nil
		}),
	},
	{
		Name: "rx",
		Help: "[COUNT]: listen for up to COUNT packets (default 1)",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			limit := 1
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid COUNT %q", c.Args[0])
				}
				limit = n
			}
			payloads, err := con.receive(limit)
			for i := range payloads {
				c.Println(payloads[i].String())
			}
			if err == nil && len(payloads) == 0 {
				c.Println("no packets")
			}
			return err
		}),
	},
	{
		Name: "observe",
		Help: "print OBSERVE_TX counters",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			obs, err := con.observe()
			if err == nil {
				c.Println(obs.String())
			}
			return err
		}),
	},
	{
		Name: "flush",
		Help: "flush TX and RX FIFOs and clear interrupts",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			return con.flush()
		}),
	},
	{
		Name: "standby",
		Help: "return to standby mode",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			_, err := con.standby()
			return err
		}),
	},
	{
		Name: "powerdown",
		Help: "power down the radio",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			return con.powerDown()
		}),
	},
	{
		Name: "powerup",
		Help: "power up into standby mode",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			_, err := con.standby()
			return err
		}),
	},
	{
		Name: "channel",
		Help: "CH: set RF channel 0..125",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			ch, err := parseUintArg(c, 0, "CH", 125)
			if err != nil {
				return err
			}
			r, err := con.radio()
			if err != nil {
				return err
			}
			return r.SetFrequency(ch)
		}),
	},
	{
		Name: "txaddr",
		Help: "HEX: set TX address, LSByte first",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			addr, err := parseHexArg(c, 0, "address")
			if err != nil {
				return err
			}
			r, err := con.radio()
			if err != nil {
				return err
			}
			return r.SetTxAddr(addr)
		}),
	},
	{
		Name: "rxaddr",
		Help: "PIPE HEX: set RX pipe address, LSByte first",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			pipe, err := parseUintArg(c, 0, "PIPE", 5)
			if err != nil {
				return err
			}
			addr, err := parseHexArg(c, 1, "address")
			if err != nil {
				return err
			}
			r, err := con.radio()
			if err != nil {
				return err
			}
			return r.SetRxAddr(pipe, addr)
		}),
	},
}

// shellWriter adapts an ishell context to io.Writer.
type shellWriter struct {
	c *ishell.Context
}

func (w shellWriter) Write(b []byte) (int, error) {
	w.c.Print(string(b))
	return len(b), nil
}

// simRadio is the simulated transceiver and a peer listening on the default
// TX address with dynamic payload length.
type simRadio struct {
	sim  *nrfsim.Radio
	peer *nrf24.Rx
}

const simKey = "$sim"

func newSimRadio(cfg nrf24.Config) (*simRadio, *nrf24.Standby, error) {
	sim, peersim := nrfsim.New(), nrfsim.New()
	sim.Peer = peersim
	peersb, err := nrf24.New(peersim, peersim.CE, peersim.CSN, nrf24.Config{})
	if err != nil {
		return nil, nil, err
	}
	var dynamic [reg.Pipes]nrf24.PipeLength
	err = peersb.SetPipesRxLengths(dynamic)
	if err != nil {
		return nil, nil, err
	}
	peer, err := peersb.Rx()
	if err != nil {
		return nil, nil, err
	}
	sb, err := nrf24.New(sim, sim.CE, sim.CSN, cfg)
	if err != nil {
		return nil, nil, err
	}
	return &simRadio{sim: sim, peer: peer}, sb, nil
}

var (
	injectCmd = ishell.Cmd{
		Name: "inject",
		Help: "PIPE HEX: place a packet in the simulated RX FIFO",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			pipe, err := parseUintArg(c, 0, "PIPE", 5)
			if err != nil {
				return err
			}
			data, err := parseHexArg(c, 1, "payload")
			if err != nil {
				return err
			}
			if !c.Get(simKey).(*simRadio).sim.Inject(pipe, data) {
				return errors.New("RX FIFO full")
			}
			return nil
		}),
	}
	peerCmd = ishell.Cmd{
		Name: "peer",
		Help: "print packets received by the simulated peer",
		Func: withConsole(func(c *ishell.Context, con *console) error {
			peer := c.Get(simKey).(*simRadio).peer
			for {
				p, err := peer.Read()
				if errors.Is(err, nrf24.ErrWouldBlock) {
					return nil
				} else if err != nil {
					return err
				}
				c.Println(p.String())
			}
		}),
	}
)
