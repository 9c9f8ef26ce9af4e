package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/periphbus"
	"github.com/soypat/nrf24/reg"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"
	"periph.io/x/conn/v3/physic"
)

// Config is the bridge configuration file.
type Config struct {
	Radio RadioConfig `yaml:"radio"`
	SPI   SPIConfig   `yaml:"spi"`
	MQTT  MQTTConfig  `yaml:"mqtt"`
	Log   LogConfig   `yaml:"log"`
}

type RadioConfig struct {
	Channel uint8 `yaml:"channel"`
	// DataRate is one of 250kbps, 1Mbps or 2Mbps.
	DataRate string `yaml:"dataRate"`
	// Power is the PA level, 0 (-18dBm) to 3 (0dBm).
	Power uint8 `yaml:"power"`
	// CRC length in bytes, 0 to 2.
	CRC          int          `yaml:"crc"`
	AddressWidth uint8        `yaml:"addressWidth"`
	AutoAck      bool         `yaml:"autoAck"`
	Pipes        []PipeConfig `yaml:"pipes"`
	// PollMs is the RX FIFO polling period in milliseconds.
	PollMs int `yaml:"pollMs"`
}

type PipeConfig struct {
	Pipe uint8 `yaml:"pipe"`
	// Address in hex, LSByte first. Pipes 2 to 5 only use the first byte.
	Address string `yaml:"address"`
	// Length is the static payload width. Zero selects dynamic payload length.
	Length uint8 `yaml:"length"`
}

type SPIConfig struct {
	Bus         string `yaml:"bus"`
	FrequencyHz int64  `yaml:"frequencyHz"`
	CE          string `yaml:"ce"`
	CSN         string `yaml:"csn"`
}

type MQTTConfig struct {
	// Broker is the host:port of the MQTT server.
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientId"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// TopicPrefix is prepended to /pipe/<n>.
	TopicPrefix  string `yaml:"topicPrefix"`
	KeepAliveSec uint16 `yaml:"keepAliveSec"`
	TimeoutSec   int    `yaml:"timeoutSec"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File enables size rotated logging to a file instead of stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

func defaultConfig() Config {
	return Config{
		Radio: RadioConfig{
			Channel:      76,
			DataRate:     "1Mbps",
			Power:        3,
			CRC:          2,
			AddressWidth: 5,
			AutoAck:      true,
			Pipes: []PipeConfig{
				{Pipe: 1, Address: "e7e7e7e7e7"},
			},
			PollMs: 5,
		},
		SPI: SPIConfig{
			Bus:         "/dev/spidev0.0",
			FrequencyHz: int64(periphbus.DefaultFrequency / physic.Hertz),
			CE:          "GPIO25",
		},
		MQTT: MQTTConfig{
			Broker:       "127.0.0.1:1883",
			ClientID:     "nrfbridge",
			TopicPrefix:  "nrf24",
			KeepAliveSec: 60,
			TimeoutSec:   5,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// loadConfig reads a YAML file over the default configuration.
func loadConfig(filename string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (cfg *Config) Validate() error {
	r := &cfg.Radio
	if r.Channel > 125 {
		return fmt.Errorf("radio channel %d out of range 0..125", r.Channel)
	}
	if _, err := parseDataRate(r.DataRate); err != nil {
		return err
	}
	if r.Power > 3 {
		return fmt.Errorf("radio power %d out of range 0..3", r.Power)
	}
	if r.CRC < 0 || r.CRC > 2 {
		return fmt.Errorf("radio crc %d must be 0, 1 or 2 bytes", r.CRC)
	}
	if r.AutoAck && r.CRC == 0 {
		return errors.New("radio autoAck requires crc")
	}
	if r.AddressWidth < 3 || r.AddressWidth > 5 {
		return fmt.Errorf("radio addressWidth %d out of range 3..5", r.AddressWidth)
	}
	if len(r.Pipes) == 0 {
		return errors.New("at least one radio pipe must be configured")
	}
	var seen [reg.Pipes]bool
	for _, p := range r.Pipes {
		if p.Pipe >= reg.Pipes {
			return fmt.Errorf("pipe %d out of range 0..5", p.Pipe)
		}
		if seen[p.Pipe] {
			return fmt.Errorf("pipe %d configured twice", p.Pipe)
		}
		seen[p.Pipe] = true
		if p.Length > reg.MaxPayload {
			return fmt.Errorf("pipe %d length %d exceeds 32", p.Pipe, p.Length)
		}
		addr, err := hex.DecodeString(p.Address)
		if err != nil {
			return fmt.Errorf("pipe %d address: %w", p.Pipe, err)
		}
		want := int(r.AddressWidth)
		if p.Pipe > 1 {
			want = 1
		}
		if len(addr) != want {
			return fmt.Errorf("pipe %d address must be %d bytes, got %d", p.Pipe, want, len(addr))
		}
	}
	if r.PollMs <= 0 {
		return errors.New("radio pollMs must be positive")
	}
	if cfg.SPI.CE == "" {
		return errors.New("spi ce pin must be set")
	}
	if cfg.SPI.FrequencyHz <= 0 || cfg.SPI.FrequencyHz > 10_000_000 {
		return fmt.Errorf("spi frequency %dHz out of range (0, 10MHz]", cfg.SPI.FrequencyHz)
	}
	if cfg.MQTT.Broker == "" || cfg.MQTT.ClientID == "" {
		return errors.New("mqtt broker and clientId must be set")
	}
	if cfg.MQTT.TimeoutSec <= 0 {
		return errors.New("mqtt timeoutSec must be positive")
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return err
	}
	return nil
}

func parseDataRate(s string) (nrf24.DataRate, error) {
	switch s {
	case "250kbps", "250Kbps":
		return nrf24.R250Kbps, nil
	case "1Mbps":
		return nrf24.R1Mbps, nil
	case "2Mbps":
		return nrf24.R2Mbps, nil
	}
	return 0, fmt.Errorf("invalid data rate %q", s)
}

func (cfg *SPIConfig) periph() periphbus.Config {
	return periphbus.Config{
		Bus:       cfg.Bus,
		Frequency: physic.Frequency(cfg.FrequencyHz) * physic.Hertz,
		CE:        cfg.CE,
		CSN:       cfg.CSN,
	}
}

// logger returns the configured logger. closer is non-nil when logging to a
// file and must be closed by the caller.
func (cfg *LogConfig) logger() (_ *slog.Logger, closer io.Closer) {
	var lvl slog.Level
	lvl.UnmarshalText([]byte(cfg.Level))
	var w io.Writer = os.Stderr
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		w, closer = lj, lj
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), closer
}

// configureRadio applies cfg to the transceiver in standby.
func configureRadio(sb *nrf24.Standby, cfg RadioConfig) error {
	rate, err := parseDataRate(cfg.DataRate)
	if err != nil {
		return err
	}
	var (
		enable  [reg.Pipes]bool
		lengths [reg.Pipes]nrf24.PipeLength
		autoack [reg.Pipes]bool
	)
	err = errors.Join(
		sb.SetFrequency(cfg.Channel),
		sb.SetRF(rate, cfg.Power),
		sb.SetCRC(nrf24.CRCMode(cfg.CRC)),
		sb.SetAddressWidth(cfg.AddressWidth),
	)
	if err != nil {
		return err
	}
	for _, p := range cfg.Pipes {
		addr, _ := hex.DecodeString(p.Address)
		if err := sb.SetRxAddr(p.Pipe, addr); err != nil {
			return fmt.Errorf("pipe %d: %w", p.Pipe, err)
		}
		enable[p.Pipe] = true
		autoack[p.Pipe] = cfg.AutoAck
		lengths[p.Pipe] = nrf24.PipeLength(p.Length)
	}
	return errors.Join(
		sb.SetPipesRxEnable(enable),
		sb.SetPipesRxLengths(lengths),
		sb.SetAutoAck(autoack),
		sb.FlushRx(),
		sb.ClearInterrupts(),
	)
}
