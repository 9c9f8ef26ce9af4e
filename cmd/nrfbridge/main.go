package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/periphbus"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "nrfbridge - Forward packets received by an nRF24L01 attached to a Linux host to an MQTT broker.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	cfgFile := flag.String("config", "bridge.yaml", "YAML configuration file.")
	flag.Parse()
	cfg, err := loadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}
	logger, closer := cfg.Log.logger()
	if closer != nil {
		defer closer.Close()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = run(ctx, cfg, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bridge:exit", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	bus, err := periphbus.Open(cfg.SPI.periph())
	if err != nil {
		return err
	}
	defer bus.Close()
	sb, err := bus.Radio(nrf24.Config{Logger: logger})
	if err != nil {
		return err
	}
	err = configureRadio(sb, cfg.Radio)
	if err != nil {
		return err
	}
	rx, err := sb.Rx()
	if err != nil {
		return err
	}
	logger.Info("bridge:listening", slog.String("spi", bus.String()), slog.Int("channel", int(cfg.Radio.Channel)))

	pub := newMQTTPublisher(cfg.MQTT, logger)
	defer pub.Close()
	go pub.run(ctx)

	poll := time.Duration(cfg.Radio.PollMs) * time.Millisecond
	err = pump(ctx, rx, pub, cfg.MQTT.TopicPrefix, poll, logger)
	sb, serr := rx.Standby()
	if serr == nil {
		_, serr = sb.PowerDown()
	}
	return errors.Join(err, serr)
}
