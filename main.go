package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ebfe/scard"
	"github.com/gregLibert/sim-card/pkg/config"
	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/logger"
	"github.com/gregLibert/sim-card/pkg/modem"
	"github.com/gregLibert/sim-card/pkg/simfs"
)

func main() {
	configPath := flag.String("config", "", "Configuration file (default: sim-card.yaml in ., ./config, /etc/sim-card)")
	logLevel := flag.String("log-level", "", "Override log.level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sim-card: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "sim-card: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg)
	if err != nil {
		logger.Log.Errorw("Dump failed", "error", err)
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	card, release, err := openTransport(cfg.Transport)
	if err != nil {
		return err
	}
	defer release()

	gen, err := simfs.ParseGeneration(cfg.Card.Generation)
	if err != nil {
		return err
	}

	reader := simfs.NewReader(card, gen)
	logger.Log.Infow("Reading card", "transport", cfg.Transport.Kind, "generation", gen, "files", cfg.Dump.Files)

	failed := dumpFiles(os.Stdout, reader, &cfg.Dump)
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be read", failed, len(cfg.Dump.Files))
	}
	return nil
}

// =========================================================================
// Transports
// =========================================================================

// openTransport connects to the card and returns a function that releases it.
func openTransport(cfg config.TransportConfig) (iso7816.Transmitter, func(), error) {
	if cfg.Kind == config.TransportAT {
		return openModem(cfg.AT)
	}
	return connectToCard(cfg.PCSC.Reader)
}

// connectToCard handles the PC/SC context establishment and reader connection.
func connectToCard(index int) (iso7816.Transmitter, func(), error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, nil, fmt.Errorf("establishing PC/SC context: %w", err)
	}

	release := func() {
		if err := ctx.Release(); err != nil {
			logger.Log.Warnw("Failed to release context", "error", err)
		}
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		release()
		return nil, nil, fmt.Errorf("no smart card reader found (%v)", err)
	}
	if index < 0 || index >= len(readers) {
		release()
		return nil, nil, fmt.Errorf("reader index %d out of range, %d reader(s) attached", index, len(readers))
	}

	logger.Log.Infow("Using reader", "reader", readers[index])

	// Force T=0 or T=1 to avoid "Parameter Incorrect" errors (Error 57)
	card, err := ctx.Connect(readers[index], scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("connecting to card: %w", err)
	}

	return card, func() {
		if err := card.Disconnect(scard.LeaveCard); err != nil {
			logger.Log.Warnw("Failed to disconnect card", "error", err)
		}
		release()
	}, nil
}

func openModem(cfg config.ATConfig) (iso7816.Transmitter, func(), error) {
	dev, err := modem.Open(modem.Config{
		Device:  cfg.Device,
		Baud:    cfg.Baud,
		Timeout: cfg.Timeout,
		Trace:   cfg.Trace,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Log.Infow("Using modem", "device", cfg.Device, "baud", cfg.Baud)

	return dev, func() {
		if err := dev.Close(); err != nil {
			logger.Log.Warnw("Failed to close modem", "error", err)
		}
	}, nil
}
