package modem

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/warthog618/modem/gsm"
	"github.com/warthog618/modem/serial"
	"github.com/warthog618/modem/trace"
)

// Config holds the serial settings of the modem control port.
type Config struct {
	Device  string
	Baud    int
	Timeout time.Duration
	Trace   bool // log every AT exchange
}

// Device is an opened modem ready to carry APDUs.
type Device struct {
	*CSIM
	port io.Closer
}

// Open opens the serial port, initialises the modem and returns a CSIM transmitter over it.
func Open(cfg Config, opts ...Option) (*Device, error) {
	port, err := serial.New(serial.WithPort(cfg.Device), serial.WithBaud(cfg.Baud))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	var mio io.ReadWriter = port
	if cfg.Trace {
		mio = trace.New(port)
	}

	g := gsm.New(gsm.FromReadWriter(mio))

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	err = g.Init(ctx)
	cancel()
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("init modem: %w", err)
	}

	command := func(ctx context.Context, cmd string) ([]string, error) {
		return g.Command(ctx, cmd)
	}

	return &Device{
		CSIM: NewCSIM(command, append([]Option{WithTimeout(timeout)}, opts...)...),
		port: port,
	}, nil
}

// Close releases the serial port.
func (d *Device) Close() error {
	return d.port.Close()
}
