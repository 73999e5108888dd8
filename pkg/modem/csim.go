// Package modem tunnels card APDUs through a cellular modem with AT+CSIM (3GPP TS 27.007 §8.17).
//
// The modem forwards the command to the SIM unchanged and returns the raw response,
// status word included:
//
//	AT+CSIM=14,"A0A40000027F20"
//	+CSIM: 4,"9F16"
//	OK
//
// CSIM implements iso7816.Transmitter, so the iso7816.Client drives GET RESPONSE
// and the other T=0 procedures exactly as it does over PC/SC.
package modem

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gregLibert/sim-card/pkg/logger"
	"github.com/warthog618/modem/info"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one AT+CSIM exchange.
const DefaultTimeout = 5 * time.Second

// ErrNoResponse is returned when the modem answers OK without a +CSIM line.
var ErrNoResponse = errors.New("modem: no +CSIM response")

// CommandFunc issues one AT command, given without the "AT" prefix, and returns
// the info lines of the reply.
type CommandFunc func(ctx context.Context, cmd string) ([]string, error)

// CSIM sends APDUs through AT+CSIM.
type CSIM struct {
	command CommandFunc
	timeout time.Duration
	log     *zap.SugaredLogger
}

// Option configures a CSIM.
type Option func(*CSIM)

// WithTimeout sets the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *CSIM) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger replaces the package logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *CSIM) {
		c.log = l
	}
}

// NewCSIM wraps an AT command function.
func NewCSIM(command CommandFunc, opts ...Option) *CSIM {
	c := &CSIM{
		command: command,
		timeout: DefaultTimeout,
		log:     logger.WithFields("component", "modem"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transmit sends one command APDU and returns the response APDU.
func (c *CSIM) Transmit(apdu []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := FormatCSIM(apdu)
	c.log.Debugw("csim request", "apdu", fmt.Sprintf("%X", apdu))

	lines, err := c.command(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("AT%s: %w", cmd, err)
	}

	resp, err := ParseCSIM(lines)
	if err != nil {
		return nil, err
	}
	c.log.Debugw("csim response", "apdu", fmt.Sprintf("%X", resp))
	return resp, nil
}

// FormatCSIM builds the +CSIM command for apdu. The length counts hex characters.
func FormatCSIM(apdu []byte) string {
	return fmt.Sprintf("+CSIM=%d,\"%X\"", 2*len(apdu), apdu)
}

// ParseCSIM extracts the response APDU from the info lines of an AT+CSIM reply.
func ParseCSIM(lines []string) ([]byte, error) {
	for _, l := range lines {
		if !info.HasPrefix(l, "+CSIM") {
			continue
		}

		length, payload, ok := strings.Cut(info.TrimPrefix(l, "+CSIM"), ",")
		if !ok {
			return nil, fmt.Errorf("modem: malformed +CSIM line %q", l)
		}

		n, err := strconv.Atoi(strings.TrimSpace(length))
		if err != nil {
			return nil, fmt.Errorf("modem: bad +CSIM length in %q: %w", l, err)
		}

		payload = strings.Trim(strings.TrimSpace(payload), "\"")
		if n != len(payload) {
			return nil, fmt.Errorf("modem: +CSIM announces %d characters, got %d", n, len(payload))
		}

		raw, err := hex.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("modem: bad +CSIM payload: %w", err)
		}
		if len(raw) < 2 {
			return nil, fmt.Errorf("modem: +CSIM response without status word")
		}
		return raw, nil
	}

	return nil, ErrNoResponse
}
