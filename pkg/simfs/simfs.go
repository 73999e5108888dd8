// Package simfs reads SIM and USIM elementary files through an iso7816.Transmitter.
//
// A Reader resolves an EF to its path with the sim file table, selects it in the
// dialect of the card generation (GSM 11.11 class 'A0' or UICC class '00'), decodes
// the file header and reads the content:
//
//	r := simfs.NewReader(card, simfs.Generation3G)
//	spdi, err := r.LoadSPDI()
//
// Files the card lacks come back as a *StatusError for which IsNotFound is true.
package simfs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/logger"
	"go.uber.org/zap"
)

// Generation selects the command dialect.
type Generation int

const (
	// Generation2G talks GSM 11.11 (class 'A0', 2G file headers).
	Generation2G Generation = 2
	// Generation3G talks ETSI TS 102 221 (class '00', FCP templates, USIM ADF).
	Generation3G Generation = 3
)

func (g Generation) String() string {
	switch g {
	case Generation2G:
		return "2G"
	case Generation3G:
		return "3G"
	}
	return fmt.Sprintf("Generation(%d)", int(g))
}

// ParseGeneration accepts "2g" or "3g", in any case.
func ParseGeneration(s string) (Generation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "2g":
		return Generation2G, nil
	case "3g":
		return Generation3G, nil
	}
	return 0, fmt.Errorf("unknown card generation %q", s)
}

// StatusError reports a command on File that the card rejected.
type StatusError struct {
	File   uint16
	Status iso7816.StatusWord
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("EF %04X: %s", e.File, e.Status.Verbose())
}

// IsNotFound reports whether err says the card has no such file.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status.IsFileNotFound()
}

// Reader reads elementary files from one card. It is not safe for concurrent use.
type Reader struct {
	client *iso7816.Client
	gen    Generation
	cla    iso7816.Class
	log    *zap.SugaredLogger

	adfActive bool
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger replaces the package logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Reader) {
		r.log = l
	}
}

// basicChannel is the UICC class of logical channel 0.
var basicChannel = mustUICCClass(0)

// mustUICCClass is used for channels below 4, which are always encodable.
func mustUICCClass(channel uint8) iso7816.Class {
	c, err := iso7816.UICCClass(channel)
	if err != nil {
		panic(err)
	}
	return c
}

// NewReader creates a Reader talking to card in the dialect of gen.
func NewReader(card iso7816.Transmitter, gen Generation, opts ...Option) *Reader {
	r := &Reader{
		client: iso7816.NewClient(card),
		gen:    gen,
		cla:    iso7816.GSMClass(),
		log:    logger.WithFields("component", "simfs"),
	}
	if gen == Generation3G {
		r.cla = basicChannel
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generation returns the dialect the reader talks.
func (r *Reader) Generation() Generation {
	return r.gen
}

func (r *Reader) send(file uint16, cmd *iso7816.CommandAPDU) (iso7816.Trace, error) {
	trace, err := r.client.Send(cmd)
	if err != nil {
		return trace, fmt.Errorf("EF %04X: %w", file, err)
	}
	r.log.Debugw("apdu", "file", fmt.Sprintf("%04X", file), "trace", trace.String())
	if !trace.IsSuccess() {
		return trace, &StatusError{File: file, Status: trace.Status()}
	}
	return trace, nil
}
