package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/gregLibert/sim-card/pkg/config"
	"github.com/gregLibert/sim-card/pkg/logger"
	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/gregLibert/sim-card/pkg/simfs"
)

// dumpStep reads one file and renders its report.
type dumpStep struct {
	file  string
	title string
	read  func(r *simfs.Reader) (string, error)
}

// dumpSteps lists every dumpable file in card order.
var dumpSteps = []dumpStep{
	{config.DumpDir, "EF_DIR (2F00)", func(r *simfs.Reader) (string, error) {
		dir, err := r.Applications()
		if err != nil {
			return "", err
		}
		return dir.Describe(), nil
	}},
	{config.DumpICCID, "EF_ICCID (2FE2)", func(r *simfs.Reader) (string, error) {
		iccid, err := r.ReadICCID()
		return "=== ICCID ===\n    - " + iccid, err
	}},
	{config.DumpIMSI, "EF_IMSI (6F07)", func(r *simfs.Reader) (string, error) {
		imsi, err := r.ReadIMSI()
		return "=== IMSI ===\n    - " + imsi, err
	}},
	{config.DumpSPN, "EF_SPN (6F46)", func(r *simfs.Reader) (string, error) {
		spn, err := r.ReadSPN()
		if err != nil {
			return "", err
		}
		return spn.Describe(), nil
	}},
	{config.DumpSPDI, "EF_SPDI (6FCD)", func(r *simfs.Reader) (string, error) {
		spdi, err := r.LoadSPDI()
		if err != nil {
			return "", err
		}
		return spdi.Describe(), nil
	}},
	{config.DumpEONS, "EF_PNN (6FC5) / EF_OPL (6FC6)", func(r *simfs.Reader) (string, error) {
		eons, err := r.LoadEONS()
		if err != nil {
			return "", err
		}
		return eons.Describe(), nil
	}},
	{config.DumpADN, "EF_ADN (6F3A)", func(r *simfs.Reader) (string, error) {
		entries, err := r.LoadADN()
		return describeNumbers("ABBREVIATED DIALING NUMBERS", entries), err
	}},
	{config.DumpMSISDN, "EF_MSISDN (6F40)", func(r *simfs.Reader) (string, error) {
		entries, err := r.LoadMSISDN()
		return describeNumbers("OWN NUMBERS", entries), err
	}},
}

// dumpFiles prints the report of every requested file and returns the number of
// files that could not be read. Files missing from the card are not failures.
func dumpFiles(w io.Writer, r *simfs.Reader, cfg *config.DumpConfig) int {
	failed := 0

	for _, step := range dumpSteps {
		if !cfg.Wants(step.file) {
			continue
		}

		fmt.Fprintln(w, "\n=============================================")
		fmt.Fprintf(w, " %s\n", step.title)
		fmt.Fprintln(w, "=============================================")

		report, err := step.read(r)
		switch {
		case simfs.IsNotFound(err):
			fmt.Fprintln(w, ">> File not present on this card.")
			logger.Log.Warnw("File not on card", "file", step.file)
		case err != nil:
			fmt.Fprintf(w, ">> Read failed: %v\n", err)
			logger.Log.Errorw("Read failed", "file", step.file, "error", err)
			failed++
		default:
			fmt.Fprintln(w, report)
		}
	}
	return failed
}

func describeNumbers(title string, entries []sim.ADN) string {
	var sb strings.Builder
	sb.WriteString("=== " + title + " ===")

	if len(entries) == 0 {
		sb.WriteString("\n    (empty)")
		return sb.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n    - %-20q %s", e.Identifier, e.Number)
	}
	return sb.String()
}
