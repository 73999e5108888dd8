package iso7816

import (
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/tlv"
)

// ReadResult represents the outcome of a READ BINARY or READ RECORD execution.
type ReadResult struct {
	Trace
}

// NewReadResult wraps a trace that started with READ BINARY or READ RECORD.
func NewReadResult(t Trace) (*ReadResult, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("cannot create result from empty trace")
	}

	switch ins := t[0].Command.Instruction.Raw; ins {
	case INS_READ_BINARY, INS_READ_RECORD:
	default:
		return nil, fmt.Errorf("trace must start with a READ command (got %02X)", byte(ins))
	}

	return &ReadResult{Trace: t}, nil
}

// Describe generates a detailed, ASCII-formatted report of the read operation.
func (r *ReadResult) Describe() string {
	var sb strings.Builder

	tx0 := r.Trace[0]
	cmd := tx0.Command

	if cmd.Instruction.Raw == INS_READ_RECORD {
		sb.WriteString("=== READ RECORD COMMAND REPORT ===\n")
		target := "Current EF"
		if sfi := cmd.P2 >> 3; sfi > 0 {
			target = fmt.Sprintf("SFI %02X (%d)", sfi, sfi)
		}
		mode := ReadRecordMode(cmd.P2 & 0x07)
		fmt.Fprintf(&sb, "    + Target:  %s\n", target)
		fmt.Fprintf(&sb, "    + Record:  %d (%s)\n", cmd.P1, mode)
	} else {
		sb.WriteString("=== READ BINARY COMMAND REPORT ===\n")
		fmt.Fprintf(&sb, "    + Offset:  %d\n", uint16(cmd.P1)<<8|uint16(cmd.P2))
	}
	fmt.Fprintf(&sb, "    + Length:  %d\n", cmd.Ne)
	fmt.Fprintf(&sb, "    + Result:  %s\n", tx0.Response.Status.Verbose())

	last := r.Last()
	if len(r.Trace) > 1 {
		fmt.Fprintf(&sb, "    + Protocol: %d steps, final %s\n", len(r.Trace), last.Response.Status.Verbose())
	}

	payload := last.Response.Data
	sb.WriteString("[=] DATA OUTCOME:\n")
	if len(payload) == 0 {
		sb.WriteString("    - No Data Received.")
		return sb.String()
	}
	fmt.Fprintf(&sb, "    + Length: %d bytes\n", len(payload))
	fmt.Fprintf(&sb, "    + Dump:   %X\n", payload)
	fmt.Fprintf(&sb, "    + ASCII:  %q", tlv.MakeSafeASCII(payload))

	return sb.String()
}
