package iso7816

import (
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/gregLibert/sim-card/pkg/tlv"
)

// SELECT RESULT ANALYSIS:
// A wrapper over the trace of a SELECT. It hides the GET RESPONSE step and decodes
// the file header in the dialect of the command class: the 2G header for 'A0',
// the FCP template otherwise.

// SelectResult represents the outcome of a SELECT command execution.
type SelectResult struct {
	Trace
}

// NewSelectResult creates a SelectResult from a raw transaction trace.
// The trace must start with a SELECT command (INS 0xA4).
func NewSelectResult(t Trace) (*SelectResult, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("cannot create result from empty trace")
	}

	if t[0].Command.Instruction.Raw != INS_SELECT {
		return nil, fmt.Errorf("trace must start with SELECT command (got %02X)", byte(t[0].Command.Instruction.Raw))
	}

	return &SelectResult{Trace: t}, nil
}

// IsGSM reports whether the selection used the GSM 11.11 class.
func (r *SelectResult) IsGSM() bool {
	return r.Trace[0].Command.Class.IsGSM()
}

func (r *SelectResult) payload() ([]byte, error) {
	if !r.IsSuccess() {
		return nil, fmt.Errorf("selection failed: %s", r.Status().Verbose())
	}
	data := r.Data()
	if len(data) == 0 {
		return nil, fmt.Errorf("no response data found")
	}
	return data, nil
}

// FileInfo decodes the selected EF header.
func (r *SelectResult) FileInfo() (*sim.FileResponse, error) {
	data, err := r.payload()
	if err != nil {
		return nil, err
	}
	if r.IsGSM() {
		return sim.Parse2GResponse(data)
	}
	return sim.Parse3GResponse(data)
}

// FCP returns the full FCP template of a UICC selection.
func (r *SelectResult) FCP() (*FCPTemplate, error) {
	if r.IsGSM() {
		return nil, fmt.Errorf("GSM selection carries no FCP template")
	}
	data, err := r.payload()
	if err != nil {
		return nil, err
	}
	return ParseFCP(data)
}

// Describe generates a detailed, ASCII-formatted report of the selection process.
func (r *SelectResult) Describe() string {
	var sb strings.Builder

	sb.WriteString("=== SELECT COMMAND REPORT ===\n")

	tx0 := r.Trace[0]
	cmd := tx0.Command

	if r.IsGSM() {
		sb.WriteString("[1] Command: SELECT (GSM 11.11)\n")
	} else {
		method := SelectionMethod(cmd.P1)
		occ := FileOccurrence(cmd.P2 & 0x03)
		ctrl := SelectionControl(cmd.P2 & 0x0C)
		sb.WriteString("[1] Command: SELECT FILE\n")
		fmt.Fprintf(&sb, "    + Method:  %02X -> %s\n", cmd.P1, method)
		fmt.Fprintf(&sb, "    + Control: %02X -> %s | %s\n", cmd.P2, occ, ctrl)
	}
	if len(cmd.Data) > 0 {
		fmt.Fprintf(&sb, "    + Data:    %X\n", cmd.Data)
	}
	fmt.Fprintf(&sb, "    + Result:  %s\n", tx0.Response.Status.Verbose())

	if len(r.Trace) > 1 {
		last := r.Last()
		fmt.Fprintf(&sb, "[2] Protocol: Auto-handling (Sequence of %d steps)\n", len(r.Trace))
		fmt.Fprintf(&sb, "    + Action:  Sending %s\n", last.Command.Instruction.Raw)
		fmt.Fprintf(&sb, "    + Result:  %s\n", last.Response.Status.Verbose())
		if len(last.Response.Data) > 0 {
			fmt.Fprintf(&sb, "    + Payload: %X\n", last.Response.Data)
		}
	}

	sb.WriteString("[=] FINAL OUTCOME:")

	info, err := r.FileInfo()
	if err != nil {
		fmt.Fprintf(&sb, "\n    - File Info Unavailable: %v", err)
		return sb.String()
	}
	sb.WriteString("\n")
	sb.WriteString(strings.TrimPrefix(info.Describe(), "=== FILE INFO ===\n"))

	if fcp, err := r.FCP(); err == nil {
		tlv.WriteStructFields(&sb, "FCP", fcp)
	}

	return sb.String()
}
