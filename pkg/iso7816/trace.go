package iso7816

import (
	"fmt"
	"strings"
)

// TRANSACTION:
// One Command APDU sent by the terminal, followed by one Response APDU from the card.
//
// TRACE:
// The chronological list of transactions needed by one logical operation. A SELECT
// on a SIM is usually two transactions: the SELECT itself ('9F XX' or '61 XX')
// and the GET RESPONSE that fetches the file header. IsSuccess and Data look at the
// final transaction.

// Transaction represents a completed Command-Response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess checks if the transaction ended with a successful status.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.Status.IsSuccess()
}

// Trace is a sequence of transactions (Command-Response pairs).
type Trace []Transaction

// Last returns the final transaction of the trace, nil if the trace is empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess checks if the FINAL transaction in the trace was successful.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Data returns the payload of the final response.
func (t Trace) Data() []byte {
	last := t.Last()
	if last == nil || last.Response == nil {
		return nil
	}
	return last.Response.Data
}

// Status returns the final status word, 0 when the trace is incomplete.
func (t Trace) Status() StatusWord {
	last := t.Last()
	if last == nil || last.Response == nil {
		return 0
	}
	return last.Response.Status
}

// String renders one line per exchange, in the usual "> command / < response" form.
func (t Trace) String() string {
	var sb strings.Builder
	for i, tx := range t {
		if i > 0 {
			sb.WriteString("\n")
		}
		if raw, err := tx.Command.Bytes(); err == nil {
			fmt.Fprintf(&sb, "> %X", raw)
		}
		if tx.Response == nil {
			continue
		}
		sb.WriteString("\n< ")
		if len(tx.Response.Data) > 0 {
			fmt.Fprintf(&sb, "%X ", tx.Response.Data)
		}
		fmt.Fprintf(&sb, "%04X", uint16(tx.Response.Status))
	}
	return sb.String()
}
