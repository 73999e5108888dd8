package iso7816

import (
	"fmt"
)

// CLIENT & PROTOCOL LOGIC:
// The Client is a driver over the physical connection (PC/SC reader or AT+CSIM).
// It hides the T=0 transport behaviors a SIM exposes to the application layer:
//
// 1. "61 XX" / "9F XX" (Response Available):
//    XX bytes are waiting. The client sends GET RESPONSE with Le = XX, using the
//    class of the original command ('A0' for GSM, the logical channel for UICC).
//
// 2. "6C XX" (Wrong Length):
//    The client re-sends the original command with Le = XX.
//
// 3. "67 XX" on a GSM command (Incorrect P3):
//    When XX is not zero it is the expected length; handled like "6C XX".
//
// Send returns a Trace holding every atomic transaction.

// maxAutoSteps bounds the number of transactions a single Send may chain, so a card
// that keeps answering '61XX' cannot loop forever.
const maxAutoSteps = 8

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client manages the high-level communication with the card.
type Client struct {
	Card Transmitter
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits a command and handles the protocol status words.
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	var trace Trace

	for step := 0; step < maxAutoSteps; step++ {
		tx, err := c.exchange(cmd)
		if err != nil {
			return trace, err
		}
		trace = append(trace, tx)

		next := followUp(cmd, tx.Response.Status)
		if next == nil {
			return trace, nil
		}
		cmd = next
	}

	return trace, fmt.Errorf("card did not complete after %d exchanges (last SW %04X)", maxAutoSteps, uint16(trace.Status()))
}

func (c *Client) exchange(cmd *CommandAPDU) (Transaction, error) {
	rawCmd, err := cmd.Bytes()
	if err != nil {
		return Transaction{}, fmt.Errorf("encoding error: %w", err)
	}

	rawResp, err := c.Card.Transmit(rawCmd)
	if err != nil {
		return Transaction{}, fmt.Errorf("transmission error: %w", err)
	}

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return Transaction{}, err
	}

	return Transaction{Command: cmd, Response: resp}, nil
}

// followUp returns the command the protocol requires after sw, or nil when done.
func followUp(cmd *CommandAPDU, sw StatusWord) *CommandAPDU {
	if n, ok := sw.ResponseAvailable(); ok {
		cls := cmd.Class
		cls.IsChained = false
		return GetResponse(cls, n)
	}

	sw1, sw2 := sw.SW1(), sw.SW2()
	if sw1 == 0x6C || (sw1 == 0x67 && sw2 != 0 && cmd.Class.IsGSM()) {
		retry := *cmd
		retry.Ne = decodeShortLe(sw2)
		return &retry
	}

	return nil
}
