package iso7816

import (
	"fmt"
)

// APDU (Application Protocol Data Unit) encodings according to ISO/IEC 7816-3 and 7816-4.
//
// COMMAND APDU (C-APDU):
// Header CLA INS P1 P2, then an optional body Lc | Data | Le.
//
// ENCODING CASES:
// - Case 1: Header only.
// - Case 2: Header + Le.
// - Case 3: Header + Lc + Data.
// - Case 4: Header + Lc + Data + Le.
//
// A SIM on T=0 (and the AT+CSIM tunnel) only carries cases 1 to 3: case 4 commands
// are sent as case 3 and the response is fetched with GET RESPONSE. In GSM 11.11 the
// single length byte after the header is called P3.
//
// LENGTH MODES:
//   - Short Length: Lc/Le on 1 byte (max 255/256).
//   - Extended Length: Lc/Le on multiple bytes, used when Lc > 255 or Le > 256.
//
// RESPONSE APDU (R-APDU):
// Optional data followed by the mandatory SW1 SW2 trailer.

// APDU limits according to ISO 7816-3.
const (
	// MaxShortLc is the maximum data length (Nc) encodable in Short Length mode.
	MaxShortLc = 255

	// MaxShortLe is the maximum Ne in Short Length mode. 0x00 encodes 256.
	MaxShortLe = 256

	// MaxExtendedLc is the limit for Lc in Extended mode.
	MaxExtendedLc = 65535

	// MaxExtendedLe is the maximum Ne in Extended mode. 0x0000 encodes 65536.
	MaxExtendedLe = 65536

	headerLength = 4
)

// CommandAPDU represents a command sent to the card.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // Expected response length (0 means none)
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// Bytes encodes the CommandAPDU. Short or Extended encoding is chosen from the
// data length (Nc) and the expected response length (Ne).
func (c *CommandAPDU) Bytes() ([]byte, error) {
	class, err := c.Class.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode Class: %w", err)
	}

	nc, ne := len(c.Data), c.Ne
	if nc > MaxExtendedLc || ne > MaxExtendedLe || ne < 0 {
		return nil, fmt.Errorf("lengths out of range: Nc=%d, Ne=%d", nc, ne)
	}

	out := make([]byte, 0, headerLength+3+nc+3)
	out = append(out, class, byte(c.Instruction.Raw), c.P1, c.P2)

	extended := nc > MaxShortLc || ne > MaxShortLe

	if nc > 0 {
		if extended {
			out = append(out, 0x00, byte(nc>>8), byte(nc))
		} else {
			out = append(out, byte(nc))
		}
		out = append(out, c.Data...)
	}

	if ne > 0 {
		switch {
		case !extended:
			out = append(out, byte(ne)) // 256 wraps to 0x00
		case nc == 0:
			// Case 2 Extended: leading 00 tells Le apart from Lc.
			out = append(out, 0x00, byte(ne>>8), byte(ne))
		default:
			out = append(out, byte(ne>>8), byte(ne))
		}
	}

	return out, nil
}

// ParseCommandAPDU decodes a short command APDU. With a single byte after the
// header, P3 is read as Le for case 2 commands.
func ParseCommandAPDU(raw []byte) (*CommandAPDU, error) {
	if len(raw) < headerLength {
		return nil, fmt.Errorf("command too short: length %d", len(raw))
	}

	cla, err := NewClass(raw[0])
	if err != nil {
		return nil, err
	}
	ins, err := NewInstruction(InsCode(raw[1]))
	if err != nil {
		return nil, err
	}

	cmd := &CommandAPDU{Class: cla, Instruction: ins, P1: raw[2], P2: raw[3]}
	body := raw[headerLength:]

	switch {
	case len(body) == 0:
	case len(body) == 1:
		cmd.Ne = decodeShortLe(body[0])
	case int(body[0]) == len(body)-1:
		cmd.Data = body[1:]
	case int(body[0]) == len(body)-2:
		cmd.Data = body[1 : len(body)-1]
		cmd.Ne = decodeShortLe(body[len(body)-1])
	default:
		return nil, fmt.Errorf("inconsistent body: Lc %d for %d bytes", body[0], len(body))
	}

	return cmd, nil
}

func decodeShortLe(b byte) int {
	if b == 0 {
		return MaxShortLe
	}
	return int(b)
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU parses raw bytes received from the card into a ResponseAPDU.
// The input must contain at least 2 bytes (SW1, SW2).
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	indexSW1 := len(raw) - 2
	return &ResponseAPDU{
		Data:   raw[:indexSW1],
		Status: NewStatusWord(raw[indexSW1], raw[indexSW1+1]),
	}, nil
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
