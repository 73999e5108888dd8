package iso7816

import (
	"fmt"

	"github.com/gregLibert/sim-card/pkg/bits"
)

// Instruction Byte (INS).
//
// The INS byte identifies the command. SIM commands come from GSM 11.11 (TS 51.011)
// and ETSI TS 102 221; most codes are shared between the two.
//
// INS values whose upper nibble is '6' or '9' are invalid: on T=0 they would be
// read as procedure bytes or SW1.
//
// Bit 1 set marks the BER-TLV variant of an ISO command (e.g. RETRIEVE DATA 'CB').

// InsCode is a typed representation of the instruction byte.
type InsCode byte

const (
	INS_INVALIDATE        InsCode = 0x04
	INS_TERMINAL_PROFILE  InsCode = 0x10
	INS_FETCH             InsCode = 0x12
	INS_TERMINAL_RESPONSE InsCode = 0x14
	INS_VERIFY_CHV        InsCode = 0x20
	INS_CHANGE_CHV        InsCode = 0x24
	INS_DISABLE_CHV       InsCode = 0x26
	INS_ENABLE_CHV        InsCode = 0x28
	INS_UNBLOCK_CHV       InsCode = 0x2C
	INS_INCREASE          InsCode = 0x32
	INS_REHABILITATE      InsCode = 0x44
	INS_MANAGE_CHANNEL    InsCode = 0x70
	INS_GET_CHALLENGE     InsCode = 0x84
	INS_AUTHENTICATE      InsCode = 0x88 // RUN GSM ALGORITHM on a 2G SIM
	INS_SEARCH_RECORD     InsCode = 0xA2
	INS_SELECT            InsCode = 0xA4
	INS_READ_BINARY       InsCode = 0xB0
	INS_READ_RECORD       InsCode = 0xB2
	INS_GET_RESPONSE      InsCode = 0xC0
	INS_ENVELOPE          InsCode = 0xC2
	INS_RETRIEVE_DATA     InsCode = 0xCB
	INS_UPDATE_BINARY     InsCode = 0xD6
	INS_UPDATE_RECORD     InsCode = 0xDC
	INS_STATUS            InsCode = 0xF2
	INS_SLEEP             InsCode = 0xFA
)

var insNames = map[InsCode]string{
	INS_INVALIDATE:        "INS_INVALIDATE",
	INS_TERMINAL_PROFILE:  "INS_TERMINAL_PROFILE",
	INS_FETCH:             "INS_FETCH",
	INS_TERMINAL_RESPONSE: "INS_TERMINAL_RESPONSE",
	INS_VERIFY_CHV:        "INS_VERIFY_CHV",
	INS_CHANGE_CHV:        "INS_CHANGE_CHV",
	INS_DISABLE_CHV:       "INS_DISABLE_CHV",
	INS_ENABLE_CHV:        "INS_ENABLE_CHV",
	INS_UNBLOCK_CHV:       "INS_UNBLOCK_CHV",
	INS_INCREASE:          "INS_INCREASE",
	INS_REHABILITATE:      "INS_REHABILITATE",
	INS_MANAGE_CHANNEL:    "INS_MANAGE_CHANNEL",
	INS_GET_CHALLENGE:     "INS_GET_CHALLENGE",
	INS_AUTHENTICATE:      "INS_AUTHENTICATE",
	INS_SEARCH_RECORD:     "INS_SEARCH_RECORD",
	INS_SELECT:            "INS_SELECT",
	INS_READ_BINARY:       "INS_READ_BINARY",
	INS_READ_RECORD:       "INS_READ_RECORD",
	INS_GET_RESPONSE:      "INS_GET_RESPONSE",
	INS_ENVELOPE:          "INS_ENVELOPE",
	INS_RETRIEVE_DATA:     "INS_RETRIEVE_DATA",
	INS_UPDATE_BINARY:     "INS_UPDATE_BINARY",
	INS_UPDATE_RECORD:     "INS_UPDATE_RECORD",
	INS_STATUS:            "INS_STATUS",
	INS_SLEEP:             "INS_SLEEP",
}

func (i InsCode) String() string {
	if name, ok := insNames[i]; ok {
		return name
	}
	return fmt.Sprintf("InsCode(0x%02X)", byte(i))
}

// Instruction represents a parsed INS byte.
type Instruction struct {
	Raw      InsCode
	IsBERTLV bool
}

// NewInstruction creates an Instruction, rejecting the reserved '6X' and '9X' values.
func NewInstruction(ins InsCode) (Instruction, error) {
	switch bits.High(byte(ins)) {
	case 0x6, 0x9:
		return Instruction{}, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(ins))
	}

	return Instruction{
		Raw:      ins,
		IsBERTLV: bits.IsSet(byte(ins), 1),
	}, nil
}

// mustInstruction is used for the constants above, which are all valid.
func mustInstruction(ins InsCode) Instruction {
	i, err := NewInstruction(ins)
	if err != nil {
		panic(err)
	}
	return i
}

// Verbose returns a human-readable description of the instruction.
func (i Instruction) Verbose() string {
	format := "Standard"
	if i.IsBERTLV {
		format = "BER-TLV"
	}
	return fmt.Sprintf("INS: 0x%02X | Command: %s | Format: %s", byte(i.Raw), i.Raw, format)
}
