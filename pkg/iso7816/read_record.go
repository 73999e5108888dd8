package iso7816

import (
	"fmt"
)

// READ RECORD COMMAND LOGIC (ISO 7816-4, GSM 11.11):
// The READ RECORD command (INS 'B2') reads one record of the current linear fixed
// or cyclic EF.
//
// P1: Record number ('00' = current record).
// P2:
// - Bits 8-4: Short File Identifier (SFI). 0 means the current EF.
// - Bits 3-1: Mode. SIM files are read in absolute mode '100'.
// P3 / Le: The record length, taken from the file header.

// ReadRecordMode defines how P1 is interpreted.
type ReadRecordMode byte

const (
	ReadNextRecord     ReadRecordMode = 0b010
	ReadPreviousRecord ReadRecordMode = 0b011
	ReadAbsolute       ReadRecordMode = 0b100
)

func (m ReadRecordMode) String() string {
	switch m {
	case ReadNextRecord:
		return "Next"
	case ReadPreviousRecord:
		return "Previous"
	case ReadAbsolute:
		return "Absolute"
	default:
		return fmt.Sprintf("Unknown Mode (0x%X)", byte(m))
	}
}

// NewReadRecordCommand creates a READ RECORD command expecting length bytes.
func NewReadRecordCommand(cla Class, sfi byte, record byte, mode ReadRecordMode, length int) *CommandAPDU {
	p2 := (sfi << 3) | byte(mode)
	return NewCommandAPDU(cla, mustInstruction(INS_READ_RECORD), record, p2, nil, length)
}

// ReadRecord reads record number record (1-based) of the current EF.
func ReadRecord(cla Class, record byte, length int) *CommandAPDU {
	return NewReadRecordCommand(cla, 0, record, ReadAbsolute, length)
}

// ReadBinary reads length bytes of the current transparent EF starting at offset.
// The offset is limited to 15 bits: bit 8 of P1 would select an SFI.
func ReadBinary(cla Class, offset uint16, length int) *CommandAPDU {
	return NewCommandAPDU(cla, mustInstruction(INS_READ_BINARY), byte(offset>>8)&0x7F, byte(offset), nil, length)
}

// GetResponse fetches length bytes left pending by '61XX' or '9FXX'.
func GetResponse(cla Class, length int) *CommandAPDU {
	return NewCommandAPDU(cla, mustInstruction(INS_GET_RESPONSE), 0, 0, nil, length)
}

// Status returns the header of the current directory (GSM) or application (UICC).
func Status(cla Class, length int) *CommandAPDU {
	return NewCommandAPDU(cla, mustInstruction(INS_STATUS), 0, 0, nil, length)
}
