package iso7816

import (
	"fmt"
)

// SELECT COMMAND LOGIC (ISO 7816-4, GSM 11.11, TS 102 221):
// The SELECT command (INS 'A4') opens a file (MF, DF, or EF) or an application.
// A GSM SIM selects by file identifier only, with P1 = P2 = '00', and answers
// '9F XX' with the file header waiting for GET RESPONSE.
//
// P1 (Selection Method):
// Indicates how the file is targeted (by ID, by Name/AID, by Path, etc.).
//
// P2 (Selection Control):
// Controls the response content and the file occurrence.
// - Bits 4-3: Response Type (FCI, FCP, FMD, or No Data).
// - Bits 2-1: Occurrence (First, Last, Next, Previous).

// SelectionMethod defines how the file is targeted (P1).
type SelectionMethod byte

const (
	SelectByFileID          SelectionMethod = 0x00
	SelectChildDF           SelectionMethod = 0x01
	SelectEFUnderCurrentDF  SelectionMethod = 0x02
	SelectParentDF          SelectionMethod = 0x03
	SelectByDFName          SelectionMethod = 0x04 // Select by AID
	SelectPathFromMF        SelectionMethod = 0x08
	SelectPathFromCurrentDF SelectionMethod = 0x09
)

func (s SelectionMethod) String() string {
	switch s {
	case SelectByFileID:
		return "Select by File ID"
	case SelectChildDF:
		return "Select Child DF"
	case SelectEFUnderCurrentDF:
		return "Select EF under current DF"
	case SelectParentDF:
		return "Select Parent DF"
	case SelectByDFName:
		return "Select by DF Name (AID)"
	case SelectPathFromMF:
		return "Select Path from MF"
	case SelectPathFromCurrentDF:
		return "Select Path from Current DF"
	default:
		return fmt.Sprintf("Unknown Method (0x%02X)", byte(s))
	}
}

// FileOccurrence defines which instance of the file to select (Bits 1-2 of P2).
type FileOccurrence byte

const (
	FirstOrOnlyOccurrence FileOccurrence = 0b0000_00_00
	LastOccurrence        FileOccurrence = 0b0000_00_01
	NextOccurrence        FileOccurrence = 0b0000_00_10
	PreviousOccurrence    FileOccurrence = 0b0000_00_11
)

func (f FileOccurrence) String() string {
	switch f {
	case FirstOrOnlyOccurrence:
		return "First/Only"
	case LastOccurrence:
		return "Last"
	case NextOccurrence:
		return "Next"
	case PreviousOccurrence:
		return "Previous"
	default:
		return "Unknown Occurrence"
	}
}

// SelectionControl defines what data to return (Bits 3-4 of P2).
type SelectionControl byte

const (
	ReturnFCI    SelectionControl = 0b0000_00_00
	ReturnFCP    SelectionControl = 0b0000_01_00
	ReturnFMD    SelectionControl = 0b0000_10_00
	ReturnNoData SelectionControl = 0b0000_11_00
)

func (s SelectionControl) String() string {
	switch s {
	case ReturnFCI:
		return "Return FCI"
	case ReturnFCP:
		return "Return FCP"
	case ReturnFMD:
		return "Return FMD"
	case ReturnNoData:
		return "No Response Data"
	default:
		return "Unknown Control"
	}
}

// NewSelectCommand creates a generic SELECT command.
func NewSelectCommand(
	cla Class,
	method SelectionMethod,
	occurrence FileOccurrence,
	ctrl SelectionControl,
	data []byte,
) *CommandAPDU {
	// GSM 11.11 only knows P1 = P2 = '00'.
	p1, p2 := byte(method), byte(ctrl)|byte(occurrence)
	if cla.IsGSM() {
		p1, p2 = 0, 0
	}

	// T=0: a command carrying data is sent as case 3 and the card answers
	// '61XX' / '9FXX'. Only a bare SELECT may ask for the response directly.
	ne := 0
	if len(data) == 0 && ctrl != ReturnNoData && !cla.IsGSM() {
		ne = MaxShortLe
	}

	return NewCommandAPDU(cla, mustInstruction(INS_SELECT), p1, p2, data, ne)
}

// SelectFile selects a file by its 2-byte identifier. UICC classes ask for the FCP.
func SelectFile(cla Class, fid uint16) *CommandAPDU {
	return NewSelectCommand(cla, SelectByFileID, FirstOrOnlyOccurrence, ReturnFCP, []byte{byte(fid >> 8), byte(fid)})
}

// SelectPath selects a file by its path from the MF, MF itself excluded.
// Path selection only exists on UICC; callers on a GSM SIM select each level with SelectFile.
func SelectPath(cla Class, path ...uint16) *CommandAPDU {
	data := make([]byte, 0, 2*len(path))
	for _, fid := range path {
		data = append(data, byte(fid>>8), byte(fid))
	}
	return NewSelectCommand(cla, SelectPathFromMF, FirstOrOnlyOccurrence, ReturnFCP, data)
}

// SelectByAID creates a SELECT command for an application by its name (AID).
func SelectByAID(cla Class, aid []byte) *CommandAPDU {
	return NewSelectCommand(cla, SelectByDFName, FirstOrOnlyOccurrence, ReturnFCP, aid)
}

// SelectMF creates a command to select the Master File '3F00'.
func SelectMF(cla Class) *CommandAPDU {
	return SelectFile(cla, 0x3F00)
}
