package sim

import (
	"fmt"
	"slices"
)

// Structure is the organisation of an elementary file.
type Structure uint8

const (
	StructureTransparent Structure = 0
	StructureLinearFixed Structure = 1
	StructureCyclic      Structure = 3
)

func (s Structure) String() string {
	switch s {
	case StructureTransparent:
		return "Transparent"
	case StructureLinearFixed:
		return "Linear Fixed"
	case StructureCyclic:
		return "Cyclic"
	}
	return fmt.Sprintf("Unknown (0x%02X)", uint8(s))
}

// IsRecord reports whether the file is read record by record.
func (s Structure) IsRecord() bool {
	return s == StructureLinearFixed || s == StructureCyclic
}

// Permission is an access condition level as coded in the 2G access bytes.
type Permission uint8

const (
	AccessAlways Permission = 0
	AccessPIN    Permission = 1
	AccessPIN2   Permission = 2
	AccessADM    Permission = 4
	AccessNever  Permission = 15
)

func (p Permission) String() string {
	switch p {
	case AccessAlways:
		return "ALW"
	case AccessPIN:
		return "PIN"
	case AccessPIN2:
		return "PIN2"
	case AccessADM:
		return "ADM"
	case AccessNever:
		return "NEV"
	}
	return fmt.Sprintf("RFU(%d)", uint8(p))
}

const (
	// FileMF is the master file.
	FileMF uint16 = 0x3F00
	// FileDFTelecom is DF_TELECOM.
	FileDFTelecom uint16 = 0x7F10
	// FileDFGSM is DF_GSM.
	FileDFGSM uint16 = 0x7F20
	// FileCurrentADF selects the active application (ADF_USIM) on a UICC.
	FileCurrentADF uint16 = 0x7FFF
	// ParentADF marks files living under the USIM application only.
	ParentADF uint16 = 0x0000
)

// EFInfo holds the static attributes of a known elementary file.
// Size is the file length for transparent files and the record length for record
// files. Zero means the size varies between cards.
type EFInfo struct {
	ID        uint16
	ParentID  uint16
	Name      string
	Structure Structure
	Size      uint8
	Read      Permission
	Update    Permission
}

// AccessBytes returns the 2G access condition bytes for the file.
func (i EFInfo) AccessBytes() [3]byte {
	return accessBytes(i.Read, i.Update, i.Structure)
}

func accessBytes(read, update Permission, s Structure) [3]byte {
	acc := [3]byte{byte(read)<<4 | byte(update), 0xFF, 0x44}
	if s == StructureCyclic {
		acc[1] = 0x1F
	}
	return acc
}

// efTable is sorted by ID.
var efTable = [...]EFInfo{
	{0x2F00, FileMF, "EF_DIR", StructureLinearFixed, 0, AccessAlways, AccessADM},
	{0x2F05, FileMF, "EF_PL", StructureTransparent, 0, AccessAlways, AccessPIN},
	{0x2F06, FileMF, "EF_ARR", StructureLinearFixed, 0, AccessAlways, AccessPIN},
	{0x2FE2, FileMF, "EF_ICCID", StructureTransparent, 10, AccessAlways, AccessNever},
	{0x6F05, FileDFGSM, "EF_LI", StructureTransparent, 0, AccessAlways, AccessPIN},
	{0x6F06, ParentADF, "EF_ARR", StructureLinearFixed, 0, AccessAlways, AccessADM},
	{0x6F07, FileDFGSM, "EF_IMSI", StructureTransparent, 9, AccessPIN, AccessADM},
	{0x6F2C, FileDFGSM, "EF_DCK", StructureTransparent, 16, AccessPIN, AccessPIN},
	{0x6F30, FileDFGSM, "EF_PLMNsel", StructureTransparent, 0, AccessPIN, AccessPIN},
	{0x6F32, FileDFGSM, "EF_CNL", StructureTransparent, 0, AccessPIN, AccessADM},
	{0x6F37, FileDFGSM, "EF_ACMmax", StructureTransparent, 3, AccessPIN, AccessPIN2},
	{0x6F38, FileDFGSM, "EF_SST", StructureTransparent, 0, AccessPIN, AccessADM},
	{0x6F39, FileDFGSM, "EF_ACM", StructureCyclic, 3, AccessPIN, AccessPIN2},
	{0x6F3A, FileDFTelecom, "EF_ADN", StructureLinearFixed, 0, AccessPIN, AccessPIN},
	{0x6F3B, FileDFTelecom, "EF_FDN", StructureLinearFixed, 0, AccessPIN, AccessPIN2},
	{0x6F3E, FileDFGSM, "EF_GID1", StructureTransparent, 0, AccessPIN, AccessADM},
	{0x6F3F, FileDFGSM, "EF_GID2", StructureTransparent, 0, AccessPIN, AccessADM},
	{0x6F40, FileDFTelecom, "EF_MSISDN", StructureLinearFixed, 0, AccessPIN, AccessPIN},
	{0x6F41, FileDFGSM, "EF_PUCT", StructureTransparent, 5, AccessPIN, AccessPIN2},
	{0x6F42, FileDFTelecom, "EF_SMSP", StructureLinearFixed, 0, AccessPIN, AccessPIN},
	{0x6F44, FileDFTelecom, "EF_LND", StructureCyclic, 0, AccessPIN, AccessPIN},
	{0x6F45, FileDFGSM, "EF_CBMI", StructureTransparent, 0, AccessPIN, AccessPIN},
	{0x6F46, FileDFGSM, "EF_SPN", StructureTransparent, 17, AccessAlways, AccessADM},
	{0x6F48, FileDFGSM, "EF_CBMID", StructureTransparent, 0, AccessPIN, AccessADM},
	{0x6F49, FileDFTelecom, "EF_SDN", StructureLinearFixed, 0, AccessPIN, AccessADM},
	{0x6F4D, FileDFGSM, "EF_BDN", StructureLinearFixed, 0, AccessPIN, AccessPIN2},
	{0x6F50, FileDFGSM, "EF_CBMIR", StructureTransparent, 0, AccessPIN, AccessPIN},
	{0x6F51, FileDFGSM, "EF_NIA", StructureLinearFixed, 0, AccessPIN, AccessADM},
	{0x6F53, FileDFGSM, "EF_LOCIGPRS", StructureTransparent, 14, AccessPIN, AccessPIN},
	{0x6F56, ParentADF, "EF_EST", StructureTransparent, 0, AccessPIN, AccessPIN2},
	{0x6F60, FileDFGSM, "EF_PLMNwAcT", StructureTransparent, 0, AccessPIN, AccessPIN},
	{0x6F61, FileDFGSM, "EF_OPLMNwAcT", StructureTransparent, 0, AccessPIN, AccessADM},
	{0x6F62, FileDFGSM, "EF_HPLMNwAcT", StructureTransparent, 0, AccessPIN, AccessADM},
	{0x6F73, ParentADF, "EF_PSLOCI", StructureTransparent, 14, AccessPIN, AccessPIN},
	{0x6F7B, FileDFGSM, "EF_FPLMN", StructureTransparent, 0, AccessPIN, AccessPIN},
	{0x6F7E, FileDFGSM, "EF_LOCI", StructureTransparent, 11, AccessPIN, AccessPIN},
	{0x6FAD, FileDFGSM, "EF_AD", StructureTransparent, 0, AccessAlways, AccessADM},
	{0x6FAE, FileDFGSM, "EF_PHASE", StructureTransparent, 1, AccessAlways, AccessADM},
	{0x6FB7, FileDFGSM, "EF_ECC", StructureTransparent, 0, AccessAlways, AccessADM},
	{0x6FC5, FileDFGSM, "EF_PNN", StructureLinearFixed, 0, AccessAlways, AccessADM},
	{0x6FC6, FileDFGSM, "EF_OPL", StructureLinearFixed, 0, AccessAlways, AccessADM},
	{0x6FC7, FileDFGSM, "EF_MBDN", StructureLinearFixed, 0, AccessPIN, AccessPIN},
	{0x6FC9, FileDFGSM, "EF_MBI", StructureLinearFixed, 0, AccessPIN, AccessPIN},
	{0x6FCA, FileDFGSM, "EF_MWIS", StructureLinearFixed, 0, AccessPIN, AccessPIN},
	{0x6FCB, FileDFGSM, "EF_CFIS", StructureLinearFixed, 16, AccessPIN, AccessPIN},
	{0x6FCD, FileDFGSM, "EF_SPDI", StructureTransparent, 0, AccessPIN, AccessADM},
	{0x6FD9, ParentADF, "EF_EHPLMN", StructureTransparent, 0, AccessPIN, AccessADM},
	{0x6FDB, ParentADF, "EF_EHPLMNPI", StructureTransparent, 1, AccessPIN, AccessADM},
	{0x6FDC, ParentADF, "EF_LRPLMNSI", StructureTransparent, 1, AccessPIN, AccessADM},
	{0x6FDE, ParentADF, "EF_SPNI", StructureTransparent, 0, AccessAlways, AccessADM},
	{0x6FDF, ParentADF, "EF_PNNI", StructureLinearFixed, 0, AccessAlways, AccessADM},
	{0x6FE3, ParentADF, "EF_EPSLOCI", StructureTransparent, 18, AccessPIN, AccessPIN},
}

// Well-known file identifiers used by the readers.
const (
	EFDir    uint16 = 0x2F00
	EFICCID  uint16 = 0x2FE2
	EFIMSI   uint16 = 0x6F07
	EFADN    uint16 = 0x6F3A
	EFSPN    uint16 = 0x6F46
	EFPNN    uint16 = 0x6FC5
	EFOPL    uint16 = 0x6FC6
	EFSPDI   uint16 = 0x6FCD
	EFMSISDN uint16 = 0x6F40
)

// LookupEF returns the static attributes of a known elementary file.
func LookupEF(id uint16) (EFInfo, bool) {
	i, found := slices.BinarySearchFunc(efTable[:], id, func(e EFInfo, id uint16) int {
		return int(e.ID) - int(id)
	})
	if !found {
		return EFInfo{}, false
	}
	return efTable[i], true
}

// KnownEFs returns a copy of the whole table, sorted by file ID.
func KnownEFs() []EFInfo {
	return slices.Clone(efTable[:])
}
