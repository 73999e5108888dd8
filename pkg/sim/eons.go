package sim

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/gregLibert/sim-card/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// EF_PNN RECORD (TS 31.102 4.2.58):
//
// 43 <len> <name>    Full name for network (mandatory)
// 45 <len> <name>    Short name for network (optional)
// 80 <len> <alpha>   Additional PLMN information (optional)
//
// EF_OPL RECORD (TS 31.102 4.2.59), 8 bytes:
//
// Bytes 1-3: PLMN, may use 'D' nibbles as wildcards
// Bytes 4-5: LAC range start
// Bytes 6-7: LAC range end
// Byte 8:    PNN record identifier, 0 = name not on the SIM

const (
	tagFullName  = 0x43
	tagShortName = 0x45
	tagPLMNInfo  = 0x80

	// OPLRecordLength is the minimum size of an EF_OPL record.
	OPLRecordLength = 8

	wildcardDigit = 'b'

	lacAnyLow  = 0x0000
	lacAnyHigh = 0xFFFE
)

// OperatorInfo holds one EF_PNN record. Empty strings mean the field was absent.
type OperatorInfo struct {
	LongName  string
	LongCI    bool
	ShortName string
	ShortCI   bool
	Info      string
}

// OPLRecord is one decoded EF_OPL entry.
type OPLRecord struct {
	MCC     string
	MNC     string
	LACLow  uint16
	LACHigh uint16
	PNNID   uint8
}

// EONS holds the operator names table (EF_PNN) and the PLMN/LAC ranges (EF_OPL)
// pointing into it.
//
// OPL records are prepended as they are added; Optimize restores file order,
// which is the order lookups must scan in.
type EONS struct {
	pnn      []OperatorInfo
	opl      []OPLRecord
	pnnValid bool
}

// NewEONS creates an empty table able to hold pnnRecords EF_PNN records.
func NewEONS(pnnRecords int) *EONS {
	return &EONS{pnn: make([]OperatorInfo, max(pnnRecords, 0))}
}

// AddPNNRecord decodes the EF_PNN record number record (1-based).
// Undecodable names leave the matching field empty.
func (e *EONS) AddPNNRecord(record int, data []byte) error {
	if record < 1 || record > len(e.pnn) {
		return fmt.Errorf("%w: PNN record %d, capacity %d", ErrRecordOutOfRange, record, len(e.pnn))
	}

	var info OperatorInfo
	decoded := false

	if raw, ok := tlv.Find(data, tagFullName); ok {
		if name, ci, err := DecodeNetworkName(raw); err == nil {
			info.LongName, info.LongCI = name, ci
			decoded = true
		}
	}

	if raw, ok := tlv.Find(data, tagShortName); ok {
		if name, ci, err := DecodeNetworkName(raw); err == nil {
			info.ShortName, info.ShortCI = name, ci
			decoded = true
		}
	}

	if raw, ok := tlv.Find(data, tagPLMNInfo); ok {
		if text, err := DecodeAlphaString(raw); err == nil {
			info.Info = text
		}
	}

	e.pnn[record-1] = info
	if decoded {
		e.pnnValid = true
	}
	return nil
}

// BuildPNN encodes info as an EF_PNN record body.
func BuildPNN(info OperatorInfo) ([]byte, error) {
	objects := []bertlv.TLV{
		{Tag: "43", Value: EncodeNetworkName(info.LongName, info.LongCI)},
	}
	if info.ShortName != "" {
		objects = append(objects, bertlv.TLV{Tag: "45", Value: EncodeNetworkName(info.ShortName, info.ShortCI)})
	}
	if info.Info != "" {
		objects = append(objects, bertlv.TLV{Tag: "80", Value: EncodeAlphaString(info.Info, 0x7F)})
	}

	data, err := bertlv.Encode(objects)
	if err != nil {
		return nil, fmt.Errorf("encoding PNN record: %w", err)
	}
	return data, nil
}

// AddOPLRecord decodes one EF_OPL record. Records pointing past the PNN table
// are dropped without error.
func (e *EONS) AddOPLRecord(data []byte) error {
	rec, err := ParseOPLRecord(data)
	if err != nil {
		return err
	}
	if int(rec.PNNID) > len(e.pnn) {
		return nil
	}

	e.opl = slices.Insert(e.opl, 0, rec)
	return nil
}

// ParseOPLRecord decodes the fixed 8-byte EF_OPL layout.
func ParseOPLRecord(data []byte) (OPLRecord, error) {
	if len(data) < OPLRecordLength {
		return OPLRecord{}, fmt.Errorf("%w: OPL record needs %d bytes, got %d", ErrMalformed, OPLRecordLength, len(data))
	}

	mcc, mnc, err := DecodeMCCMNC(data[:PLMNLength])
	if err != nil {
		return OPLRecord{}, err
	}

	return OPLRecord{
		MCC:     mcc,
		MNC:     mnc,
		LACLow:  binary.BigEndian.Uint16(data[3:5]),
		LACHigh: binary.BigEndian.Uint16(data[5:7]),
		PNNID:   data[7],
	}, nil
}

// Optimize reverses the OPL list once loading is done.
func (e *EONS) Optimize() {
	slices.Reverse(e.opl)
}

// PNNIsEmpty reports whether no PNN record carried a decodable name.
func (e *EONS) PNNIsEmpty() bool {
	return !e.pnnValid
}

// PNN returns the record number record (1-based).
func (e *EONS) PNN(record int) (OperatorInfo, bool) {
	if record < 1 || record > len(e.pnn) {
		return OperatorInfo{}, false
	}
	return e.pnn[record-1], true
}

// PNNCount returns the capacity of the PNN table.
func (e *EONS) PNNCount() int {
	return len(e.pnn)
}

// OPL returns the OPL records in scan order.
func (e *EONS) OPL() []OPLRecord {
	return slices.Clone(e.opl)
}

// OPLCount returns the number of stored OPL entries.
func (e *EONS) OPLCount() int {
	return len(e.opl)
}

// Lookup resolves a PLMN ignoring location areas. Only OPL entries covering every
// LAC (0000-FFFE) can match.
func (e *EONS) Lookup(mcc, mnc string) *OperatorInfo {
	return e.lookup(mcc, mnc, 0, false)
}

// LookupWithLAC resolves a PLMN in a given location area.
func (e *EONS) LookupWithLAC(mcc, mnc string, lac uint16) *OperatorInfo {
	return e.lookup(mcc, mnc, lac, true)
}

func (e *EONS) lookup(mcc, mnc string, lac uint16, haveLAC bool) *OperatorInfo {
	for _, rec := range e.opl {
		if !matchDigits(mcc, rec.MCC) || !matchDigits(mnc, rec.MNC) {
			continue
		}

		anyLAC := rec.LACLow == lacAnyLow && rec.LACHigh == lacAnyHigh
		if !anyLAC && (!haveLAC || lac < rec.LACLow || lac > rec.LACHigh) {
			continue
		}

		if rec.PNNID == 0 {
			return nil
		}
		return &e.pnn[rec.PNNID-1]
	}

	return nil
}

// matchDigits compares the first three digits of query and pattern. A missing digit
// compares as absent; a 'b' in the pattern matches any digit that is present.
func matchDigits(query, pattern string) bool {
	for i := 0; i < 3; i++ {
		q, p := digitAt(query, i), digitAt(pattern, i)
		if q == p {
			continue
		}
		if p == wildcardDigit && q != 0 {
			continue
		}
		return false
	}
	return true
}

func digitAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// Describe generates a human-readable report.
func (e *EONS) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== OPERATOR NAMES (PNN) ===")

	for i, info := range e.pnn {
		if info == (OperatorInfo{}) {
			continue
		}
		fmt.Fprintf(&sb, "\n  > Record %d", i+1)
		if info.LongName != "" {
			fmt.Fprintf(&sb, "\n    - Long Name: %q (CI: %t)", info.LongName, info.LongCI)
		}
		if info.ShortName != "" {
			fmt.Fprintf(&sb, "\n    - Short Name: %q (CI: %t)", info.ShortName, info.ShortCI)
		}
		if info.Info != "" {
			fmt.Fprintf(&sb, "\n    - Info: %q", info.Info)
		}
	}

	sb.WriteString("\n=== OPERATOR PLMN LIST (OPL) ===")
	for _, rec := range e.opl {
		fmt.Fprintf(&sb, "\n    - PLMN %s-%s LAC %04X-%04X -> PNN %d", rec.MCC, rec.MNC, rec.LACLow, rec.LACHigh, rec.PNNID)
	}
	return sb.String()
}
