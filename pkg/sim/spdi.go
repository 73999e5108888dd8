package sim

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gregLibert/sim-card/pkg/tlv"
)

// EF_SPDI STRUCTURE (TS 31.102 4.2.66):
//
// A3 <len>                  Service provider display information
//    80 <len> <PLMN>...     List of 3-byte PLMN entries, 'FFFFFF' for unused slots

const (
	tagSPDI     = 0xA3
	tagPLMNList = 0x80

	minSPDILength = 6
)

// Operator identifies a PLMN by its MCC and MNC digits.
type Operator struct {
	MCC string
	MNC string
}

func (o Operator) String() string {
	return o.MCC + "-" + o.MNC
}

func compareOperators(a, b Operator) int {
	if c := strings.Compare(a.MCC, b.MCC); c != 0 {
		return c
	}
	return strings.Compare(a.MNC, b.MNC)
}

// SPDI is the sorted set of PLMNs listed in EF_SPDI.
// A nil *SPDI behaves as an empty list.
type SPDI struct {
	operators []Operator
}

// NewSPDI parses the content of EF_SPDI. Unused and malformed PLMN slots are skipped.
func NewSPDI(data []byte) (*SPDI, error) {
	if len(data) < minSPDILength {
		return nil, fmt.Errorf("%w: EF_SPDI too short (%d bytes)", ErrMalformed, len(data))
	}

	scope := data
	if inner, ok := tlv.Find(data, tagSPDI); ok {
		scope = inner
	}

	list, ok := tlv.Find(scope, tagPLMNList)
	if !ok {
		return nil, fmt.Errorf("%w: EF_SPDI PLMN list (tag 80)", ErrNotFound)
	}

	spdi := &SPDI{}
	for i := 0; i+PLMNLength <= len(list); i += PLMNLength {
		entry := list[i : i+PLMNLength]
		if entry[0] == 0xFF && entry[1] == 0xFF && entry[2] == 0xFF {
			continue
		}

		mcc, mnc, err := DecodeMCCMNC(entry)
		if err != nil {
			continue
		}
		spdi.insert(Operator{MCC: mcc, MNC: mnc})
	}

	return spdi, nil
}

func (s *SPDI) insert(op Operator) {
	pos, found := slices.BinarySearchFunc(s.operators, op, compareOperators)
	if found {
		return
	}
	s.operators = slices.Insert(s.operators, pos, op)
}

// Lookup reports whether the PLMN is listed.
func (s *SPDI) Lookup(mcc, mnc string) bool {
	if s == nil {
		return false
	}
	_, found := slices.BinarySearchFunc(s.operators, Operator{MCC: mcc, MNC: mnc}, compareOperators)
	return found
}

// Operators returns a copy of the listed PLMNs, sorted by MCC then MNC.
func (s *SPDI) Operators() []Operator {
	if s == nil {
		return nil
	}
	return slices.Clone(s.operators)
}

// Len returns the number of distinct PLMNs.
func (s *SPDI) Len() int {
	if s == nil {
		return 0
	}
	return len(s.operators)
}

// Describe generates a human-readable report.
func (s *SPDI) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== SERVICE PROVIDER DISPLAY INFO ===")

	if s.Len() == 0 {
		sb.WriteString("\n    (no PLMN)")
		return sb.String()
	}
	for _, op := range s.operators {
		sb.WriteString("\n    - PLMN: " + op.String())
	}
	return sb.String()
}
