package iso7816

import (
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// FILE CONTROL PARAMETERS (ETSI TS 102 221 §11.1.1.3):
//
// A UICC answers SELECT (P2 = '04') with an FCP template, tag '62'. A GSM SIM
// instead returns the fixed 2G header, decoded by sim.Parse2GResponse.

// FCPTemplate (File Control Parameters) - Tag '62'.
type FCPTemplate struct {
	FileSize             []byte `tlv:"80" fmt:"int"`
	TotalFileSize        []byte `tlv:"81" fmt:"int"`
	FileDescriptor       []byte `tlv:"82"`
	FileIdentifier       []byte `tlv:"83"`
	DFName               []byte `tlv:"84" fmt:"ascii"`
	ShortFileIdentifier  []byte `tlv:"88"`
	LifeCycleStatus      []byte `tlv:"8A"`
	SecAttrRefExpanded   []byte `tlv:"8B"`
	SecurityAttrCompact  []byte `tlv:"8C"`
	ProprietaryInfo      []byte `tlv:"A5"`
	SecurityAttrExpanded []byte `tlv:"AB"`
	PINStatusTemplate    []byte `tlv:"C6"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ParseFCP decodes the '62' template of a UICC SELECT response.
func ParseFCP(data []byte) (*FCPTemplate, error) {
	packets, err := bertlv.Decode(tlv.TrimFiller(data))
	if err != nil {
		return nil, fmt.Errorf("BER-TLV decode failed: %w", err)
	}

	for _, p := range packets {
		if !strings.EqualFold(p.Tag, "62") {
			continue
		}
		fcp := &FCPTemplate{}
		if err := tlv.UnmarshalFromPackets(p.TLVs, fcp); err != nil {
			return nil, fmt.Errorf("FCP unmarshal failed: %w", err)
		}
		return fcp, nil
	}

	return nil, fmt.Errorf("mandatory tag '62' not found")
}

// LifeCycle returns the textual life cycle state of tag '8A'.
func (f *FCPTemplate) LifeCycle() string {
	if len(f.LifeCycleStatus) != 1 {
		return ""
	}
	switch b := f.LifeCycleStatus[0]; {
	case b == 0x01:
		return "Creation"
	case b == 0x03:
		return "Initialisation"
	case b&0xFD == 0x05:
		return "Operational (activated)"
	case b&0xFD == 0x04:
		return "Operational (deactivated)"
	case b&0xFC == 0x0C:
		return "Terminated"
	}
	return "Proprietary"
}
