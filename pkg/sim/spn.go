package sim

import (
	"fmt"
	"strings"
)

// EF_SPN (TS 51.011 10.3.11), 17 bytes:
//
// Byte 1:      Display condition
// Bytes 2..17: Service provider name, SIM alpha coding, 'FF' padded
//
// Display condition b1 set: the registered PLMN name is required when the
// registered PLMN is the HPLMN or listed in EF_SPDI. b2 clear: the service
// provider name is required when roaming elsewhere (TS 31.102 4.2.12).

const (
	spnNameLength = 16

	spnShowPLMN    = 0x01
	spnHideRoaming  = 0x02
)

// ServiceProviderName is the decoded content of EF_SPN.
type ServiceProviderName struct {
	Name             string
	DisplayCondition byte
}

// ParseSPN decodes EF_SPN. Names longer than 16 bytes are cut.
func ParseSPN(data []byte) (*ServiceProviderName, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: SPN needs at least 2 bytes, got %d", ErrMalformed, len(data))
	}

	raw := data[1:]
	if len(raw) > spnNameLength {
		raw = raw[:spnNameLength]
	}
	name, err := DecodeAlphaString(raw)
	if err != nil {
		return nil, fmt.Errorf("SPN name: %w", err)
	}

	return &ServiceProviderName{Name: name, DisplayCondition: data[0]}, nil
}

// ShowPLMN reports whether the registered PLMN name must be displayed at home.
func (s *ServiceProviderName) ShowPLMN() bool {
	return s.DisplayCondition&spnShowPLMN != 0
}

// ShowWhenRoaming reports whether the service provider name must be displayed
// outside the HPLMN and EF_SPDI networks.
func (s *ServiceProviderName) ShowWhenRoaming() bool {
	return s.DisplayCondition&spnHideRoaming == 0
}

// Describe generates a human-readable report.
func (s *ServiceProviderName) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== SERVICE PROVIDER NAME ===\n")
	fmt.Fprintf(&sb, "    - Name:              %q\n", s.Name)
	fmt.Fprintf(&sb, "    - Display Condition: %02X\n", s.DisplayCondition)
	fmt.Fprintf(&sb, "    - Show PLMN:         %t\n", s.ShowPLMN())
	fmt.Fprintf(&sb, "    - Show When Roaming: %t", s.ShowWhenRoaming())
	return sb.String()
}
