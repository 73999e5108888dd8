package simfs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/gregLibert/sim-card/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// EF_DIR ('2F00', ETSI TS 102 221 13.1) lists the applications of a UICC, one
// application template per record:
//
// 61 <len>
//    4F <len> <AID>
//    50 <len> <label>
//    73 <len> <discretionary data>

var (
	// RIDs and application codes of 3GPP applications (TS 101 220 annex E).
	aidPrefixUSIM = []byte{0xA0, 0x00, 0x00, 0x00, 0x87, 0x10, 0x02}
	aidPrefixISIM = []byte{0xA0, 0x00, 0x00, 0x00, 0x87, 0x10, 0x04}
)

// Application (Tag '61') is one EF_DIR entry.
type Application struct {
	AID               []byte `tlv:"4F"`
	Label             []byte `tlv:"50" fmt:"ascii"`
	DiscretionaryData []byte `tlv:"73"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// Kind names the 3GPP application type of the AID.
func (a Application) Kind() string {
	switch {
	case bytes.HasPrefix(a.AID, aidPrefixUSIM):
		return "USIM"
	case bytes.HasPrefix(a.AID, aidPrefixISIM):
		return "ISIM"
	}
	return "Other"
}

// IsUSIM reports whether the application is a USIM.
func (a Application) IsUSIM() bool {
	return a.Kind() == "USIM"
}

// DirRecord is the content of one EF_DIR record.
type DirRecord struct {
	Applications []Application `tlv:"61"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ParseDirRecord interprets an EF_DIR record. Unused ('FF' filled) records
// yield an empty DirRecord.
func ParseDirRecord(data []byte) (*DirRecord, error) {
	record := &DirRecord{}
	if len(tlv.TrimFiller(data)) == 0 {
		return record, nil
	}
	if err := tlv.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("EF_DIR record: %w", err)
	}
	return record, nil
}

// Directory is the decoded EF_DIR.
type Directory []Application

// USIM returns the first USIM application.
func (d Directory) USIM() (Application, bool) {
	for _, app := range d {
		if app.IsUSIM() {
			return app, true
		}
	}
	return Application{}, false
}

// Describe generates a report for all applications of the directory.
func (d Directory) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== UICC APPLICATION DIRECTORY ===")

	if len(d) == 0 {
		sb.WriteString("\n    (no application)")
		return sb.String()
	}
	for i, app := range d {
		prefix := fmt.Sprintf("App[%d]", i+1)
		fmt.Fprintf(&sb, "\n    - %s: %s", prefix, app.Kind())
		tlv.WriteStructFields(&sb, prefix, app)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Applications reads EF_DIR. Records that do not decode are skipped.
func (r *Reader) Applications() (Directory, error) {
	records, err := r.ReadRecords(sim.EFDir)
	if err != nil {
		return nil, err
	}

	var dir Directory
	for i, data := range records {
		rec, err := ParseDirRecord(data)
		if err != nil {
			r.log.Warnw("dropping EF_DIR record", "record", i+1, "error", err)
			continue
		}
		dir = append(dir, rec.Applications...)
	}
	return dir, nil
}

// activateUSIM selects the USIM application once, so that '7FFF' paths resolve.
func (r *Reader) activateUSIM() error {
	if r.adfActive {
		return nil
	}

	dir, err := r.Applications()
	if err != nil {
		return fmt.Errorf("reading EF_DIR: %w", err)
	}
	app, ok := dir.USIM()
	if !ok {
		return fmt.Errorf("no USIM application in EF_DIR: %w", sim.ErrNotFound)
	}

	if _, err := r.send(sim.FileCurrentADF, iso7816.SelectByAID(r.cla, app.AID)); err != nil {
		return fmt.Errorf("selecting USIM %X: %w", app.AID, err)
	}
	r.log.Debugw("USIM selected", "aid", fmt.Sprintf("%X", app.AID))
	r.adfActive = true
	return nil
}
