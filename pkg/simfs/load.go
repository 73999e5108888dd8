package simfs

import (
	"bytes"
	"fmt"

	"github.com/gregLibert/sim-card/pkg/sim"
)

// ReadICCID reads the card serial number from EF_ICCID.
func (r *Reader) ReadICCID() (string, error) {
	data, err := r.ReadBinary(sim.EFICCID)
	if err != nil {
		return "", err
	}
	return sim.DecodeICCID(data)
}

// ReadIMSI reads the subscriber identity from EF_IMSI. It needs PIN verification.
func (r *Reader) ReadIMSI() (string, error) {
	data, err := r.ReadBinary(sim.EFIMSI)
	if err != nil {
		return "", err
	}
	return sim.DecodeIMSI(data)
}

// ReadSPN reads the service provider name from EF_SPN.
func (r *Reader) ReadSPN() (*sim.ServiceProviderName, error) {
	data, err := r.ReadBinary(sim.EFSPN)
	if err != nil {
		return nil, err
	}
	return sim.ParseSPN(data)
}

// LoadSPDI reads the service provider display list from EF_SPDI.
func (r *Reader) LoadSPDI() (*sim.SPDI, error) {
	data, err := r.ReadBinary(sim.EFSPDI)
	if err != nil {
		return nil, err
	}
	return sim.NewSPDI(data)
}

// LoadEONS builds the operator name table from EF_PNN and EF_OPL.
// A card without EF_OPL keeps the PNN names; the first one then names the HPLMN.
func (r *Reader) LoadEONS() (*sim.EONS, error) {
	pnn, err := r.ReadRecords(sim.EFPNN)
	if err != nil {
		return nil, err
	}

	eons := sim.NewEONS(len(pnn))
	for i, data := range pnn {
		if err := eons.AddPNNRecord(i+1, data); err != nil {
			return nil, err
		}
	}
	if eons.PNNIsEmpty() {
		r.log.Infow("EF_PNN holds no operator name", "records", len(pnn))
	}

	opl, err := r.ReadRecords(sim.EFOPL)
	switch {
	case IsNotFound(err):
		r.log.Debugw("no EF_OPL on card")
	case err != nil:
		return nil, err
	}

	for i, data := range opl {
		if isUnused(data) {
			continue
		}
		if err := eons.AddOPLRecord(data); err != nil {
			r.log.Warnw("dropping EF_OPL record", "record", i+1, "error", err)
		}
	}
	eons.Optimize()

	r.log.Debugw("EONS loaded", "pnn", eons.PNNCount(), "opl", eons.OPLCount())
	return eons, nil
}

// LoadADN reads the phonebook from EF_ADN. Empty records are skipped.
func (r *Reader) LoadADN() ([]sim.ADN, error) {
	return r.loadNumbers(sim.EFADN)
}

// LoadMSISDN reads the subscriber's own numbers from EF_MSISDN.
func (r *Reader) LoadMSISDN() ([]sim.ADN, error) {
	return r.loadNumbers(sim.EFMSISDN)
}

func (r *Reader) loadNumbers(id uint16) ([]sim.ADN, error) {
	records, err := r.ReadRecords(id)
	if err != nil {
		return nil, err
	}

	var entries []sim.ADN
	for i, data := range records {
		if isUnused(data) {
			continue
		}
		entry, err := sim.ParseADN(data)
		if err != nil {
			r.log.Warnw("dropping record", "file", fmt.Sprintf("%04X", id), "record", i+1, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// isUnused reports an 'FF' filled record.
func isUnused(data []byte) bool {
	return len(bytes.TrimLeft(data, "\xff")) == 0
}
