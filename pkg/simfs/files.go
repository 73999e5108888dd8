package simfs

import (
	"fmt"

	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/sim"
)

// A READ BINARY moves at most 256 bytes, a record is at most 255.
const (
	maxBinaryChunk = iso7816.MaxShortLe
	maxRecords     = 254
)

// Path returns the DFs leading from the MF (excluded) to the parent of id.
// On a UICC, DF_GSM files are read from the USIM application.
func (r *Reader) Path(id uint16) ([]uint16, error) {
	info, ok := sim.LookupEF(id)
	if !ok {
		return nil, fmt.Errorf("EF %04X: no known path: %w", id, sim.ErrNotFound)
	}

	switch info.ParentID {
	case sim.FileMF:
		return nil, nil
	case sim.FileDFTelecom:
		return []uint16{sim.FileDFTelecom}, nil
	case sim.FileDFGSM:
		if r.gen == Generation3G {
			return []uint16{sim.FileCurrentADF}, nil
		}
		return []uint16{sim.FileDFGSM}, nil
	case sim.ParentADF:
		if r.gen == Generation3G {
			return []uint16{sim.FileCurrentADF}, nil
		}
		return nil, fmt.Errorf("%s (%04X) only exists on a USIM: %w", info.Name, id, sim.ErrNotFound)
	}
	return nil, fmt.Errorf("EF %04X: unexpected parent %04X", id, info.ParentID)
}

// Select selects the EF id and decodes its header.
func (r *Reader) Select(id uint16) (*sim.FileResponse, error) {
	path, err := r.Path(id)
	if err != nil {
		return nil, err
	}

	var trace iso7816.Trace
	if r.gen == Generation3G {
		trace, err = r.select3G(id, path)
	} else {
		trace, err = r.select2G(id, path)
	}
	if err != nil {
		return nil, err
	}

	result, err := iso7816.NewSelectResult(trace)
	if err != nil {
		return nil, err
	}
	info, err := result.FileInfo()
	if err != nil {
		return nil, fmt.Errorf("EF %04X header: %w", id, err)
	}
	if info.EFID != 0 && info.EFID != id {
		return nil, fmt.Errorf("selected EF %04X, card answered for %04X", id, info.EFID)
	}

	r.log.Debugw("selected",
		"file", fmt.Sprintf("%04X", id),
		"structure", info.Structure,
		"length", info.FileLength,
		"record_length", info.RecordLength,
	)
	return info, nil
}

// select2G walks down from the MF one level at a time.
func (r *Reader) select2G(id uint16, path []uint16) (iso7816.Trace, error) {
	for _, df := range append([]uint16{sim.FileMF}, path...) {
		if _, err := r.send(df, iso7816.SelectFile(r.cla, df)); err != nil {
			return nil, err
		}
	}
	return r.send(id, iso7816.SelectFile(r.cla, id))
}

func (r *Reader) select3G(id uint16, path []uint16) (iso7816.Trace, error) {
	if len(path) > 0 && path[0] == sim.FileCurrentADF {
		if err := r.activateUSIM(); err != nil {
			return nil, err
		}
	}
	return r.send(id, iso7816.SelectPath(r.cla, append(path, id)...))
}

// ReadBinary reads the whole content of the transparent EF id.
func (r *Reader) ReadBinary(id uint16) ([]byte, error) {
	info, err := r.Select(id)
	if err != nil {
		return nil, err
	}
	if info.Structure != sim.StructureTransparent {
		return nil, fmt.Errorf("EF %04X is %s, not transparent", id, info.Structure)
	}

	data := make([]byte, 0, info.FileLength)
	for offset := 0; offset < int(info.FileLength); {
		n := min(int(info.FileLength)-offset, maxBinaryChunk)
		trace, err := r.send(id, iso7816.ReadBinary(r.cla, uint16(offset), n))
		if err != nil {
			return nil, err
		}
		chunk := trace.Data()
		if len(chunk) == 0 {
			return nil, fmt.Errorf("EF %04X: empty READ BINARY answer at offset %d", id, offset)
		}
		data = append(data, chunk...)
		offset += len(chunk)
	}
	return data, nil
}

// ReadRecords reads every record of the record EF id, in file order.
func (r *Reader) ReadRecords(id uint16) ([][]byte, error) {
	info, err := r.Select(id)
	if err != nil {
		return nil, err
	}
	if !info.Structure.IsRecord() {
		return nil, fmt.Errorf("EF %04X is %s, not a record file", id, info.Structure)
	}

	count := min(info.RecordCount(), maxRecords)
	records := make([][]byte, 0, count)
	for i := 1; i <= count; i++ {
		rec, err := r.readRecord(id, i, int(info.RecordLength))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadRecord reads record number record (1-based) of the record EF id.
func (r *Reader) ReadRecord(id uint16, record int) ([]byte, error) {
	info, err := r.Select(id)
	if err != nil {
		return nil, err
	}
	if !info.Structure.IsRecord() {
		return nil, fmt.Errorf("EF %04X is %s, not a record file", id, info.Structure)
	}
	if record < 1 || record > info.RecordCount() {
		return nil, fmt.Errorf("EF %04X record %d of %d: %w", id, record, info.RecordCount(), sim.ErrRecordOutOfRange)
	}
	return r.readRecord(id, record, int(info.RecordLength))
}

func (r *Reader) readRecord(id uint16, record, length int) ([]byte, error) {
	trace, err := r.send(id, iso7816.ReadRecord(r.cla, byte(record), length))
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", record, err)
	}
	return trace.Data(), nil
}
