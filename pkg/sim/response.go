package sim

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gregLibert/sim-card/pkg/tlv"
)

// GSM 11.11 SELECT RESPONSE (EF), 9.2.1:
//
// Bytes 3-4:  File size (transparent) or total record bytes
// Bytes 5-6:  File ID
// Byte 7:     Type of file ('04' = EF)
// Bytes 9-11: Access conditions
// Byte 14:    Structure ('00' transparent, '01' linear fixed, '03' cyclic)
// Byte 15:    Record length (record EFs)
//
// ETSI TS 102 221 FCP TEMPLATE, 11.1.1.3:
//
// 62 <len>
//    80 <len> <size>                          File size
//    82 <len> <desc> 21 [<rec len 2> <num>]   File descriptor
//    83 02 <file id>                          File identifier

const (
	min2GResponseLength = 14
	fileTypeEF          = 0x04

	tagFCP            = 0x62
	tagFileSize       = 0x80
	tagFileDescriptor = 0x82
	tagFileID         = 0x83

	dataCodingByte = 0x21
)

// FileResponse is the decoded answer to an EF selection, in 2G form.
type FileResponse struct {
	EFID         uint16
	FileLength   uint32
	RecordLength uint32
	Structure    Structure
	Access       [3]byte
}

// RecordCount returns the number of records of a record file.
func (r *FileResponse) RecordCount() int {
	if r.RecordLength == 0 {
		return 0
	}
	return int(r.FileLength / r.RecordLength)
}

// ReadAccess returns the READ access condition.
func (r *FileResponse) ReadAccess() Permission {
	return Permission(r.Access[0] >> 4)
}

// UpdateAccess returns the UPDATE access condition.
func (r *FileResponse) UpdateAccess() Permission {
	return Permission(r.Access[0] & 0x0F)
}

// Parse2GResponse decodes a GSM 11.11 GET RESPONSE for an EF.
func Parse2GResponse(data []byte) (*FileResponse, error) {
	if len(data) < min2GResponseLength {
		return nil, fmt.Errorf("%w: 2G response needs %d bytes, got %d", ErrMalformed, min2GResponseLength, len(data))
	}
	if data[6] != fileTypeEF {
		return nil, fmt.Errorf("%w: file type %02X is not an EF", ErrMalformed, data[6])
	}

	r := &FileResponse{
		EFID:       binary.BigEndian.Uint16(data[4:6]),
		FileLength: uint32(binary.BigEndian.Uint16(data[2:4])),
		Structure:  Structure(data[13]),
	}
	copy(r.Access[:], data[8:11])

	if r.Structure.IsRecord() {
		if len(data) < min2GResponseLength+1 {
			return nil, fmt.Errorf("%w: record length missing", ErrMalformed)
		}
		r.RecordLength = uint32(data[14])
	}

	return r, nil
}

// Parse3GResponse decodes a TS 102 221 FCP template into the 2G representation.
// Access conditions come from the known file table, defaulting to PIN/PIN.
func Parse3GResponse(data []byte) (*FileResponse, error) {
	fcp, ok := tlv.Find(data, tagFCP)
	if !ok {
		return nil, fmt.Errorf("%w: FCP template (tag 62)", ErrNotFound)
	}

	size, ok := tlv.Find(fcp, tagFileSize)
	if !ok {
		return nil, fmt.Errorf("%w: file size (tag 80)", ErrNotFound)
	}
	if len(size) < 1 || len(size) > 4 {
		return nil, fmt.Errorf("%w: file size on %d bytes", ErrMalformed, len(size))
	}

	id, ok := tlv.Find(fcp, tagFileID)
	if !ok {
		return nil, fmt.Errorf("%w: file identifier (tag 83)", ErrNotFound)
	}
	if len(id) != 2 {
		return nil, fmt.Errorf("%w: file identifier on %d bytes", ErrMalformed, len(id))
	}

	desc, ok := tlv.Find(fcp, tagFileDescriptor)
	if !ok {
		return nil, fmt.Errorf("%w: file descriptor (tag 82)", ErrNotFound)
	}
	if len(desc) < 2 || desc[1] != dataCodingByte {
		return nil, fmt.Errorf("%w: file descriptor % X", ErrMalformed, desc)
	}

	r := &FileResponse{EFID: binary.BigEndian.Uint16(id)}
	for _, b := range size {
		r.FileLength = r.FileLength<<8 | uint32(b)
	}

	switch desc[0] & 0x07 {
	case 0x01:
		r.Structure = StructureTransparent
	case 0x02:
		r.Structure = StructureLinearFixed
	case 0x06:
		r.Structure = StructureCyclic
	default:
		return nil, fmt.Errorf("%w: unsupported file structure %02X", ErrMalformed, desc[0])
	}

	if r.Structure.IsRecord() {
		if len(desc) != 5 {
			return nil, fmt.Errorf("%w: record descriptor on %d bytes", ErrMalformed, len(desc))
		}
		r.RecordLength = uint32(desc[3])
	}

	read, update := AccessPIN, AccessPIN
	if info, ok := LookupEF(r.EFID); ok {
		read, update = info.Read, info.Update
	}
	r.Access = accessBytes(read, update, r.Structure)

	return r, nil
}

// Describe generates a human-readable report.
func (r *FileResponse) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== FILE INFO ===")

	name := "unknown"
	if info, ok := LookupEF(r.EFID); ok {
		name = info.Name
	}
	fmt.Fprintf(&sb, "\n    - File: %04X (%s)", r.EFID, name)
	fmt.Fprintf(&sb, "\n    - Structure: %s", r.Structure)
	fmt.Fprintf(&sb, "\n    - Length: %d", r.FileLength)
	if r.Structure.IsRecord() {
		fmt.Fprintf(&sb, "\n    - Records: %d x %d bytes", r.RecordCount(), r.RecordLength)
	}
	fmt.Fprintf(&sb, "\n    - Access: read %s, update %s", r.ReadAccess(), r.UpdateAccess())
	return sb.String()
}
