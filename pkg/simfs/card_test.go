package simfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/moov-io/bertlv"
)

// fakeEF is one elementary file of a fakeCard.
type fakeEF struct {
	parent  uint16 // sim.FileCurrentADF for files of the USIM
	data    []byte
	records [][]byte
	cyclic  bool
	locked  bool
}

func (f *fakeEF) structure() sim.Structure {
	switch {
	case f.records == nil:
		return sim.StructureTransparent
	case f.cyclic:
		return sim.StructureCyclic
	}
	return sim.StructureLinearFixed
}

func (f *fakeEF) recordLength() int {
	if len(f.records) == 0 {
		return 0
	}
	return len(f.records[0])
}

func (f *fakeEF) size() int {
	if f.records != nil {
		return len(f.records) * f.recordLength()
	}
	return len(f.data)
}

// fakeCard is an in-memory SIM answering GSM 11.11 or TS 102 221 commands.
// It checks that each EF is selected through its real parent.
type fakeCard struct {
	gen     Generation
	files   map[uint16]*fakeEF
	usimAID []byte

	df      uint16
	adf     bool
	current *fakeEF
	pending []byte
	sent    []string
}

func newFakeCard(gen Generation, files map[uint16]*fakeEF) *fakeCard {
	return &fakeCard{gen: gen, files: files, df: sim.FileMF}
}

func (c *fakeCard) gsm() bool { return c.gen == Generation2G }

func (c *fakeCard) status(gsm, uicc iso7816.StatusWord) []byte {
	sw := uicc
	if c.gsm() {
		sw = gsm
	}
	return []byte{sw.SW1(), sw.SW2()}
}

func (c *fakeCard) notFound() []byte {
	return c.status(iso7816.SW_ERR_FILE_ID_NOT_FOUND, iso7816.SW_ERR_FILE_NOT_FOUND)
}

func (c *fakeCard) outOfRange() []byte {
	return c.status(iso7816.SW_ERR_OUT_OF_RANGE, iso7816.SW_ERR_RECORD_NOT_FOUND)
}

func (c *fakeCard) Transmit(raw []byte) ([]byte, error) {
	c.sent = append(c.sent, fmt.Sprintf("%X", raw))

	cmd, err := iso7816.ParseCommandAPDU(raw)
	if err != nil {
		return c.status(iso7816.SW_ERR_INS_INVALID, iso7816.SW_ERR_INS_INVALID), nil
	}
	if cmd.Class.IsGSM() != c.gsm() {
		return c.status(iso7816.SW_ERR_CLA_NOT_SUPPORTED, iso7816.SW_ERR_CLA_NOT_SUPPORTED), nil
	}

	switch cmd.Instruction.Raw {
	case iso7816.INS_SELECT:
		return c.selectFile(cmd), nil
	case iso7816.INS_GET_RESPONSE:
		if c.pending == nil {
			return c.status(iso7816.SW_ERR_NO_EF_SELECTED, iso7816.SW_ERR_COND_OF_USE_NOT_SAT), nil
		}
		out := c.pending
		if cmd.Ne < len(out) {
			out = out[:cmd.Ne]
		}
		c.pending = nil
		return append(bytes.Clone(out), 0x90, 0x00), nil
	case iso7816.INS_READ_BINARY:
		return c.readBinary(cmd), nil
	case iso7816.INS_READ_RECORD:
		return c.readRecord(cmd), nil
	}
	return c.status(iso7816.SW_ERR_INS_INVALID, iso7816.SW_ERR_INS_INVALID), nil
}

func (c *fakeCard) answer(header []byte) []byte {
	c.pending = header
	if c.gsm() {
		return []byte{0x9F, byte(len(header))}
	}
	return []byte{0x61, byte(len(header))}
}

func (c *fakeCard) selectFile(cmd *iso7816.CommandAPDU) []byte {
	c.current = nil

	if c.gsm() {
		if len(cmd.Data) != 2 {
			return c.status(iso7816.SW_ERR_WRONG_LENGTH, iso7816.SW_ERR_WRONG_LENGTH)
		}
		fid := binary.BigEndian.Uint16(cmd.Data)
		switch fid {
		case sim.FileMF, sim.FileDFTelecom, sim.FileDFGSM:
			c.df = fid
			return c.answer(dfHeader2G(fid))
		}
		return c.selectEF(fid, c.df)
	}

	switch cmd.P1 {
	case 0x04:
		if c.usimAID == nil || !bytes.Equal(cmd.Data, c.usimAID) {
			return c.notFound()
		}
		c.adf = true
		return c.answer(encodeFCP(bertlv.TLV{Tag: "82", Value: []byte{0x78, 0x21}}, bertlv.TLV{Tag: "84", Value: c.usimAID}))
	case 0x08:
		if len(cmd.Data) < 2 || len(cmd.Data)%2 != 0 {
			return c.status(iso7816.SW_ERR_WRONG_LENGTH, iso7816.SW_ERR_WRONG_LENGTH)
		}
		var path []uint16
		for i := 0; i < len(cmd.Data); i += 2 {
			path = append(path, binary.BigEndian.Uint16(cmd.Data[i:]))
		}
		parent := sim.FileMF
		switch len(path) {
		case 1:
		case 2:
			parent = path[0]
		default:
			return c.notFound()
		}
		if parent == sim.FileCurrentADF && !c.adf {
			return c.notFound()
		}
		return c.selectEF(path[len(path)-1], parent)
	}
	return c.status(iso7816.SW_ERR_INCORRECT_PARAMS_P1P2, iso7816.SW_ERR_INCORRECT_PARAMS_P1P2)
}

func (c *fakeCard) selectEF(fid, parent uint16) []byte {
	ef, ok := c.files[fid]
	if !ok || ef.parent != parent {
		return c.notFound()
	}
	c.current = ef
	if c.gsm() {
		return c.answer(efHeader2G(fid, ef))
	}
	return c.answer(efFCP(fid, ef))
}

func (c *fakeCard) readable() ([]byte, bool) {
	if c.current == nil {
		return c.status(iso7816.SW_ERR_NO_EF_SELECTED, iso7816.SW_ERR_NO_EF_SELECTED_ISO), false
	}
	if c.current.locked {
		return c.status(iso7816.SW_ERR_ACCESS_NOT_FULFILLED, iso7816.SW_ERR_SECURITY_STATUS_NOT_SAT), false
	}
	return nil, true
}

func (c *fakeCard) readBinary(cmd *iso7816.CommandAPDU) []byte {
	if sw, ok := c.readable(); !ok {
		return sw
	}
	ef := c.current
	offset := int(cmd.P1)<<8 | int(cmd.P2)
	if ef.records != nil || offset+cmd.Ne > len(ef.data) {
		return c.status(iso7816.SW_ERR_OUT_OF_RANGE, iso7816.SW_ERR_WRONG_P1P2)
	}
	return append(bytes.Clone(ef.data[offset:offset+cmd.Ne]), 0x90, 0x00)
}

func (c *fakeCard) readRecord(cmd *iso7816.CommandAPDU) []byte {
	if sw, ok := c.readable(); !ok {
		return sw
	}
	ef := c.current
	rec := int(cmd.P1)
	if cmd.P2 != 0x04 || rec < 1 || rec > len(ef.records) {
		return c.outOfRange()
	}
	if cmd.Ne != ef.recordLength() {
		if c.gsm() {
			return []byte{0x67, byte(ef.recordLength())}
		}
		return []byte{0x6C, byte(ef.recordLength())}
	}
	return append(bytes.Clone(ef.records[rec-1]), 0x90, 0x00)
}

// dfHeader2G is a GSM 11.11 9.2.1 DF answer, cut to the fields the reader ignores.
func dfHeader2G(fid uint16) []byte {
	return []byte{0x00, 0x00, 0x00, 0x00, byte(fid >> 8), byte(fid), 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x09, 0x13}
}

func efHeader2G(fid uint16, ef *fakeEF) []byte {
	acc := [3]byte{0x14, 0xFF, 0x44}
	if info, ok := sim.LookupEF(fid); ok {
		acc = info.AccessBytes()
	}
	size := ef.size()
	h := []byte{
		0x00, 0x00, byte(size >> 8), byte(size), byte(fid >> 8), byte(fid), 0x04, 0x00,
		acc[0], acc[1], acc[2], 0x01, 0x02, byte(ef.structure()),
	}
	if ef.records != nil {
		h = append(h, byte(ef.recordLength()))
	}
	return h
}

func efFCP(fid uint16, ef *fakeEF) []byte {
	desc := []byte{0x41, 0x21}
	if ef.records != nil {
		kind := byte(0x42)
		if ef.cyclic {
			kind = 0x46
		}
		desc = []byte{kind, 0x21, 0x00, byte(ef.recordLength()), byte(len(ef.records))}
	}
	size := ef.size()
	return encodeFCP(
		bertlv.TLV{Tag: "82", Value: desc},
		bertlv.TLV{Tag: "83", Value: []byte{byte(fid >> 8), byte(fid)}},
		bertlv.TLV{Tag: "8A", Value: []byte{0x05}},
		bertlv.TLV{Tag: "80", Value: []byte{byte(size >> 8), byte(size)}},
	)
}

func encodeFCP(objects ...bertlv.TLV) []byte {
	data, err := bertlv.Encode([]bertlv.TLV{{Tag: "62", TLVs: objects}})
	if err != nil {
		panic(err)
	}
	return data
}
