package tlv

// SCANNER:
// SIM elementary files store BER-TLV objects inside fixed-size records, so the
// payload is usually followed (and sometimes preceded) by filler bytes '00' or 'FF'.
// A strict decoder such as bertlv.Decode rejects those buffers as a whole, while
// a card reader only needs the first occurrence of a given tag.
//
// The Cursor walks a buffer one object at a time:
//  1. Skip filler bytes ('00' and 'FF').
//  2. Read the tag. If bits 5-1 of the first byte are all set, the tag continues
//     on the following bytes for as long as their bit 8 is set.
//  3. Read the length. Short form (bit 8 = 0) is the length itself; long form
//     (bit 8 = 1) gives in bits 7-1 the number of length bytes that follow (big-endian).
//  4. Expose the value and move past it.
//
// Any object whose header or value would run past the end of the buffer stops the walk.

// maxLengthOctets bounds the long-form length. Four octets already exceed any buffer a card returns.
const maxLengthOctets = 4

// Object is one TLV object located by the Cursor. Value aliases the scanned buffer.
type Object struct {
	Tag      uint32 // Tag bytes accumulated big-endian (e.g. 0x9F0C)
	TagBytes int    // Number of bytes in the tag field
	Value    []byte
}

// IsSimple reports whether the tag fits in a single byte.
func (o Object) IsSimple() bool {
	return o.TagBytes == 1
}

// Constructed reports whether bit 6 of the first tag byte marks a constructed object.
func (o Object) Constructed() bool {
	first := byte(o.Tag >> (8 * uint(o.TagBytes-1)))
	return first&0x20 != 0
}

// Cursor is a forward-only reader over a length-bounded buffer.
type Cursor struct {
	data []byte
	off  int
	done bool
}

// NewCursor creates a Cursor positioned at the start of data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Offset returns the current read position.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.off
}

// Next returns the next object. It returns false at the end of the buffer or as
// soon as a truncated or malformed header is met; the cursor then stays exhausted.
func (c *Cursor) Next() (Object, bool) {
	if c.done {
		return Object{}, false
	}

	obj, ok := c.next()
	if !ok {
		c.done = true
		c.off = len(c.data)
	}
	return obj, ok
}

func (c *Cursor) next() (Object, bool) {
	for c.off < len(c.data) && (c.data[c.off] == 0x00 || c.data[c.off] == 0xFF) {
		c.off++
	}
	if c.off >= len(c.data) {
		return Object{}, false
	}

	tag, tagBytes, ok := c.readTag()
	if !ok {
		return Object{}, false
	}

	length, ok := c.readLength()
	if !ok {
		return Object{}, false
	}

	if length < 0 || length > c.Remaining() {
		return Object{}, false
	}

	value := c.data[c.off : c.off+length : c.off+length]
	c.off += length

	return Object{Tag: tag, TagBytes: tagBytes, Value: value}, true
}

func (c *Cursor) readTag() (uint32, int, bool) {
	first := c.data[c.off]
	c.off++

	tag := uint32(first)
	count := 1

	if first&0x1F != 0x1F {
		return tag, count, true
	}

	for {
		if c.off >= len(c.data) {
			return 0, 0, false
		}
		b := c.data[c.off]
		c.off++
		tag = tag<<8 | uint32(b)
		count++
		if b&0x80 == 0 {
			return tag, count, true
		}
	}
}

func (c *Cursor) readLength() (int, bool) {
	if c.off >= len(c.data) {
		return 0, false
	}

	first := c.data[c.off]
	c.off++

	if first&0x80 == 0 {
		return int(first), true
	}

	octets := int(first & 0x7F)
	// '80' is the indefinite form, never used on SIM files.
	if octets == 0 || octets > maxLengthOctets || octets > c.Remaining() {
		return 0, false
	}

	length := 0
	for i := 0; i < octets; i++ {
		length = length<<8 | int(c.data[c.off])
		c.off++
	}
	return length, true
}

// Find scans data for the first object carrying the single-byte tag and returns its value.
// Multi-byte tags are stepped over but never match.
func Find(data []byte, tag byte) ([]byte, bool) {
	c := NewCursor(data)
	for {
		obj, ok := c.Next()
		if !ok {
			return nil, false
		}
		if obj.IsSimple() && byte(obj.Tag) == tag {
			return obj.Value, true
		}
	}
}

// FindPath descends through nested constructed objects, one tag per level.
// FindPath(data, 0x62, 0x82) returns the file descriptor inside an FCP template.
func FindPath(data []byte, tags ...byte) ([]byte, bool) {
	value := data
	for _, tag := range tags {
		var ok bool
		if value, ok = Find(value, tag); !ok {
			return nil, false
		}
	}
	return value, true
}
