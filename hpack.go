package http2

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// defaultMaxTableSize is the dynamic table size a fresh HPACK starts with,
// matching the SETTINGS_HEADER_TABLE_SIZE default.
//
// https://tools.ietf.org/html/rfc7541#section-4.2
const defaultMaxTableSize = 4096

// HPACK holds one direction (encode or decode) of header compression state
// for a connection: the dynamic table and the scratch field list populated
// by Add/Read.
//
// Use AcquireHPACK to obtain one from the pool.
type HPACK struct {
	// fields holds the header list built by Add (encoding) or Read
	// (decoding). Read does not clear it between calls; releaseFields does.
	fields []*HeaderField

	// dynamic is the dynamic table, newest entry first. Combined index
	// 62+i addresses dynamic[i].
	dynamic []*HeaderField

	tableSize    int
	maxTableSize int

	// DisableCompression turns off Huffman coding of literal strings.
	DisableCompression bool
}

var hpackPool = sync.Pool{
	New: func() interface{} {
		return &HPACK{maxTableSize: defaultMaxTableSize}
	},
}

// AcquireHPACK returns an HPACK from the pool, ready to use.
func AcquireHPACK() *HPACK {
	return hpackPool.Get().(*HPACK)
}

// ReleaseHPACK resets hp and returns it to the pool.
func ReleaseHPACK(hp *HPACK) {
	hp.Reset()
	hpackPool.Put(hp)
}

// Reset releases every field and dynamic table entry and restores defaults.
func (hp *HPACK) Reset() {
	hp.releaseFields()

	for _, hf := range hp.dynamic {
		ReleaseHeaderField(hf)
	}
	hp.dynamic = hp.dynamic[:0]

	hp.tableSize = 0
	hp.maxTableSize = defaultMaxTableSize
	hp.DisableCompression = false
}

// SetMaxTableSize sets the maximum byte size of the dynamic table, evicting
// entries if necessary.
//
// https://tools.ietf.org/html/rfc7541#section-4.2
func (hp *HPACK) SetMaxTableSize(n int) {
	hp.maxTableSize = n
	hp.evictDynamic()
}

// Add queues a header field for the next Write call.
func (hp *HPACK) Add(k, v string) {
	hf := AcquireHeaderField()
	hf.SetKey(k)
	hf.SetValue(v)
	hp.fields = append(hp.fields, hf)
}

// releaseFields returns every queued or decoded field to the pool without
// touching the dynamic table.
func (hp *HPACK) releaseFields() {
	for _, hf := range hp.fields {
		ReleaseHeaderField(hf)
	}
	hp.fields = hp.fields[:0]
}

// Write encodes every field added with Add, in order, and appends the
// result to dst. Fields are left in place; call releaseFields to clear them.
func (hp *HPACK) Write(dst []byte) ([]byte, error) {
	for _, hf := range hp.fields {
		dst = hp.AppendHeader(dst, hf, true)
	}
	return dst, nil
}

// Read decodes a complete header block from b into hp.fields, updating the
// dynamic table as it goes.
func (hp *HPACK) Read(b []byte) ([]byte, error) {
	var err error
	for len(b) > 0 {
		hf := AcquireHeaderField()
		b, err = hp.Next(hf, b)
		if err != nil {
			ReleaseHeaderField(hf)
			return b, err
		}
		hp.fields = append(hp.fields, hf)
	}
	return b, nil
}

// addDynamic inserts a new entry at the front of the dynamic table and
// evicts from the back until the table fits its byte budget.
//
// https://tools.ietf.org/html/rfc7541#section-4.4
func (hp *HPACK) addDynamic(name, value []byte) {
	hf := AcquireHeaderField()
	hf.SetKeyBytes(name)
	hf.SetValueBytes(value)

	hp.dynamic = append(hp.dynamic, nil)
	copy(hp.dynamic[1:], hp.dynamic)
	hp.dynamic[0] = hf

	hp.tableSize += hf.Size()
	hp.evictDynamic()
}

func (hp *HPACK) evictDynamic() {
	for hp.tableSize > hp.maxTableSize && len(hp.dynamic) > 0 {
		last := len(hp.dynamic) - 1
		hp.tableSize -= hp.dynamic[last].Size()
		ReleaseHeaderField(hp.dynamic[last])
		hp.dynamic = hp.dynamic[:last]
	}
}

// searchDynamicExact returns the combined index of a dynamic entry whose
// name and value both match, if any.
func (hp *HPACK) searchDynamicExact(name, value []byte) (int, bool) {
	for i, hf := range hp.dynamic {
		if bytes.Equal(hf.key, name) && bytes.Equal(hf.value, value) {
			return len(staticTable) + 1 + i, true
		}
	}
	return 0, false
}

// searchDynamicName returns the combined index of a dynamic entry whose
// name matches, if any.
func (hp *HPACK) searchDynamicName(name []byte) (int, bool) {
	for i, hf := range hp.dynamic {
		if bytes.Equal(hf.key, name) {
			return len(staticTable) + 1 + i, true
		}
	}
	return 0, false
}

// lookup resolves a combined index (1-based, static table followed by
// dynamic table) to the name/value it addresses.
func (hp *HPACK) lookup(idx int) (name, value []byte, err error) {
	if idx <= 0 {
		return nil, nil, ErrCompression
	}
	if idx <= len(staticTable) {
		e := staticTable[idx-1]
		return e.key, e.value, nil
	}
	pos := idx - len(staticTable) - 1
	if pos < 0 || pos >= len(hp.dynamic) {
		return nil, nil, ErrCompression
	}
	e := hp.dynamic[pos]
	return e.key, e.value, nil
}

// AppendHeader encodes hf and appends the result to dst. When store is
// true and hf isn't already a table hit, hf is also inserted into the
// dynamic table using incremental indexing; otherwise it's encoded as a
// literal that leaves the table untouched. Sensitive fields are always
// encoded as never-indexed, regardless of store.
//
// https://tools.ietf.org/html/rfc7541#section-6
func (hp *HPACK) AppendHeader(dst []byte, hf *HeaderField, store bool) []byte {
	name, value := hf.key, hf.value
	huffman := !hp.DisableCompression

	if !hf.sensitive {
		if idx, ok := staticNameValueIndex[string(name)+"\x00"+string(value)]; ok {
			return appendIndexed(dst, idx)
		}
		if idx, ok := hp.searchDynamicExact(name, value); ok {
			return appendIndexed(dst, idx)
		}
	}

	nameIdx := 0
	if idx, ok := staticNameIndex[string(name)]; ok {
		nameIdx = idx
	} else if idx, ok := hp.searchDynamicName(name); ok {
		nameIdx = idx
	}

	switch {
	case hf.sensitive:
		dst = appendLiteral(dst, 0x10, 4, nameIdx, name, value, huffman)
	case store:
		dst = appendLiteral(dst, 0x40, 6, nameIdx, name, value, huffman)
		hp.addDynamic(name, value)
	default:
		dst = appendLiteral(dst, 0x00, 4, nameIdx, name, value, huffman)
	}

	return dst
}

// appendLiteral appends one of the three literal header field
// representations (incremental indexing, without indexing, never indexed),
// distinguished by typeBits/prefixLen.
func appendLiteral(dst []byte, typeBits byte, prefixLen uint, nameIdx int, name, value []byte, huffman bool) []byte {
	if nameIdx == 0 {
		dst = append(dst, typeBits)
		dst = writeString(dst, name, huffman)
	} else {
		pos := len(dst)
		dst = appendVarInt(dst, prefixLen, uint64(nameIdx))
		dst[pos] |= typeBits
	}
	return writeString(dst, value, huffman)
}

func appendIndexed(dst []byte, idx int) []byte {
	pos := len(dst)
	dst = appendVarInt(dst, 7, uint64(idx))
	dst[pos] |= 0x80
	return dst
}

// Next decodes a single header field representation from b into hf,
// transparently consuming any dynamic table size updates that precede it.
//
// https://tools.ietf.org/html/rfc7541#section-6
func (hp *HPACK) Next(hf *HeaderField, b []byte) ([]byte, error) {
	for {
		if len(b) == 0 {
			return b, io.EOF
		}

		c := b[0]
		var idx uint64
		var err error

		switch {
		case c&0x80 != 0: // indexed header field
			b, idx, err = readInt(7, b)
			if err != nil {
				return b, err
			}
			name, value, lerr := hp.lookup(int(idx))
			if lerr != nil {
				return b, lerr
			}
			hf.key = append(hf.key[:0], name...)
			hf.value = append(hf.value[:0], value...)
			hf.sensitive = false
			return b, nil

		case c&0xc0 == 0x40: // literal with incremental indexing
			b, idx, err = readInt(6, b)
			if err != nil {
				return b, err
			}
			b, err = hp.readLiteral(hf, int(idx), b)
			if err != nil {
				return b, err
			}
			hf.sensitive = false
			hp.addDynamic(hf.key, hf.value)
			return b, nil

		case c&0xf0 == 0x00: // literal without indexing
			b, idx, err = readInt(4, b)
			if err != nil {
				return b, err
			}
			b, err = hp.readLiteral(hf, int(idx), b)
			hf.sensitive = false
			return b, err

		case c&0xf0 == 0x10: // literal never indexed
			b, idx, err = readInt(4, b)
			if err != nil {
				return b, err
			}
			b, err = hp.readLiteral(hf, int(idx), b)
			hf.sensitive = true
			return b, err

		case c&0xe0 == 0x20: // dynamic table size update
			b, idx, err = readInt(5, b)
			if err != nil {
				return b, err
			}
			hp.SetMaxTableSize(int(idx))
			continue

		default:
			return b, ErrCompression
		}
	}
}

func (hp *HPACK) readLiteral(hf *HeaderField, idx int, b []byte) ([]byte, error) {
	var err error
	if idx == 0 {
		hf.key, b, err = readString(hf.key[:0], b)
		if err != nil {
			return b, err
		}
	} else {
		name, _, lerr := hp.lookup(idx)
		if lerr != nil {
			return b, lerr
		}
		hf.key = append(hf.key[:0], name...)
	}

	hf.value, b, err = readString(hf.value[:0], b)
	return b, err
}

// appendVarInt true-appends i's HPACK integer representation to dst, using
// the low n bits of the first byte as prefix. The caller is responsible for
// OR-ing any representation-specific bits into that first byte afterward.
//
// https://tools.ietf.org/html/rfc7541#section-5.1
func appendVarInt(dst []byte, n uint, i uint64) []byte {
	max := uint64(1)<<n - 1

	if i < max {
		return append(dst, byte(i))
	}

	dst = append(dst, byte(max))
	i -= max
	for i >= 128 {
		dst = append(dst, byte(0x80|(i&0x7f)))
		i >>= 7
	}
	return append(dst, byte(i))
}

// writeInt and appendInt encode i from index 0 of dst, discarding whatever
// was there before; dst's backing array is only reused as scratch space.
func writeInt(dst []byte, n uint, i uint64) []byte {
	return appendVarInt(dst[:0], n, i)
}

func appendInt(dst []byte, n uint, i uint64) []byte {
	return appendVarInt(dst[:0], n, i)
}

// readInt decodes an HPACK integer with an n-bit prefix from the front of
// b, returning the remaining bytes and the decoded value.
//
// https://tools.ietf.org/html/rfc7541#section-5.1
func readInt(n int, b []byte) ([]byte, uint64, error) {
	if len(b) == 0 {
		return b, 0, ErrMissingBytes
	}

	max := uint64(1)<<uint(n) - 1
	val := uint64(b[0]) & max
	b = b[1:]

	if val < max {
		return b, val, nil
	}

	var m uint
	for len(b) > 0 {
		c := b[0]
		b = b[1:]
		val += uint64(c&0x7f) << m
		if c&0x80 == 0 {
			return b, val, nil
		}
		m += 7
		if m >= 63 {
			return b, 0, ErrBitOverflow
		}
	}

	return b, 0, ErrMissingBytes
}

// readIntFrom is readInt reading one byte at a time from br instead of a
// byte slice, for streaming frame payloads.
func readIntFrom(n int, br *bufio.Reader) (uint64, error) {
	c, err := br.ReadByte()
	if err != nil {
		return 0, err
	}

	max := uint64(1)<<uint(n) - 1
	val := uint64(c) & max
	if val < max {
		return val, nil
	}

	var m uint
	for {
		c, err = br.ReadByte()
		if err != nil {
			return 0, err
		}
		val += uint64(c&0x7f) << m
		if c&0x80 == 0 {
			return val, nil
		}
		m += 7
		if m >= 63 {
			return 0, ErrBitOverflow
		}
	}
}

// writeString true-appends src to dst as an HPACK string, Huffman-coding it
// first when huffman is set.
//
// https://tools.ietf.org/html/rfc7541#section-5.2
func writeString(dst, src []byte, huffman bool) []byte {
	if !huffman {
		dst = appendVarInt(dst, 7, uint64(len(src)))
		return append(dst, src...)
	}

	pos := len(dst)
	dst = appendVarInt(dst, 7, uint64(huffmanEncodedLen(src)))
	dst[pos] |= 0x80
	return appendHuffman(dst, src)
}

// readString decodes an HPACK string from the front of src, appending the
// decoded bytes to dst and returning the remaining input.
func readString(dst, src []byte) ([]byte, []byte, error) {
	if len(src) == 0 {
		return dst, src, ErrMissingBytes
	}

	huffman := src[0]&0x80 != 0

	rest, n, err := readInt(7, src)
	if err != nil {
		return dst, rest, err
	}
	if uint64(len(rest)) < n {
		return dst, rest, ErrMissingBytes
	}

	data := rest[:n]
	rest = rest[n:]

	if huffman {
		dst, err = huffmanDecode(dst, data)
	} else {
		dst = append(dst, data...)
	}

	return dst, rest, err
}
