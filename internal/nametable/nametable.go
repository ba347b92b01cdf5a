// Package nametable implements the indexed string table spec §4.F
// describes as shared by name/destinations/pronunciation/ref/exits
// strings: strings are grouped into blocks of B (16), readers compute
// block = id/(B+1), inner = id mod (B+1), and walk a per-block length
// prefix to find the (offset, length) of entry id without touching any
// other block. This trades one implicit length per block (the block's
// last entry's length is never stored — it is recovered from where the
// next block starts) for roughly one prefix byte per two table entries.
//
// Grounded on original_source/include/util/indexed_data.hpp
// (IndexedData<GroupBlock>, VariableGroupBlock, FixedGroupBlock): this
// package keeps that design's block math and the two named encodings,
// but is not a byte-for-byte port of the C++ template — the bit-packing
// order inside each block's descriptor is this package's own, since nothing
// outside this package ever needs to match the original binary layout bit
// for bit, only the documented block/inner addressing and round-trip
// correctness (spec §8 invariant 6).
package nametable

import (
	"encoding/binary"
	"fmt"
)

// BlockSize is B from spec §4.F.
const BlockSize = 16

// Encoding selects which of the two block encodings Build uses.
type Encoding int

const (
	// VariableGroupBlock packs a 2-bit length-class per explicit entry
	// into a uint32 descriptor (0=empty, 1=1 byte, 2=2 bytes, 3=3 bytes),
	// and stores only that many length bytes per entry. Best when string
	// lengths vary widely (e.g. road names).
	VariableGroupBlock Encoding = iota
	// FixedGroupBlock stores one full byte per explicit entry (0..255),
	// BlockSize bytes for every full block. Best when every string
	// is short and roughly uniform in length.
	FixedGroupBlock
)

// ErrDataTooLarge is returned by Build when a string's length exceeds
// what the chosen encoding can represent (3 bytes / at most 16,777,215
// for variable, 1 byte / at most 255 for fixed), whether the entry's
// length is stored or implicit — spec §4.F's "fatal build error."
type ErrDataTooLarge struct {
	Encoding Encoding
	Index    int
	Length   int
}

func (e *ErrDataTooLarge) Error() string {
	return fmt.Sprintf("nametable: string %d has length %d, too large for encoding %d", e.Index, e.Length, e.Encoding)
}

// blockRef is the per-block reference record: Offset into the values
// buffer where this block's (prefix, data) region starts, and Explicit,
// the number of entries in this block with a stored length — the
// block's last entry (local index == Explicit) always has an implicit
// length, recovered from the next block's offset (or the end of the
// values buffer for the final block).
type blockRef struct {
	Offset     uint32
	Explicit   int
	Descriptor uint32 // only meaningful for VariableGroupBlock
}

// Table is a built indexed string table, ready for At lookups.
type Table struct {
	encoding   Encoding
	numStrings uint32
	refs       []blockRef
	values     []byte // concatenated (prefix, data) per block
}

// Build encodes strings into a Table using the given encoding. Strings
// are assigned ids 0..len(strings)-1 in order.
func Build(strings []string, encoding Encoding) (*Table, error) {
	t := &Table{encoding: encoding, numStrings: uint32(len(strings))}
	n := len(strings)
	if n == 0 {
		return t, nil
	}

	const stride = BlockSize + 1
	numBlocks := (n + stride - 1) / stride

	for k := 0; k < numBlocks; k++ {
		startID := k * stride
		endID := startID + stride
		if endID > n {
			endID = n
		}
		cnt := endID - startID
		explicitCount := cnt - 1 // the block's last entry is always implicit

		// The implicit last entry's length is never stored, but it is held
		// to the same per-encoding limit as the explicit entries.
		if l := len(strings[endID-1]); (encoding == FixedGroupBlock && l > 255) || (encoding == VariableGroupBlock && l >= 1<<24) {
			return nil, &ErrDataTooLarge{Encoding: encoding, Index: endID - 1, Length: l}
		}

		blockOffset := uint32(len(t.values))
		ref := blockRef{Offset: blockOffset, Explicit: explicitCount}

		switch encoding {
		case VariableGroupBlock:
			for i := 0; i < explicitCount; i++ {
				l := len(strings[startID+i])
				bl, err := variableByteLen(l)
				if err != nil {
					return nil, &ErrDataTooLarge{Encoding: encoding, Index: startID + i, Length: l}
				}
				ref.Descriptor |= uint32(bl) << uint(2*i)
			}
			t.refs = append(t.refs, ref)
			for i := 0; i < explicitCount; i++ {
				l := len(strings[startID+i])
				bl, _ := variableByteLen(l)
				for b := 0; b < bl; b++ {
					t.values = append(t.values, byte(l>>(8*uint(b))))
				}
			}
		case FixedGroupBlock:
			prefix := make([]byte, explicitCount)
			for i := 0; i < explicitCount; i++ {
				l := len(strings[startID+i])
				if l > 255 {
					return nil, &ErrDataTooLarge{Encoding: encoding, Index: startID + i, Length: l}
				}
				prefix[i] = byte(l)
			}
			t.refs = append(t.refs, ref)
			t.values = append(t.values, prefix...)
		default:
			return nil, fmt.Errorf("nametable: unknown encoding %d", encoding)
		}

		for i := 0; i < cnt; i++ {
			t.values = append(t.values, strings[startID+i]...)
		}
	}

	return t, nil
}

// variableByteLen returns ceil(log256(length+1)), i.e. how many bytes are
// needed to store length as a little-endian integer: 0 for an empty
// string, 1 for <256, 2 for <65536, 3 for <16777216.
func variableByteLen(length int) (int, error) {
	switch {
	case length == 0:
		return 0, nil
	case length < 1<<8:
		return 1, nil
	case length < 1<<16:
		return 2, nil
	case length < 1<<24:
		return 3, nil
	default:
		return 0, fmt.Errorf("nametable: length %d exceeds variable encoding's 3-byte limit", length)
	}
}

// Encoding reports which block encoding the table was built with, so a
// caller persisting a Table (internal/graphfile) knows what to pass back
// into UnmarshalTable.
func (t *Table) Encoding() Encoding { return t.encoding }

// MarshalBinary serializes the table to a self-contained byte blob: a
// block count, each block's (Offset, Explicit, Descriptor) as fixed
// little-endian fields, then the raw values buffer — independent of
// internal/tarstore's fixed-size unsafe.Sizeof framing, since blockRef's
// Explicit field is a platform-width int and has no stable in-memory
// layout to copy directly.
func (t *Table) MarshalBinary() []byte {
	buf := make([]byte, 4, 4+len(t.refs)*12+len(t.values))
	binary.LittleEndian.PutUint32(buf, uint32(len(t.refs)))
	for _, r := range t.refs {
		var rec [12]byte
		binary.LittleEndian.PutUint32(rec[0:4], r.Offset)
		binary.LittleEndian.PutUint32(rec[4:8], uint32(r.Explicit))
		binary.LittleEndian.PutUint32(rec[8:12], r.Descriptor)
		buf = append(buf, rec[:]...)
	}
	buf = append(buf, t.values...)
	return buf
}

// UnmarshalTable reverses MarshalBinary. encoding and numStrings are
// carried alongside the blob by the caller (internal/graphfile keeps
// them in its fixed-size meta entry) since they aren't self-describing
// in the byte stream.
func UnmarshalTable(encoding Encoding, numStrings uint32, data []byte) (*Table, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("nametable: blob too short for block count")
	}
	numBlocks := binary.LittleEndian.Uint32(data)
	pos := 4
	refs := make([]blockRef, numBlocks)
	for i := range refs {
		if pos+12 > len(data) {
			return nil, fmt.Errorf("nametable: blob truncated at block %d", i)
		}
		refs[i].Offset = binary.LittleEndian.Uint32(data[pos : pos+4])
		refs[i].Explicit = int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		refs[i].Descriptor = binary.LittleEndian.Uint32(data[pos+8 : pos+12])
		pos += 12
	}
	values := append([]byte(nil), data[pos:]...)
	return &Table{encoding: encoding, numStrings: numStrings, refs: refs, values: values}, nil
}

// Len returns the number of strings in the table.
func (t *Table) Len() uint32 { return t.numStrings }

// At returns the string stored at id.
func (t *Table) At(id uint32) (string, error) {
	if id >= t.numStrings {
		return "", fmt.Errorf("nametable: id %d out of range [0,%d)", id, t.numStrings)
	}
	const stride = BlockSize + 1
	block := id / stride
	inner := int(id % stride)

	ref := t.refs[block]
	blockEnd := uint32(len(t.values))
	if int(block)+1 < len(t.refs) {
		blockEnd = t.refs[block+1].Offset
	}
	data := t.values[ref.Offset:blockEnd]

	switch t.encoding {
	case VariableGroupBlock:
		return atVariable(data, ref, inner)
	case FixedGroupBlock:
		return atFixed(data, ref, inner)
	default:
		return "", fmt.Errorf("nametable: unknown encoding %d", t.encoding)
	}
}

// atVariable locates entry `inner` within a block's (prefix, data) bytes.
// It always walks the full prefix (0..ref.Explicit-1) once: that both
// finds inner's own length (if inner is explicit) and accumulates the
// data-area offset where inner's bytes begin.
func atVariable(data []byte, ref blockRef, inner int) (string, error) {
	prefixPos := 0
	dataOffset := 0
	itemLen := 0
	for i := 0; i < ref.Explicit; i++ {
		bl := int((ref.Descriptor >> uint(2*i)) & 0x3)
		l := readVarLen(data, prefixPos, bl)
		if i == inner {
			itemLen = l
		}
		prefixPos += bl
		if i < inner {
			dataOffset += l
		}
	}
	dataStart := prefixPos + dataOffset
	if inner < ref.Explicit {
		return string(data[dataStart : dataStart+itemLen]), nil
	}
	// inner == ref.Explicit: the block's implicit last entry, running to
	// the end of this block's region.
	return string(data[dataStart:]), nil
}

// readVarLen reads bl little-endian length bytes at data[pos:], returning
// 0 if bl==0 (an explicitly empty string).
func readVarLen(data []byte, pos, bl int) int {
	l := 0
	for b := 0; b < bl; b++ {
		l |= int(data[pos+b]) << uint(8*b)
	}
	return l
}

func atFixed(data []byte, ref blockRef, inner int) (string, error) {
	prefix := data[:ref.Explicit]
	pos := ref.Explicit
	dataOffset := 0
	for i := 0; i < inner && i < ref.Explicit; i++ {
		dataOffset += int(prefix[i])
	}
	dataStart := pos + dataOffset
	if inner < ref.Explicit {
		l := int(prefix[inner])
		return string(data[dataStart : dataStart+l]), nil
	}
	return string(data[dataStart:]), nil
}
