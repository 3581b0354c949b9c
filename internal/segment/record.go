// Package segment implements the on-disk log format: append-only data
// files holding (key, value) records, and their hint-file companions
// holding compact (key -> locator) entries for fast startup recovery.
//
// Both file kinds are little-endian, fixed-header-plus-variable-payload
// logs, and both expose a Next()/Record()/Err() scanner cursor for the
// one-pass sequential replay the engine performs at startup — mirroring
// the Rust Iterator implementations this format was distilled from, but
// in the cursor shape other Go log-structured stores commonly use.
package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// dataHeaderSize is the fixed-width prefix of every data record:
// crc(2) + timestamp(4) + key_size(1) + value_size(4).
const dataHeaderSize = 11

// hintHeaderSize is the fixed-width prefix of every hint record:
// timestamp(4) + key_size(1) + value_size(4) + value_pos(8).
const hintHeaderSize = 17

// maxKeySize is the largest key length the single-byte key_size field can
// represent.
const maxKeySize = 255

// Record is a decoded data-file entry. A zero-length Value marks a
// tombstone (a delete), distinguishing it from a legitimate empty value —
// kegdb never stores empty-but-present values, so this is unambiguous.
type Record struct {
	Timestamp uint32
	Key       []byte
	Value     []byte
}

// IsTombstone reports whether this record represents a deletion.
func (r Record) IsTombstone() bool {
	return len(r.Value) == 0
}

// HintRecord is a decoded hint-file entry: everything needed to populate a
// directory entry without reading the data file's value bytes.
type HintRecord struct {
	Timestamp uint32
	ValuePos  uint64
	ValueSize uint32
	Key       []byte
}

// IsTombstone reports whether this hint entry represents a deletion.
func (h HintRecord) IsTombstone() bool {
	return h.ValueSize == 0
}

// encodeDataRecord builds the on-disk bytes for one data record and
// reports the offset within that byte slice where the value begins, so the
// caller can translate it into an absolute file offset (value_pos).
func encodeDataRecord(timestamp uint32, key, value []byte) (buf []byte, valueOffset int, err error) {
	if len(key) == 0 {
		return nil, 0, fmt.Errorf("segment: key must not be empty")
	}
	if len(key) > maxKeySize {
		return nil, 0, fmt.Errorf("segment: key length %d exceeds maximum %d", len(key), maxKeySize)
	}

	keySize := uint8(len(key))
	valueSize := uint32(len(value))

	crc := crc32.NewIEEE()
	var scratch [9]byte
	binary.LittleEndian.PutUint32(scratch[0:4], timestamp)
	scratch[4] = keySize
	binary.LittleEndian.PutUint32(scratch[5:9], valueSize)
	crc.Write(scratch[:])
	crc.Write(key)
	crc.Write(value)

	buf = make([]byte, dataHeaderSize+len(key)+len(value))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(crc.Sum32()))
	copy(buf[2:11], scratch[:])
	copy(buf[dataHeaderSize:], key)
	copy(buf[dataHeaderSize+len(key):], value)

	return buf, dataHeaderSize + len(key), nil
}

// encodeHintRecord builds the on-disk bytes for one hint record.
func encodeHintRecord(timestamp uint32, valuePos uint64, valueSize uint32, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("segment: key must not be empty")
	}
	if len(key) > maxKeySize {
		return nil, fmt.Errorf("segment: key length %d exceeds maximum %d", len(key), maxKeySize)
	}

	buf := make([]byte, hintHeaderSize+len(key))
	binary.LittleEndian.PutUint32(buf[0:4], timestamp)
	buf[4] = uint8(len(key))
	binary.LittleEndian.PutUint32(buf[5:9], valueSize)
	binary.LittleEndian.PutUint64(buf[9:17], valuePos)
	copy(buf[hintHeaderSize:], key)

	return buf, nil
}

// verifyDataCRC reports whether the stored crc matches the one computed
// over the same fields encodeDataRecord feeds into the checksum.
func verifyDataCRC(stored uint16, timestamp uint32, keySize uint8, valueSize uint32, key, value []byte) bool {
	crc := crc32.NewIEEE()
	var scratch [9]byte
	binary.LittleEndian.PutUint32(scratch[0:4], timestamp)
	scratch[4] = keySize
	binary.LittleEndian.PutUint32(scratch[5:9], valueSize)
	crc.Write(scratch[:])
	crc.Write(key)
	crc.Write(value)
	return uint16(crc.Sum32()) == stored
}
