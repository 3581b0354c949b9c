package segment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_EncodeDataRecord_RejectsEmptyKey(t *testing.T) {
	t.Parallel()

	_, _, err := encodeDataRecord(1, nil, []byte("value"))
	require.Error(t, err)
}

func Test_EncodeDataRecord_RejectsOversizedKey(t *testing.T) {
	t.Parallel()

	key := make([]byte, maxKeySize+1)
	_, _, err := encodeDataRecord(1, key, []byte("value"))
	require.Error(t, err)
}

func Test_EncodeDataRecord_RoundTripsThroughVerify(t *testing.T) {
	t.Parallel()

	key := []byte("hello")
	value := []byte("world")

	buf, valueOffset, err := encodeDataRecord(42, key, value)
	require.NoError(t, err)
	require.Equal(t, dataHeaderSize+len(key), valueOffset)
	require.Equal(t, value, buf[valueOffset:])

	crc := uint16(buf[0]) | uint16(buf[1])<<8
	ok := verifyDataCRC(crc, 42, uint8(len(key)), uint32(len(value)), key, value)
	require.True(t, ok, "CRC computed by encodeDataRecord must verify")
}

func Test_VerifyDataCRC_RejectsTamperedValue(t *testing.T) {
	t.Parallel()

	key := []byte("hello")
	value := []byte("world")

	buf, _, err := encodeDataRecord(42, key, value)
	require.NoError(t, err)

	crc := uint16(buf[0]) | uint16(buf[1])<<8
	tampered := append([]byte(nil), value...)
	tampered[0] ^= 0xFF

	ok := verifyDataCRC(crc, 42, uint8(len(key)), uint32(len(value)), key, tampered)
	require.False(t, ok)
}

func Test_Record_IsTombstone(t *testing.T) {
	t.Parallel()

	require.True(t, Record{Value: nil}.IsTombstone())
	require.True(t, Record{Value: []byte{}}.IsTombstone())
	require.False(t, Record{Value: []byte("x")}.IsTombstone())
}

func Test_HintRecord_IsTombstone(t *testing.T) {
	t.Parallel()

	require.True(t, HintRecord{ValueSize: 0}.IsTombstone())
	require.False(t, HintRecord{ValueSize: 1}.IsTombstone())
}
