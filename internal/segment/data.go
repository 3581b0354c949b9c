package segment

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/iamNilotpal/kegdb/pkg/errors"
	"github.com/iamNilotpal/kegdb/pkg/seginfo"
	"go.uber.org/zap"
)

// DataFile is the append-only (key, value) log for one segment. An active
// DataFile holds two independent file descriptions on the same path: an
// O_APPEND writer used only by Append, and a read-only handle used only by
// ReadExact through ReadAt. Because ReadAt is positional (pread), concurrent
// reads never race the writer's append position — this is what lets the
// engine serve Get under a shared lock while Put holds the exclusive one.
type DataFile struct {
	id     uint32
	path   string
	writer *os.File // nil once the segment is sealed.
	reader *os.File
	size   int64 // meaningful only while writer != nil.
	log    *zap.SugaredLogger
}

// CreateActiveDataFile opens (creating if necessary) the data file for id as
// the writable, currently-active segment.
func CreateActiveDataFile(dir string, id uint32, log *zap.SugaredLogger) (*DataFile, error) {
	path := filepath.Join(dir, seginfo.DataName(id))

	writer, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, seginfo.DataName(id))
	}

	stat, err := writer.Stat()
	if err != nil {
		writer.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat data file").
			WithSegmentID(int(id)).WithPath(path)
	}

	reader, err := os.Open(path)
	if err != nil {
		writer.Close()
		return nil, errors.ClassifyFileOpenError(err, path, seginfo.DataName(id))
	}

	log.Infow("opened active data file", "segmentId", id, "path", path, "size", stat.Size())
	return &DataFile{id: id, path: path, writer: writer, reader: reader, size: stat.Size(), log: log}, nil
}

// OpenSealedDataFile opens the data file for id as a read-only, sealed
// segment: no Append, no writer handle at all.
func OpenSealedDataFile(dir string, id uint32, log *zap.SugaredLogger) (*DataFile, error) {
	path := filepath.Join(dir, seginfo.DataName(id))

	reader, err := os.Open(path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, seginfo.DataName(id))
	}

	return &DataFile{id: id, path: path, reader: reader, log: log}, nil
}

// ID returns this segment's id.
func (f *DataFile) ID() uint32 { return f.id }

// Size returns the current size of the active segment in bytes. Only
// meaningful for the active segment; a segment opened with
// OpenSealedDataFile returns 0, and one sealed via Seal keeps its last size.
func (f *DataFile) Size() int64 { return f.size }

// Sealed reports whether this DataFile has no writer (either opened that
// way, or sealed via Seal).
func (f *DataFile) Sealed() bool { return f.writer == nil }

// Append writes one data record to the end of the segment and returns the
// absolute file offset at which its value bytes begin — the value_pos
// recorded in the directory and in the hint file. Append returns an error if
// called on a sealed DataFile; callers never do this, since rollover always
// moves to a newly created active segment before the next write.
func (f *DataFile) Append(timestamp uint32, key, value []byte) (valuePos uint64, err error) {
	if f.writer == nil {
		return 0, errors.NewStorageError(nil, errors.ErrorCodeInternal, "append on sealed segment").
			WithSegmentID(int(f.id))
	}

	buf, valueOffset, err := encodeDataRecord(timestamp, key, value)
	if err != nil {
		return 0, err
	}

	n, err := f.writer.Write(buf)
	if err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append data record").
			WithSegmentID(int(f.id)).WithPath(f.path).WithOffset(int(f.size))
	}

	base := f.size
	f.size += int64(n)

	return uint64(base + int64(valueOffset)), nil
}

// ReadExact reads size bytes starting at offset, returning them as a new
// slice. Safe to call concurrently with Append and with other ReadExact
// calls on the same DataFile, since it always goes through the dedicated
// read-only handle via pread.
func (f *DataFile) ReadExact(offset uint64, size uint32) ([]byte, error) {
	buf := make([]byte, size)
	n, err := f.reader.ReadAt(buf, int64(offset))
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return nil, errors.NewStorageError(err, errors.ErrorCodePayloadReadFailure, "failed to read value bytes").
			WithSegmentID(int(f.id)).WithPath(f.path).WithOffset(int(offset)).WithFileName(seginfo.DataName(f.id))
	}
	return buf, nil
}

// Sync flushes the segment's writes to stable storage.
func (f *DataFile) Sync() error {
	if f.writer == nil {
		return nil
	}
	if err := f.writer.Sync(); err != nil {
		return errors.ClassifySyncError(err, seginfo.DataName(f.id), f.path, int(f.size))
	}
	return nil
}

// Seal closes the writer handle, turning this DataFile into a read-only
// sealed segment while keeping its reader open for Get.
func (f *DataFile) Seal() error {
	if f.writer == nil {
		return nil
	}
	err := f.writer.Close()
	f.writer = nil
	return err
}

// Close releases both file handles.
func (f *DataFile) Close() error {
	var firstErr error
	if f.writer != nil {
		if err := f.writer.Close(); err != nil {
			firstErr = err
		}
		f.writer = nil
	}
	if f.reader != nil {
		if err := f.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		f.reader = nil
	}
	return firstErr
}

// DataScanner performs a single forward pass over a data file, decoding one
// Record per Next() call. It stops cleanly (Next returns false, Err nil) at
// a clean end of file, and stops just as cleanly — never panicking, never
// returning a fatal error — at a torn tail: a short read or CRC mismatch
// partway through a record. Torn reports which of those two happened, so
// callers can log a warning without treating recovery as failed.
type DataScanner struct {
	file   *os.File
	offset int64

	cur         Record
	curOffset   int64
	curValueOff int64

	err  error
	torn bool
	done bool
}

// OpenDataScanner opens the data file for id for a one-pass sequential
// replay, independent of any live DataFile handle for the same segment.
func OpenDataScanner(dir string, id uint32) (*DataScanner, error) {
	path := filepath.Join(dir, seginfo.DataName(id))
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, seginfo.DataName(id))
	}
	return &DataScanner{file: file}, nil
}

// Next decodes the next record, returning false when the scan is over
// (clean EOF, torn tail, or a prior terminal error).
func (s *DataScanner) Next() bool {
	if s.done {
		return false
	}

	header := make([]byte, dataHeaderSize)
	n, err := io.ReadFull(s.file, header)
	if err != nil {
		s.done = true
		if n > 0 {
			s.torn = true
		}
		return false
	}

	crc := binary.LittleEndian.Uint16(header[0:2])
	timestamp := binary.LittleEndian.Uint32(header[2:6])
	keySize := header[6]
	valueSize := binary.LittleEndian.Uint32(header[7:11])

	key := make([]byte, keySize)
	if _, err := io.ReadFull(s.file, key); err != nil {
		s.done, s.torn = true, true
		return false
	}

	valueOffset := s.offset + dataHeaderSize + int64(keySize)

	value := make([]byte, valueSize)
	if _, err := io.ReadFull(s.file, value); err != nil {
		s.done, s.torn = true, true
		return false
	}

	if !verifyDataCRC(crc, timestamp, keySize, valueSize, key, value) {
		s.done, s.torn = true, true
		return false
	}

	s.curOffset = s.offset
	s.curValueOff = valueOffset
	s.offset = valueOffset + int64(valueSize)
	s.cur = Record{Timestamp: timestamp, Key: key, Value: value}

	return true
}

// Record returns the record decoded by the most recent successful Next.
func (s *DataScanner) Record() Record { return s.cur }

// Offset returns the file offset at which the current record started.
func (s *DataScanner) Offset() int64 { return s.curOffset }

// ValueOffset returns the absolute file offset at which the current
// record's value begins — the value_pos a hint-less recovery needs.
func (s *DataScanner) ValueOffset() int64 { return s.curValueOff }

// Torn reports whether the scan stopped because of a short read or CRC
// mismatch rather than a clean end of file.
func (s *DataScanner) Torn() bool { return s.torn }

// Err returns any non-torn-tail terminal error. Always nil in the current
// implementation — torn tails and clean EOF are both reported via Torn/Next
// rather than as errors — kept for symmetry with HintScanner and future use.
func (s *DataScanner) Err() error { return s.err }

// Close releases the scanner's file handle.
func (s *DataScanner) Close() error { return s.file.Close() }
