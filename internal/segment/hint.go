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

// HintFile is the append-only (key -> locator) companion log for one active
// segment. It exists purely to speed up startup recovery: replaying hint
// records avoids reading every value byte back off the corresponding data
// file. A HintFile is write-only while a segment is active; once sealed, a
// segment's hint file is never reopened for writing, only scanned once at
// the next startup.
type HintFile struct {
	id     uint32
	path   string
	writer *os.File
	size   int64
	log    *zap.SugaredLogger
}

// CreateActiveHintFile opens (creating if necessary) the hint file for id
// as the writable, currently-active segment's hint log.
func CreateActiveHintFile(dir string, id uint32, log *zap.SugaredLogger) (*HintFile, error) {
	path := filepath.Join(dir, seginfo.HintName(id))

	writer, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, seginfo.HintName(id))
	}

	stat, err := writer.Stat()
	if err != nil {
		writer.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat hint file").
			WithSegmentID(int(id)).WithPath(path)
	}

	log.Infow("opened active hint file", "segmentId", id, "path", path, "size", stat.Size())
	return &HintFile{id: id, path: path, writer: writer, size: stat.Size(), log: log}, nil
}

// Append writes one hint record.
func (f *HintFile) Append(timestamp uint32, valuePos uint64, valueSize uint32, key []byte) error {
	buf, err := encodeHintRecord(timestamp, valuePos, valueSize, key)
	if err != nil {
		return err
	}

	n, err := f.writer.Write(buf)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append hint record").
			WithSegmentID(int(f.id)).WithPath(f.path).WithOffset(int(f.size))
	}
	f.size += int64(n)
	return nil
}

// Sync flushes the hint file's writes to stable storage.
func (f *HintFile) Sync() error {
	if err := f.writer.Sync(); err != nil {
		return errors.ClassifySyncError(err, seginfo.HintName(f.id), f.path, int(f.size))
	}
	return nil
}

// Seal closes the writer; sealed segments never append hint records again.
func (f *HintFile) Seal() error {
	if f.writer == nil {
		return nil
	}
	err := f.writer.Close()
	f.writer = nil
	return err
}

// Close releases the hint file's handle.
func (f *HintFile) Close() error {
	return f.Seal()
}

// HintScanner performs a single forward pass over a hint file. Its Next /
// Torn / Err shape mirrors DataScanner exactly: clean EOF and torn tails
// both stop the scan without error, since recovery tolerates a half-written
// tail at either file.
type HintScanner struct {
	file *os.File
	cur  HintRecord
	err  error
	torn bool
	done bool
}

// OpenHintScanner opens the hint file for id for a one-pass replay. Returns
// an error satisfying os.IsNotExist when no hint file exists for id, so
// recovery can fall back to scanning the data file instead.
func OpenHintScanner(dir string, id uint32) (*HintScanner, error) {
	path := filepath.Join(dir, seginfo.HintName(id))
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &HintScanner{file: file}, nil
}

// Next decodes the next hint record, returning false at clean EOF, a torn
// tail, or after a prior terminal state.
func (s *HintScanner) Next() bool {
	if s.done {
		return false
	}

	header := make([]byte, hintHeaderSize)
	n, err := io.ReadFull(s.file, header)
	if err != nil {
		s.done = true
		if n > 0 {
			s.torn = true
		}
		return false
	}

	timestamp := binary.LittleEndian.Uint32(header[0:4])
	keySize := header[4]
	valueSize := binary.LittleEndian.Uint32(header[5:9])
	valuePos := binary.LittleEndian.Uint64(header[9:17])

	key := make([]byte, keySize)
	if _, err := io.ReadFull(s.file, key); err != nil {
		s.done, s.torn = true, true
		return false
	}

	s.cur = HintRecord{Timestamp: timestamp, ValuePos: valuePos, ValueSize: valueSize, Key: key}
	return true
}

// Record returns the hint record decoded by the most recent successful Next.
func (s *HintScanner) Record() HintRecord { return s.cur }

// Torn reports whether the scan stopped on a short read rather than a clean
// end of file.
func (s *HintScanner) Torn() bool { return s.torn }

// Err returns any non-torn-tail terminal error. Always nil today; kept for
// symmetry with DataScanner.
func (s *HintScanner) Err() error { return s.err }

// Close releases the scanner's file handle.
func (s *HintScanner) Close() error { return s.file.Close() }
