// Package engine is kegdb's Bitcask core: the in-memory key directory plus
// the set of on-disk segments, coordinating get/put/delete, startup
// recovery, segment rollover, and the offline merge contract.
//
// Exactly one segment is active (writable) at a time; every other segment
// referenced by the directory is sealed (read-only). A single sync.RWMutex
// orders every operation: Get takes the shared lease, Put/Delete/Merge take
// the exclusive one, matching the original Bitcask's single-writer design.
package engine

import (
	stdErrors "errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/iamNilotpal/kegdb/internal/index"
	"github.com/iamNilotpal/kegdb/internal/segment"
	"github.com/iamNilotpal/kegdb/pkg/errors"
	"github.com/iamNilotpal/kegdb/pkg/filesys"
	"github.com/iamNilotpal/kegdb/pkg/options"
	"github.com/iamNilotpal/kegdb/pkg/seginfo"
	"go.uber.org/zap"
)

// ErrEngineClosed is returned when attempting to perform operations on a
// closed engine.
var ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")

// ErrKeyNotFound is returned by Get when a key has no live entry in the
// directory. Delete reports a missing key through its existed result instead.
var ErrKeyNotFound = stdErrors.New("key not found")

const lockFileName = ".lock"

// Engine coordinates the directory, the segment set, and the active writer.
type Engine struct {
	options *options.Options
	log     *zap.SugaredLogger

	mu     sync.RWMutex
	closed atomic.Bool

	idx    *index.Index
	sealed map[uint32]*segment.DataFile

	activeID   uint32
	activeData *segment.DataFile
	activeHint *segment.HintFile

	lock *os.File
}

// Config holds the parameters needed to initialize a new Engine.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New opens (or creates) the data directory named by config.Options.DataDir,
// takes an exclusive lock on it, replays every existing segment to rebuild
// the directory, and returns an Engine ready to serve Get/Put/Delete.
func New(config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "engine configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	dataDir := config.Options.DataDir
	existed, err := filesys.Exists(dataDir)
	if err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, dataDir)
	}
	config.Logger.Infow("initializing engine", "dataDir", dataDir, "existingStore", existed)

	if err := filesys.CreateDir(dataDir, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, dataDir)
	}

	lock, err := acquireLock(dataDir)
	if err != nil {
		return nil, err
	}

	idx, err := index.New(&index.Config{Logger: config.Logger})
	if err != nil {
		releaseLock(lock, dataDir)
		return nil, err
	}

	e := &Engine{
		options: config.Options,
		log:     config.Logger,
		idx:     idx,
		sealed:  make(map[uint32]*segment.DataFile),
		lock:    lock,
	}

	if err := e.recover(); err != nil {
		idx.Close()
		releaseLock(lock, dataDir)
		return nil, err
	}

	config.Logger.Infow("engine initialized", "activeSegmentId", e.activeID, "liveKeys", e.idx.Len())
	return e, nil
}

// acquireLock takes a non-blocking exclusive flock on dataDir/.lock,
// refusing to start a second engine instance against the same directory —
// protecting the single-active-writer invariant across process restarts
// and accidental double-starts.
func acquireLock(dataDir string) (*os.File, error) {
	path := filepath.Join(dataDir, lockFileName)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, lockFileName)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "data directory is locked by another engine instance",
		).WithPath(dataDir)
	}

	return file, nil
}

func releaseLock(lock *os.File, dataDir string) {
	if lock == nil {
		return
	}
	syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	lock.Close()
}

func (e *Engine) dataPath(id uint32) string {
	return filepath.Join(e.options.DataDir, seginfo.DataName(id))
}

func (e *Engine) hintPath(id uint32) string {
	return filepath.Join(e.options.DataDir, seginfo.HintName(id))
}

// dataFileFor returns the DataFile backing id, whether active or sealed.
func (e *Engine) dataFileFor(id uint32) *segment.DataFile {
	if id == e.activeID {
		return e.activeData
	}
	return e.sealed[id]
}

// Get returns the current value for key, or ErrKeyNotFound.
func (e *Engine) Get(key string) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	rp, ok := e.idx.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}

	df := e.dataFileFor(rp.FileID)
	if df == nil {
		return nil, errors.NewIndexError(nil, errors.ErrorCodeIndexInvalidSegmentID, "directory entry references unknown segment").
			WithKey(key).WithSegmentID(uint16(rp.FileID)).WithOperation("Get")
	}

	return df.ReadExact(rp.ValuePos, rp.ValueSize)
}

// Put writes value for key, durably appending to the active segment before
// updating the directory, and rolls the active segment over if it has
// reached its configured size limit.
func (e *Engine) Put(key string, value []byte) error {
	if key == "" {
		return errors.NewRequiredFieldError("key")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	ts := uint32(time.Now().Unix())
	fileID := e.activeID

	valuePos, err := e.activeData.Append(ts, []byte(key), value)
	if err != nil {
		return err
	}
	if err := e.activeHint.Append(ts, valuePos, uint32(len(value)), []byte(key)); err != nil {
		return err
	}

	if e.options.SyncOnWrite {
		if err := e.activeData.Sync(); err != nil {
			return err
		}
		if err := e.activeHint.Sync(); err != nil {
			return err
		}
	}

	e.idx.Set(key, index.RecordPointer{
		FileID: fileID, ValuePos: valuePos, ValueSize: uint32(len(value)), Timestamp: ts, Key: key,
	})

	return e.rolloverIfFull()
}

// Delete removes key, appending a tombstone record so the deletion survives
// a restart. Deleting an absent key is not an error: existed reports
// whether the key had a live entry beforehand, so callers (the protocol
// layer) can answer DELETED vs NOT_FOUND.
func (e *Engine) Delete(key string) (existed bool, err error) {
	if key == "" {
		return false, errors.NewRequiredFieldError("key")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return false, ErrEngineClosed
	}

	_, existed = e.idx.Get(key)
	e.idx.Delete(key)

	ts := uint32(time.Now().Unix())

	valuePos, err := e.activeData.Append(ts, []byte(key), nil)
	if err != nil {
		return existed, err
	}
	if err := e.activeHint.Append(ts, valuePos, 0, []byte(key)); err != nil {
		return existed, err
	}

	if e.options.SyncOnWrite {
		if err := e.activeData.Sync(); err != nil {
			return existed, err
		}
		if err := e.activeHint.Sync(); err != nil {
			return existed, err
		}
	}

	return existed, e.rolloverIfFull()
}

// rolloverIfFull seals the active segment and opens the next one once the
// active segment has reached its configured size. Called with mu held.
func (e *Engine) rolloverIfFull() error {
	if e.activeData.Size() < int64(e.options.SegmentOptions.Size) {
		return nil
	}
	return e.rollover()
}

func (e *Engine) rollover() error {
	oldID := e.activeID

	if err := e.activeHint.Seal(); err != nil {
		e.log.Warnw("failed to seal hint file during rollover", "segmentId", oldID, "error", err)
	}
	if err := e.activeData.Seal(); err != nil {
		return err
	}
	e.sealed[oldID] = e.activeData

	newID := oldID + 1
	newData, err := segment.CreateActiveDataFile(e.options.DataDir, newID, e.log)
	if err != nil {
		return err
	}
	newHint, err := segment.CreateActiveHintFile(e.options.DataDir, newID, e.log)
	if err != nil {
		newData.Close()
		return err
	}

	e.activeID = newID
	e.activeData = newData
	e.activeHint = newHint

	e.log.Infow("segment rollover", "previousSegmentId", oldID, "newSegmentId", newID)
	return nil
}

// Close shuts the engine down: closes every segment handle, the directory
// lock, and the in-memory directory. Safe to call exactly once.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(e.activeHint.Seal())
	record(e.activeData.Close())
	for _, df := range e.sealed {
		record(df.Close())
	}
	record(e.idx.Close())

	releaseLock(e.lock, e.options.DataDir)
	return firstErr
}
