package engine

import (
	"os"

	"github.com/iamNilotpal/kegdb/internal/index"
	"github.com/iamNilotpal/kegdb/internal/segment"
	"github.com/iamNilotpal/kegdb/pkg/seginfo"
)

// recover rebuilds the directory from every segment already on disk and
// opens the highest-numbered one as active, creating a fresh segment 0 if
// the directory is empty. Called once from New, before the engine is handed
// to a caller, so no locking is needed here beyond the directory flock
// already held.
func (e *Engine) recover() error {
	entries, err := seginfo.Discover(e.options.DataDir)
	if err != nil {
		return err
	}

	for _, ent := range entries {
		if err := e.replaySegment(ent); err != nil {
			return err
		}
	}

	activeID, ok := seginfo.LatestID(entries)
	if !ok {
		activeID = 0
	}

	for _, ent := range entries {
		if ent.ID == activeID {
			continue
		}
		df, err := segment.OpenSealedDataFile(e.options.DataDir, ent.ID, e.log)
		if err != nil {
			return err
		}
		e.sealed[ent.ID] = df
	}

	activeData, err := segment.CreateActiveDataFile(e.options.DataDir, activeID, e.log)
	if err != nil {
		return err
	}
	activeHint, err := segment.CreateActiveHintFile(e.options.DataDir, activeID, e.log)
	if err != nil {
		activeData.Close()
		return err
	}

	e.activeID = activeID
	e.activeData = activeData
	e.activeHint = activeHint
	return nil
}

// replaySegment folds one segment's records into the directory. It prefers
// the segment's hint file, since replaying hint records never needs to read
// a single value byte back off the data file; it falls back to scanning the
// data file directly when no hint file exists, which happens when the
// process crashed right after creating a new segment's data file but before
// creating its hint file.
func (e *Engine) replaySegment(ent seginfo.Entry) error {
	if ent.HasHint {
		replayed, err := e.replayFromHint(ent.ID)
		if err != nil {
			return err
		}
		if replayed {
			return nil
		}
	}

	if !ent.HasData {
		return nil
	}
	return e.replayFromData(ent.ID)
}

func (e *Engine) replayFromHint(id uint32) (replayed bool, err error) {
	sc, err := segment.OpenHintScanner(e.options.DataDir, id)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer sc.Close()

	var dataSize int64
	if info, statErr := os.Stat(e.dataPath(id)); statErr == nil {
		dataSize = info.Size()
	}

	for sc.Next() {
		rec := sc.Record()
		key := string(rec.Key)

		// A hint entry whose value ends past the data file's end refers to a
		// record torn off the data file's tail; it and everything after it
		// are not replayed.
		if rec.ValuePos+uint64(rec.ValueSize) > uint64(dataSize) {
			e.log.Warnw("hint entry points past end of data file, stopping replay for this segment", "segmentId", id)
			break
		}

		if rec.IsTombstone() {
			e.idx.Delete(key)
			continue
		}

		e.idx.Set(key, index.RecordPointer{
			FileID: id, ValuePos: rec.ValuePos, ValueSize: rec.ValueSize, Timestamp: rec.Timestamp, Key: key,
		})
	}

	if sc.Torn() {
		e.log.Warnw("torn hint file tail during recovery, stopping replay for this segment", "segmentId", id)
	}

	return true, nil
}

func (e *Engine) replayFromData(id uint32) error {
	sc, err := segment.OpenDataScanner(e.options.DataDir, id)
	if err != nil {
		return err
	}
	defer sc.Close()

	for sc.Next() {
		rec := sc.Record()
		key := string(rec.Key)

		if rec.IsTombstone() {
			e.idx.Delete(key)
			continue
		}

		e.idx.Set(key, index.RecordPointer{
			FileID:    id,
			ValuePos:  uint64(sc.ValueOffset()),
			ValueSize: uint32(len(rec.Value)),
			Timestamp: rec.Timestamp,
			Key:       key,
		})
	}

	if sc.Torn() {
		e.log.Warnw("torn data file tail during recovery, stopping replay for this segment", "segmentId", id)
	}

	return nil
}
