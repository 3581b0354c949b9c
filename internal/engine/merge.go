package engine

import (
	"sort"

	"github.com/iamNilotpal/kegdb/internal/index"
	"github.com/iamNilotpal/kegdb/internal/segment"
	"github.com/iamNilotpal/kegdb/pkg/filesys"
)

// Merge rewrites every sealed segment into a smaller set of denser segments,
// keeping only the newest live value for each key and dropping tombstones
// and superseded values entirely. It is not on any request path: nothing
// calls it automatically, matching the contract that compaction is an
// operator- or schedule-triggered maintenance action, not something a Get
// or Put ever blocks on implicitly.
//
// Merge holds the engine's exclusive lock for its entire duration. That
// trades serving reads and writes during a merge for a vastly simpler and
// more obviously correct implementation — acceptable because merge is
// explicitly not a hot-path operation.
func (e *Engine) Merge() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}
	if len(e.sealed) == 0 {
		return nil
	}

	live := e.idx.Snapshot()
	sealedLive := make([]index.RecordPointer, 0, len(live))
	for _, rp := range live {
		if rp.FileID != e.activeID {
			sealedLive = append(sealedLive, rp)
		}
	}
	sort.Slice(sealedLive, func(i, j int) bool { return sealedLive[i].Key < sealedLive[j].Key })

	oldSealedIDs := make([]uint32, 0, len(e.sealed))
	for id := range e.sealed {
		oldSealedIDs = append(oldSealedIDs, id)
	}

	var writtenIDs []uint32
	if len(sealedLive) > 0 {
		ids, err := e.writeMergedSegments(sealedLive)
		if err != nil {
			return err
		}
		writtenIDs = ids
	}

	if err := e.advanceActivePastMerge(writtenIDs); err != nil {
		return err
	}

	for _, id := range oldSealedIDs {
		if df, ok := e.sealed[id]; ok {
			df.Close()
			delete(e.sealed, id)
		}
		filesys.DeleteFile(e.dataPath(id))
		filesys.DeleteFile(e.hintPath(id))
	}

	e.log.Infow("merge completed",
		"retiredSegments", len(oldSealedIDs), "writtenSegments", len(writtenIDs), "liveKeys", len(sealedLive))
	return nil
}

// writeMergedSegments rewrites sealedLive (sorted by key) into one or more
// freshly created segments, sized the same as any other segment, and
// updates the directory in place as each record lands in its new home. It
// returns the ids of every segment it created.
func (e *Engine) writeMergedSegments(sealedLive []index.RecordPointer) ([]uint32, error) {
	nextID := e.activeID + 1

	var ids []uint32
	var curData *segment.DataFile
	var curHint *segment.HintFile

	openNext := func() error {
		df, err := segment.CreateActiveDataFile(e.options.DataDir, nextID, e.log)
		if err != nil {
			return err
		}
		hf, err := segment.CreateActiveHintFile(e.options.DataDir, nextID, e.log)
		if err != nil {
			df.Close()
			return err
		}
		curData, curHint = df, hf
		ids = append(ids, nextID)
		nextID++
		return nil
	}

	sealSeg := func() error {
		if curHint != nil {
			if err := curHint.Seal(); err != nil {
				return err
			}
		}
		if curData != nil {
			if err := curData.Seal(); err != nil {
				return err
			}
			e.sealed[curData.ID()] = curData
		}
		return nil
	}

	if err := openNext(); err != nil {
		return nil, err
	}

	for _, rp := range sealedLive {
		src := e.dataFileFor(rp.FileID)
		value, err := src.ReadExact(rp.ValuePos, rp.ValueSize)
		if err != nil {
			return nil, err
		}

		valuePos, err := curData.Append(rp.Timestamp, []byte(rp.Key), value)
		if err != nil {
			return nil, err
		}
		if err := curHint.Append(rp.Timestamp, valuePos, rp.ValueSize, []byte(rp.Key)); err != nil {
			return nil, err
		}

		newID := curData.ID()
		e.idx.Set(rp.Key, index.RecordPointer{
			FileID: newID, ValuePos: valuePos, ValueSize: rp.ValueSize, Timestamp: rp.Timestamp, Key: rp.Key,
		})

		if curData.Size() >= int64(e.options.SegmentOptions.Size) {
			if err := sealSeg(); err != nil {
				return nil, err
			}
			if err := openNext(); err != nil {
				return nil, err
			}
		}
	}

	if err := sealSeg(); err != nil {
		return nil, err
	}

	return ids, nil
}

// advanceActivePastMerge seals the current active segment (even if it is
// not full) and opens a new active segment above every id writeMergedSegments
// produced, preserving the invariant that the active segment's id exceeds
// every sealed segment's id.
func (e *Engine) advanceActivePastMerge(writtenIDs []uint32) error {
	oldActiveID := e.activeID

	if err := e.activeHint.Seal(); err != nil {
		return err
	}
	if err := e.activeData.Seal(); err != nil {
		return err
	}
	e.sealed[oldActiveID] = e.activeData

	newActiveID := oldActiveID + 1
	for _, id := range writtenIDs {
		if id >= newActiveID {
			newActiveID = id + 1
		}
	}

	newData, err := segment.CreateActiveDataFile(e.options.DataDir, newActiveID, e.log)
	if err != nil {
		return err
	}
	newHint, err := segment.CreateActiveHintFile(e.options.DataDir, newActiveID, e.log)
	if err != nil {
		newData.Close()
		return err
	}

	e.activeID = newActiveID
	e.activeData = newData
	e.activeHint = newHint
	return nil
}
