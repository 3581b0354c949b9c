package server

import (
	stdErrors "errors"

	"github.com/iamNilotpal/kegdb/internal/engine"
	"github.com/iamNilotpal/kegdb/internal/protocol"
)

// dispatch performs one parsed command against the engine and writes its
// response. The only errors it returns are write failures on resp itself —
// engine errors are never propagated, since the protocol requires the
// connection stay open after a storage failure on one command. A failed
// store or delete is answered with a SERVER_ERROR line; a key whose get
// fails is logged and left out of the retrieval response.
func (s *Server) dispatch(cmd *protocol.Command, resp *protocol.ResponseWriter) error {
	switch cmd.Kind {
	case protocol.KindRetrieval:
		return s.dispatchRetrieval(cmd, resp)
	case protocol.KindStore:
		return s.dispatchStore(cmd, resp)
	case protocol.KindDelete:
		return s.dispatchDelete(cmd, resp)
	case protocol.KindVersion:
		return resp.WriteVersion(version)
	case protocol.KindFlushAll:
		// flush/expiry is out of scope; the verb is acknowledged without
		// touching storage.
		return resp.WriteOK()
	default:
		return resp.WriteError()
	}
}

func (s *Server) dispatchRetrieval(cmd *protocol.Command, resp *protocol.ResponseWriter) error {
	for _, key := range cmd.Keys {
		value, err := s.engine.Get(key)
		if err != nil {
			if stdErrors.Is(err, engine.ErrKeyNotFound) {
				continue
			}
			s.log.Warnw("get failed", "key", key, "error", err)
			continue
		}

		// cas_unique is never emitted: kegdb tracks no per-write comparison
		// token (CAS persistence is out of scope), and the literal "gets"
		// response kegdb must produce carries no trailing token either.
		if err := resp.WriteValue(key, 0, value, nil); err != nil {
			return err
		}
	}
	return resp.WriteEnd()
}

func (s *Server) dispatchStore(cmd *protocol.Command, resp *protocol.ResponseWriter) error {
	if cmd.NoReply {
		s.applyStore(cmd)
		return nil
	}

	if !cmd.IsStorageVerb() {
		if cmd.Verb == "cas" {
			_, err := s.engine.Get(cmd.Key)
			if stdErrors.Is(err, engine.ErrKeyNotFound) {
				return resp.WriteNotFound()
			}
			// A live value is always reported as a conflicting compare,
			// since cas_unique tokens are accepted but never tracked.
			return resp.WriteExists()
		}
		return resp.WriteNotStored()
	}

	if err := s.engine.Put(cmd.Key, cmd.DataBlock); err != nil {
		s.log.Warnw("put failed", "key", cmd.Key, "error", err)
		return resp.WriteServerError(err.Error())
	}
	return resp.WriteStored()
}

// applyStore performs a noreply store without writing any response.
func (s *Server) applyStore(cmd *protocol.Command) {
	if !cmd.IsStorageVerb() {
		return
	}
	if err := s.engine.Put(cmd.Key, cmd.DataBlock); err != nil {
		s.log.Warnw("put failed", "key", cmd.Key, "error", err)
	}
}

func (s *Server) dispatchDelete(cmd *protocol.Command, resp *protocol.ResponseWriter) error {
	existed, err := s.engine.Delete(cmd.Key)
	if err != nil {
		s.log.Warnw("delete failed", "key", cmd.Key, "error", err)
		return resp.WriteServerError(err.Error())
	}
	if existed {
		return resp.WriteDeleted()
	}
	return resp.WriteNotFound()
}
