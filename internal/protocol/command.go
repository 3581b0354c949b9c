// Package protocol parses the Memcached ASCII command stream into a tagged
// Command variant and frames engine results back into the matching
// Memcached ASCII responses. It holds no engine state of its own: every
// Command is self-contained, and nothing here survives past one connection.
package protocol

// Kind tags which shape a parsed Command holds.
type Kind int

const (
	// KindRetrieval is a get/gets request for one or more keys.
	KindRetrieval Kind = iota
	// KindStore is a set/add/replace/append/prepend/cas request carrying a
	// data block.
	KindStore
	// KindDelete is a delete request for a single key.
	KindDelete
	// KindVersion is the version request.
	KindVersion
	// KindFlushAll is the flush_all request.
	KindFlushAll
	// KindQuit signals the client is closing the connection.
	KindQuit
)

// Command is the tagged variant every parsed line produces: exactly one of
// its field groups is meaningful, selected by Kind.
type Command struct {
	Kind Kind

	// Keys holds the requested keys for KindRetrieval. WithCas is true for
	// "gets"; the server answers "gets" exactly like "get", with no
	// cas_unique token.
	Keys    []string
	WithCas bool

	// Verb is the store verb ("set", "add", "replace", "append", "prepend",
	// "cas") for KindStore.
	Verb string
	// Key is the target key for KindStore and KindDelete.
	Key string
	// Flags is the opaque client flags value. It is persisted nowhere, so
	// retrieval responses always report flags as 0.
	Flags uint32
	// Exptime is the requested expiration; accepted but never enforced.
	Exptime int64
	// Bytes is the declared length of DataBlock, from the command header.
	Bytes int
	// DataBlock is the payload read after the command header line.
	DataBlock []byte
	// CasUnique is the client-supplied comparison token for "cas", accepted
	// and parsed but never checked against a stored value.
	CasUnique uint64

	// NoReply suppresses the response for storage commands, per the
	// standard Memcached "noreply" trailing token.
	NoReply bool
}

// IsStorageVerb reports whether the store verb actually mutates storage.
// Only "set" does; the rest are parsed for protocol completeness and
// answered without touching the engine.
func (c Command) IsStorageVerb() bool {
	return c.Verb == "set"
}
