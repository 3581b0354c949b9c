package protocol

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/iamNilotpal/kegdb/pkg/errors"
)

var storeVerbs = map[string]bool{
	"set": true, "add": true, "replace": true, "append": true, "prepend": true, "cas": true,
}

// Parser reads Memcached ASCII commands off a byte stream one at a time.
// It is not safe for concurrent use — the server gives each connection its
// own Parser.
type Parser struct {
	r *bufio.Reader
}

// NewParser wraps r for command parsing.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: bufio.NewReader(r)}
}

// IsProtocolError reports whether err is a recoverable *errors.ProtocolError
// rather than a raw I/O error from the connection.
func IsProtocolError(err error) bool {
	return errors.IsProtocolError(err)
}

// ReadCommand reads and parses the next command. The returned error is
// either a *errors.ProtocolError — malformed input, recoverable, the caller
// should emit a CLIENT_ERROR/ERROR response and keep reading — or a raw I/O
// error from the underlying connection, which the caller must treat as
// connection-terminating.
func (p *Parser) ReadCommand() (Command, error) {
	line, err := p.r.ReadString('\n')
	if err != nil {
		// A partial line followed by EOF is still a dead connection, not a
		// malformed-frame situation: surface it as a raw I/O error either way.
		return Command{}, err
	}

	line = strings.TrimRight(line, "\r\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.NewProtocolError(nil, errors.ErrorCodeProtocolMalformed, "empty command line").
			WithLine(line)
	}

	verb := fields[0]
	switch {
	case verb == "get" || verb == "gets":
		return p.parseRetrieval(verb, fields, line)
	case storeVerbs[verb]:
		return p.parseStore(verb, fields, line)
	case verb == "delete":
		return p.parseDelete(fields, line)
	case verb == "version":
		return Command{Kind: KindVersion}, nil
	case verb == "flush_all":
		return Command{Kind: KindFlushAll}, nil
	case verb == "quit":
		return Command{Kind: KindQuit}, nil
	default:
		return Command{}, errors.NewProtocolError(nil, errors.ErrorCodeProtocolUnknownCommand, "unknown command").
			WithVerb(verb).WithLine(line)
	}
}

func (p *Parser) parseRetrieval(verb string, fields []string, line string) (Command, error) {
	if len(fields) < 2 {
		return Command{}, errors.NewProtocolError(nil, errors.ErrorCodeProtocolMalformed, "missing key").
			WithVerb(verb).WithLine(line)
	}
	return Command{Kind: KindRetrieval, Keys: fields[1:], WithCas: verb == "gets"}, nil
}

func (p *Parser) parseDelete(fields []string, line string) (Command, error) {
	if len(fields) < 2 {
		return Command{}, errors.NewProtocolError(nil, errors.ErrorCodeProtocolMalformed, "missing key").
			WithVerb("delete").WithLine(line)
	}
	return Command{Kind: KindDelete, Key: fields[1]}, nil
}

func (p *Parser) parseStore(verb string, fields []string, line string) (Command, error) {
	minFields := 5 // verb key flags exptime bytes
	if verb == "cas" {
		minFields = 6 // + cas_unique
	}
	if len(fields) < minFields {
		return Command{}, errors.NewProtocolError(nil, errors.ErrorCodeProtocolMalformed, "bad command line format").
			WithVerb(verb).WithLine(line)
	}

	key := fields[1]

	flags, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return Command{}, errors.NewProtocolError(err, errors.ErrorCodeProtocolMalformed, "bad flags value").
			WithVerb(verb).WithLine(line)
	}

	exptime, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Command{}, errors.NewProtocolError(err, errors.ErrorCodeProtocolMalformed, "bad exptime value").
			WithVerb(verb).WithLine(line)
	}

	byteCount, err := strconv.Atoi(fields[4])
	if err != nil || byteCount < 0 {
		return Command{}, errors.NewProtocolError(err, errors.ErrorCodeProtocolMalformed, "bad bytes value").
			WithVerb(verb).WithLine(line)
	}

	cmd := Command{
		Kind: KindStore, Verb: verb, Key: key,
		Flags: uint32(flags), Exptime: exptime, Bytes: byteCount,
	}

	rest := fields[5:]
	if verb == "cas" {
		if len(rest) < 1 {
			return Command{}, errors.NewProtocolError(nil, errors.ErrorCodeProtocolMalformed, "missing cas_unique").
				WithVerb(verb).WithLine(line)
		}
		casUnique, err := strconv.ParseUint(rest[0], 10, 64)
		if err != nil {
			return Command{}, errors.NewProtocolError(err, errors.ErrorCodeProtocolMalformed, "bad cas_unique value").
				WithVerb(verb).WithLine(line)
		}
		cmd.CasUnique = casUnique
		rest = rest[1:]
	}

	if len(rest) > 0 && rest[0] == "noreply" {
		cmd.NoReply = true
	}

	data, err := p.readDataBlock(byteCount)
	if err != nil {
		return Command{}, err
	}
	cmd.DataBlock = data

	return cmd, nil
}

// readDataBlock reads exactly n payload bytes plus the trailing \r\n. A
// short read is a dead connection (raw I/O error); a present-but-wrong
// trailer is a malformed frame (recoverable protocol error).
func (p *Parser) readDataBlock(n int) ([]byte, error) {
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return nil, errors.NewProtocolError(nil, errors.ErrorCodeProtocolMalformed, "bad data chunk trailer")
	}
	return buf[:n], nil
}
