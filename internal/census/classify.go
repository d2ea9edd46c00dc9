package census

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/klauspost/compress/zlib"
	"go.uber.org/zap"
)

// HeaderWindow is the maximum number of inflated bytes read while looking for
// the NUL that terminates an object header. It is also the read buffer size.
const HeaderWindow = 1024

var (
	// ErrNoHeader is returned when no NUL byte appears within HeaderWindow.
	ErrNoHeader = errors.New("no header terminator within lookahead window")
	// ErrUnknownKind is returned when the header names none of the four object types.
	ErrUnknownKind = errors.New("unrecognized object type")
	// ErrHeaderGrammar is returned in strict mode when the size field is not "<space><digits>".
	ErrHeaderGrammar = errors.New("malformed header size field")
)

// Logger receives scan diagnostics. *zap.Logger satisfies it.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Status is the result class of classifying one file.
type Status int

const (
	// Recognized means the file holds a blob, tree, commit or tag header.
	Recognized Status = iota
	// Malformed means the file inflated but its header was not usable.
	Malformed
	// IOError means the file could not be opened, read or inflated.
	IOError
)

// String returns a short name for the status.
func (s Status) String() string {
	switch s {
	case Recognized:
		return "recognized"
	case Malformed:
		return "malformed"
	case IOError:
		return "io-error"
	default:
		return "unknown"
	}
}

// Header is the parsed leading metadata of a loose object.
type Header struct {
	// Kind is the object type named by the header.
	Kind Kind
	// Size is the size declared in the header, or -1 if it is not a decimal number.
	// It is never checked against the object body.
	Size int64
}

// Outcome is the classification of a single path.
type Outcome struct {
	Path   string
	Status Status
	// Header is only meaningful when Status is Recognized.
	Header Header
	Err    error
}

//nolint:gochecknoglobals // Lookup table
var kindPrefixes = []struct {
	prefix []byte
	kind   Kind
}{
	{[]byte("blob"), Blob},
	{[]byte("tree"), Tree},
	{[]byte("commit"), Commit},
	{[]byte("tag"), Tag},
}

// Classifier reads object headers from loose object files.
type Classifier struct {
	// Strict additionally requires the type name to be followed by a single
	// space and an all-digit size.
	Strict bool
	// Logger receives per-path diagnostics. Nil discards them.
	Logger Logger
}

func (c Classifier) logger() Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}

	return c.Logger
}

// Classify opens the file at path and classifies its header.
// It never returns an error; failures are carried in the Outcome.
func (c Classifier) Classify(path string) Outcome {
	log := c.logger()

	file, err := os.Open(path)
	if err != nil {
		log.Error("opening object file", zap.String("path", path), zap.Error(err))

		return Outcome{Path: path, Status: IOError, Err: fmt.Errorf("opening object file: %w", err)}
	}
	defer file.Close()

	header, status, err := c.ClassifyReader(file)

	switch status {
	case Recognized:
		log.Info("classified object",
			zap.String("path", path),
			zap.Stringer("kind", header.Kind),
			zap.Int64("size", header.Size))
	case Malformed:
		log.Error("malformed object header", zap.String("path", path), zap.Error(err))
	case IOError:
		log.Error("reading object file", zap.String("path", path), zap.Error(err))
	}

	return Outcome{Path: path, Status: status, Header: header, Err: err}
}

// ClassifyReader treats r as a zlib stream and classifies the object header it
// starts with. At most HeaderWindow inflated bytes are consumed.
func (c Classifier) ClassifyReader(r io.Reader) (Header, Status, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return Header{}, IOError, fmt.Errorf("initializing inflate: %w", err)
	}
	defer zr.Close()

	raw, err := readHeader(zr)
	if err != nil {
		if errors.Is(err, ErrNoHeader) {
			return Header{}, Malformed, err
		}

		return Header{}, IOError, err
	}

	header, err := parseHeader(raw, c.Strict)
	if err != nil {
		return Header{}, Malformed, err
	}

	return header, Recognized, nil
}

// readHeader returns the bytes before the first NUL, reading no further than
// one HeaderWindow.
func readHeader(r io.Reader) ([]byte, error) {
	br := bufio.NewReaderSize(r, HeaderWindow)

	line, err := br.ReadSlice(0)

	switch {
	case err == nil:
		return line[:len(line)-1], nil
	case errors.Is(err, bufio.ErrBufferFull):
		return nil, ErrNoHeader
	case errors.Is(err, io.EOF):
		return nil, fmt.Errorf("stream ended before header terminator: %w", io.ErrUnexpectedEOF)
	default:
		return nil, fmt.Errorf("inflating header: %w", err)
	}
}

// parseHeader matches raw against the four type names by prefix.
func parseHeader(raw []byte, strict bool) (Header, error) {
	for _, p := range kindPrefixes {
		if !bytes.HasPrefix(raw, p.prefix) {
			continue
		}

		rest := raw[len(p.prefix):]
		if strict && !validSizeField(rest) {
			return Header{}, fmt.Errorf("%w: %q", ErrHeaderGrammar, raw)
		}

		return Header{Kind: p.kind, Size: parseSize(rest)}, nil
	}

	return Header{}, fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

func parseSize(rest []byte) int64 {
	rest = bytes.TrimPrefix(rest, []byte(" "))
	if !allDigits(rest) {
		return -1
	}

	size, err := strconv.ParseInt(string(rest), 10, 64)
	if err != nil {
		return -1
	}

	return size
}

// validSizeField reports whether rest is exactly a space followed by digits.
func validSizeField(rest []byte) bool {
	if len(rest) < 2 || rest[0] != ' ' { //nolint:mnd // Space plus at least one digit
		return false
	}

	return allDigits(rest[1:])
}

func allDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}

	for _, ch := range b {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	return true
}
