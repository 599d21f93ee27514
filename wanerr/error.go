// Package wanerr defines the error taxonomy shared by every stage of the
// sprite/chunk pipeline: a small set of Kinds, each carrying the path
// that triggered it and a wrapped cause, so a caller can report
// "kind + path + message" without string-parsing an error chain.
package wanerr

import "fmt"

// Kind identifies which validation or resource rule produced an Error.
type Kind int

const (
	// InvalidFilename: an input file did not match Frame-<f>-Layer-<l>.png.
	InvalidFilename Kind = iota
	// PaletteMismatch: input images do not share one embedded palette.
	PaletteMismatch
	// WrongPixelFormat: an image is not indexed, or carries >256 colors.
	WrongPixelFormat
	// DimensionMismatch: input images do not share a common canvas size.
	DimensionMismatch
	// NotMultipleOf8: an image dimension is not a multiple of 8 pixels.
	NotMultipleOf8
	// MultiGroupTile: a single 8x8 tile references more than one palette group.
	MultiGroupTile
	// UncoverableTile: a non-empty tile cannot be covered even at 8x8.
	// No code in this module returns this kind: the extractor's 8x8
	// fallback always accepts a non-empty tile.
	UncoverableTile
	// ChunkLimitExceeded: a frame emitted more than 108 chunks. Warning, not fatal.
	ChunkLimitExceeded
	// MemoryLimitExceeded: an animation exceeded its tile-unit memory budget. Warning, not fatal.
	MemoryLimitExceeded
	// TooManyAnimations: config.json names more than 8 animations.
	TooManyAnimations
	// MissingFile: a required reverse-pipeline input file is absent.
	MissingFile
	// XMLParseError: frames.xml, animations.xml or config.json failed to parse.
	XMLParseError
)

func (k Kind) String() string {
	switch k {
	case InvalidFilename:
		return "InvalidFilename"
	case PaletteMismatch:
		return "PaletteMismatch"
	case WrongPixelFormat:
		return "WrongPixelFormat"
	case DimensionMismatch:
		return "DimensionMismatch"
	case NotMultipleOf8:
		return "NotMultipleOf8"
	case MultiGroupTile:
		return "MultiGroupTile"
	case UncoverableTile:
		return "UncoverableTile"
	case ChunkLimitExceeded:
		return "ChunkLimitExceeded"
	case MemoryLimitExceeded:
		return "MemoryLimitExceeded"
	case TooManyAnimations:
		return "TooManyAnimations"
	case MissingFile:
		return "MissingFile"
	case XMLParseError:
		return "XMLParseError"
	default:
		return "Unknown"
	}
}

// Fatal reports whether a Kind must abort the current folder conversion.
// Only ChunkLimitExceeded and MemoryLimitExceeded are warnings.
func (k Kind) Fatal() bool {
	return k != ChunkLimitExceeded && k != MemoryLimitExceeded
}

// Error is a structured pipeline error: kind, offending path, wrapped cause.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		if e.Path == "" {
			return e.Kind.String()
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a structured Error with no wrapped cause.
func New(kind Kind, path, msg string) *Error {
	var err error
	if msg != "" {
		err = fmt.Errorf("%s", msg)
	}
	return &Error{Kind: kind, Path: path, Err: err}
}

// Wrap builds a structured Error wrapping an existing cause.
func Wrap(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Err: cause}
}
