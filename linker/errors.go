package linker

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Link Error Types
// ---------------------------------------------------------------------------

var (
	ErrClassNotFound     = errors.New("class not found")
	ErrNoMain            = errors.New("entry class has no main method")
	ErrLimitExceeded     = errors.New("format limit exceeded")
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
	ErrMalformedClass    = errors.New("malformed class file")
	ErrUnresolved        = errors.New("unresolved reference")
	ErrStageOrder        = errors.New("link stage run out of order")
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageClosure    Stage = "closure"
	StageEntry      Stage = "entry"
	StageConstants  Stage = "constants"
	StageFields     Stage = "fields"
	StageMethods    Stage = "methods"
	StageExceptions Stage = "exceptions"
	StageCopy       Stage = "copy"
	StageLayout     Stage = "layout"
	StageRewrite    Stage = "rewrite"
	StageSerialize  Stage = "serialize"
)

// LinkError is a fatal, user-facing link failure. Err wraps one of the
// sentinel errors above.
type LinkError struct {
	Stage  Stage
	Class  string
	Method string
	Err    error
}

func (e *LinkError) Error() string {
	var sb strings.Builder
	sb.WriteString("link: ")
	sb.WriteString(string(e.Stage))
	switch {
	case e.Class != "" && e.Method != "":
		fmt.Fprintf(&sb, ": %s.%s", e.Class, e.Method)
	case e.Class != "":
		fmt.Fprintf(&sb, ": %s", e.Class)
	}
	fmt.Fprintf(&sb, ": %v", e.Err)
	return sb.String()
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

func linkErr(stage Stage, class string, err error) *LinkError {
	return &LinkError{Stage: stage, Class: class, Err: err}
}

func methodErr(stage Stage, m *MethodEntry, err error) *LinkError {
	return &LinkError{Stage: stage, Class: m.Class.Name, Method: m.Signature(), Err: err}
}

func limitErr(what string, got, max int) error {
	return fmt.Errorf("%w: %s (%d > %d)", ErrLimitExceeded, what, got, max)
}

// InternalError reports a linker bug: the serializer disagreed with the
// layout about where a record starts or how long it is.
type InternalError struct {
	Kind     RecordKind
	Field    string
	Expected int
	Actual   int
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s record %s: expected %d, got %d", e.Kind, e.Field, e.Expected, e.Actual)
}

// ---------------------------------------------------------------------------
// Warnings
// ---------------------------------------------------------------------------

// WarningKind classifies a non-fatal diagnostic.
type WarningKind int

const (
	WarnNativeSignature WarningKind = iota
	WarnNarrowedLiteral
)

func (k WarningKind) String() string {
	switch k {
	case WarnNativeSignature:
		return "native-signature"
	case WarnNarrowedLiteral:
		return "narrowed-literal"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a diagnostic that does not stop the link.
type Warning struct {
	Kind    WarningKind
	Class   string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Class, w.Message)
}
