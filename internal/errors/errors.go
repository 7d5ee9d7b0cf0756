// Package errors provides centralized error handling with categories
// and structured context for the imaging pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryState         ErrorCategory = "state"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryGeneric       ErrorCategory = "generic"

	// Imaging pipeline categories
	CategorySourceOpen  ErrorCategory = "source-open"   // source open/start failures
	CategorySourceRead  ErrorCategory = "source-read"   // frame read failures past backoff
	CategoryFrameDecode ErrorCategory = "frame-decode"  // still/DICOM decode failures
	CategoryProcessing  ErrorCategory = "processing"    // transform faults
	CategoryCallback    ErrorCategory = "callback"      // listener callback faults
	CategoryRecording   ErrorCategory = "recording"     // recording sink failures
	CategoryPlayback    ErrorCategory = "playback"      // playback controller faults
	CategoryDiskUsage   ErrorCategory = "disk-usage"    // recording volume guard
	CategoryFFmpeg      ErrorCategory = "ffmpeg"        // capture subprocess failures
	CategoryHTTP        ErrorCategory = "http-request"  // status server failures
	CategoryTimeout     ErrorCategory = "timeout"       // operation timeouts
	CategoryShutdown    ErrorCategory = "shutdown"      // stop/join failures
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// CategorizedError is an interface for errors that carry their own
// category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	Component string         // Component where the error occurred
	Category  ErrorCategory  // Error category for better grouping
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches two enhanced errors by category, and otherwise defers to
// the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// ErrorCategory implements CategorizedError.
func (ee *EnhancedError) ErrorCategory() ErrorCategory {
	return ee.Category
}

// GetContext returns a context value by key.
func (ee *EnhancedError) GetContext(key string) (any, bool) {
	v, ok := ee.Context[key]
	return v, ok
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error builder wrapping err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new builder around a formatted error.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name (auto-detected if not set)
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// FrameContext adds frame-specific context.
func (eb *ErrorBuilder) FrameContext(number int64, source string) *ErrorBuilder {
	eb.Context("frame_number", number)
	if source != "" {
		eb.Context("frame_source", source)
	}
	return eb
}

// Build creates the enhanced error.
func (eb *ErrorBuilder) Build() error {
	if eb.err == nil {
		eb.err = stderrors.New("unknown error")
	}
	if eb.category == "" {
		// Preserve the category of an already-categorized cause.
		var ce CategorizedError
		if stderrors.As(eb.err, &ce) {
			eb.category = ce.ErrorCategory()
		} else {
			eb.category = CategoryGeneric
		}
	}
	component := eb.component
	if component == "" {
		component = detectComponent()
	}

	var ctx map[string]any
	if eb.context != nil {
		ctx = make(map[string]any, len(eb.context))
		maps.Copy(ctx, eb.context)
	}

	return &EnhancedError{
		Err:       eb.err,
		Component: component,
		Category:  eb.category,
		Context:   ctx,
		Timestamp: time.Now(),
	}
}

// detectComponent walks the call stack looking for the first internal
// package outside this one.
func detectComponent() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		fr, more := frames.Next()
		if comp := componentFromFunction(fr.Function); comp != "" {
			return comp
		}
		if !more {
			break
		}
	}
	return ComponentUnknown
}

func componentFromFunction(fn string) string {
	const marker = "/internal/"
	idx := strings.LastIndex(fn, marker)
	if idx < 0 {
		return ""
	}
	rest := fn[idx+len(marker):]
	pkg, _, _ := strings.Cut(rest, ".")
	if pkg == "errors" {
		return ""
	}
	// Strip a possible subpackage path, keep the top-level name.
	pkg, _, _ = strings.Cut(pkg, "/")
	return pkg
}

// --- Standard library passthroughs ---

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error wrapping the given errors.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// NewStd creates a plain standard library error without enhancement.
// Use for sentinel errors that callers match with Is.
func NewStd(text string) error {
	return stderrors.New(text)
}
