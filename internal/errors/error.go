package errors

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime Category = "runtime"
	CategoryConfig  Category = "config"
	CategoryScript  Category = "script"
	CategoryCLI     Category = "cli"
)

// Location points at a line in an input file (a state document or a
// replay script).
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// QError is a structured error with a registered code, optional location and
// a fix suggestion.
type QError struct {
	// Code is a unique error identifier (e.g., "Q001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation, usually naming the offending key or value.
	Detail string

	// Location is the input location where the error occurred, if any.
	Location *Location

	// Context contains surrounding input lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *QError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *QError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds an input location to the error and reads the lines
// around it when the file is readable.
func (e *QError) WithLocation(file string, line, column int) *QError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, contextRadius)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *QError) WithSuggestion(s string) *QError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *QError) WithDetail(d string) *QError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with a format string.
func (e *QError) WithDetailf(format string, args ...any) *QError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *QError) Wrap(err error) *QError {
	e.Wrapped = err
	return e
}

// contextRadius is the number of lines shown on each side of a location.
const contextRadius = 2

// contextStart is the line number of the first context line for line.
func contextStart(line int) int {
	return max(line-contextRadius, 1)
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, radius int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - radius
	endLine := targetLine + radius

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// Position converts a byte offset into data to a 1-based line and column.
// The offset counts the bytes consumed up to and including the byte being
// pointed at, as in json.SyntaxError.
func Position(data []byte, offset int64) (line, column int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	if offset < 1 {
		return 1, 1
	}
	head := data[:offset]
	line = bytes.Count(head, []byte{'\n'}) + 1
	column = len(head) - (bytes.LastIndexByte(head, '\n') + 1)
	if column < 1 {
		column = 1
	}
	return line, column
}

// New creates a QError from a registered error code.
func New(code string) *QError {
	template, ok := registry[code]
	if !ok {
		return &QError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &QError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
		DocURL:     template.DocURL,
	}
}

// Newf creates a new QError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *QError {
	return &QError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a QError. QErrors pass through.
func FromError(err error, code string) *QError {
	if err == nil {
		return nil
	}
	if qe, ok := err.(*QError); ok {
		return qe
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first QError in err's chain, or "".
func CodeOf(err error) string {
	for err != nil {
		if qe, ok := err.(*QError); ok {
			return qe.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
