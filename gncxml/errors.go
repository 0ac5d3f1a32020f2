package gncxml

import "fmt"

// StructuralError reports a document that violates the dialect's structure:
// a wrong or missing root element, or elements in an impossible position.
// It always aborts the decode.
type StructuralError struct {
	Element string
	Msg     string
}

func (e *StructuralError) Error() string {
	if e.Element == "" {
		return "structural error: " + e.Msg
	}
	return fmt.Sprintf("structural error at <%s>: %s", e.Element, e.Msg)
}

// DataError reports a field whose content cannot be turned into a model
// value: an unparsable amount or date, an unresolved commodity, a duplicate
// ROOT account. Whether it aborts the decode depends on whether the value is
// required for invariant enforcement.
type DataError struct {
	Element string
	Content string
	Err     error
}

func (e *DataError) Error() string {
	msg := fmt.Sprintf("bad data in <%s>", e.Element)
	if e.Content != "" {
		msg += fmt.Sprintf(" (%q)", e.Content)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataError) Unwrap() error { return e.Err }

func dataErr(element, content string, err error) *DataError {
	return &DataError{Element: element, Content: content, Err: err}
}

func dataErrf(element, content, format string, args ...any) *DataError {
	return &DataError{Element: element, Content: content, Err: fmt.Errorf(format, args...)}
}

// ExportError wraps any failure of an export pass together with the cause.
type ExportError struct {
	Op  string
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Op, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
