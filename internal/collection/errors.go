package collection

import "fmt"

// MalformedDocumentError reports a collection document that does not have the
// expected shape. Path uses gjson dot notation, e.g. "item.2.request.url.raw".
type MalformedDocumentError struct {
	Path   string
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed collection: %s", e.Reason)
	}
	return fmt.Sprintf("malformed collection: %s: %s", e.Path, e.Reason)
}

func malformed(path, format string, args ...interface{}) error {
	return &MalformedDocumentError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
