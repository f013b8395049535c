// Package collection parses exported API collections and flattens them into
// resolved requests.
package collection

// Document is an exported API collection (Postman v2.x shape).
type Document struct {
	Name      string
	Variables []Variable
	Items     []Item
}

// Variable is a named value substituted into {{key}} placeholders.
type Variable struct {
	Key   string
	Value string
}

// Item is either a request definition or a folder of further items.
type Item struct {
	Name    string
	Request *RequestItem
	Items   []Item
}

// IsFolder reports whether the item groups child items instead of defining a request.
func (i Item) IsFolder() bool {
	return i.Request == nil
}

// RequestItem is the source request as declared in the document.
type RequestItem struct {
	Method  string
	RawURL  string
	Query   []KeyValue
	Headers []KeyValue
	Body    string
}

// KeyValue is an ordered key/value pair from a query or header list.
type KeyValue struct {
	Key   string
	Value string
}

// ResolvedRequest is a request with every known placeholder substituted,
// ready for execution.
type ResolvedRequest struct {
	Name    string            `json:"name"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Params  map[string]string `json:"params"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}
