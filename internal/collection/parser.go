package collection

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tidwall/gjson"
)

// ParseFile reads and parses a collection document from disk.
func ParseFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a collection document and validates its shape. The whole
// document is checked before anything is returned, so a malformed document
// never yields a partial result.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection data: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, malformed("", "empty document")
	}
	if !gjson.ValidBytes(data) {
		return nil, malformed("", "invalid JSON")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, malformed("", "document must be a JSON object")
	}

	doc := &Document{Name: root.Get("info.name").String()}

	doc.Variables, err = parseVariables(root.Get("variable"), "variable")
	if err != nil {
		return nil, err
	}

	items := root.Get("item")
	if !items.Exists() {
		return nil, malformed("item", "missing")
	}
	doc.Items, err = parseItems(items, "item")
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func parseVariables(res gjson.Result, path string) ([]Variable, error) {
	if !res.Exists() || res.Type == gjson.Null {
		return nil, nil
	}
	if !res.IsArray() {
		return nil, malformed(path, "must be an array")
	}

	var vars []Variable
	for idx, entry := range res.Array() {
		entryPath := indexPath(path, idx)
		if !entry.IsObject() {
			return nil, malformed(entryPath, "must be an object")
		}
		if entry.Get("disabled").Bool() {
			continue
		}
		key, err := requireString(entry, "key", entryPath)
		if err != nil {
			return nil, err
		}
		value, err := scalarString(entry.Get("value"), entryPath+".value")
		if err != nil {
			return nil, err
		}
		vars = append(vars, Variable{Key: key, Value: value})
	}
	return vars, nil
}

func parseItems(res gjson.Result, path string) ([]Item, error) {
	if !res.IsArray() {
		return nil, malformed(path, "must be an array")
	}

	entries := res.Array()
	items := make([]Item, 0, len(entries))
	for idx, entry := range entries {
		item, err := parseItem(entry, indexPath(path, idx))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func parseItem(res gjson.Result, path string) (Item, error) {
	if !res.IsObject() {
		return Item{}, malformed(path, "must be an object")
	}

	name, err := requireString(res, "name", path)
	if err != nil {
		return Item{}, err
	}

	request := res.Get("request")
	if !request.Exists() {
		children := res.Get("item")
		if !children.Exists() {
			return Item{}, malformed(path+".request", "missing")
		}
		items, err := parseItems(children, path+".item")
		if err != nil {
			return Item{}, err
		}
		return Item{Name: name, Items: items}, nil
	}

	req, err := parseRequest(request, path+".request")
	if err != nil {
		return Item{}, err
	}
	return Item{Name: name, Request: req}, nil
}

func parseRequest(res gjson.Result, path string) (*RequestItem, error) {
	if !res.IsObject() {
		return nil, malformed(path, "must be an object")
	}

	method, err := requireString(res, "method", path)
	if err != nil {
		return nil, err
	}
	req := &RequestItem{Method: method}

	url := res.Get("url")
	switch {
	case !url.Exists():
		return nil, malformed(path+".url", "missing")
	case url.Type == gjson.String:
		req.RawURL = url.String()
	case url.IsObject():
		req.RawURL, err = requireString(url, "raw", path+".url")
		if err != nil {
			return nil, err
		}
		req.Query, err = parsePairs(url.Get("query"), path+".url.query")
		if err != nil {
			return nil, err
		}
	default:
		return nil, malformed(path+".url", "must be a string or an object")
	}

	req.Headers, err = parsePairs(res.Get("header"), path+".header")
	if err != nil {
		return nil, err
	}

	body := res.Get("body")
	if body.Exists() && body.Type != gjson.Null {
		if !body.IsObject() {
			return nil, malformed(path+".body", "must be an object")
		}
		if body.Get("mode").String() == "raw" {
			req.Body = body.Get("raw").String()
		}
	}

	return req, nil
}

// parsePairs reads an optional ordered list of {key, value} objects. Entries
// flagged "disabled" are skipped.
func parsePairs(res gjson.Result, path string) ([]KeyValue, error) {
	if !res.Exists() || res.Type == gjson.Null {
		return nil, nil
	}
	if !res.IsArray() {
		return nil, malformed(path, "must be an array")
	}

	var pairs []KeyValue
	for idx, entry := range res.Array() {
		entryPath := indexPath(path, idx)
		if !entry.IsObject() {
			return nil, malformed(entryPath, "must be an object")
		}
		if entry.Get("disabled").Bool() {
			continue
		}
		key, err := requireString(entry, "key", entryPath)
		if err != nil {
			return nil, err
		}
		value, err := scalarString(entry.Get("value"), entryPath+".value")
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, KeyValue{Key: key, Value: value})
	}
	return pairs, nil
}

func requireString(parent gjson.Result, field, path string) (string, error) {
	val := parent.Get(field)
	fieldPath := path + "." + field
	if !val.Exists() {
		return "", malformed(fieldPath, "missing")
	}
	if val.Type != gjson.String {
		return "", malformed(fieldPath, "must be a string")
	}
	return val.String(), nil
}

// scalarString accepts strings, numbers, booleans and null (as ""). Exported
// collections routinely store numeric variable values unquoted.
func scalarString(val gjson.Result, path string) (string, error) {
	switch val.Type {
	case gjson.Null:
		return "", nil
	case gjson.Number:
		return val.Raw, nil
	case gjson.String, gjson.True, gjson.False:
		return val.String(), nil
	default:
		return "", malformed(path, "must be a scalar value")
	}
}

func indexPath(path string, idx int) string {
	return path + "." + strconv.Itoa(idx)
}
