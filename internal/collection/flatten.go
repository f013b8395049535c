package collection

import (
	"strings"
)

// Options controls how a document is flattened into resolved requests.
type Options struct {
	// Variables are applied after the document's own variables, so a key
	// present in both resolves to the value given here.
	Variables []Variable
	// IncludeMethods keeps only requests with one of these methods (empty = all).
	IncludeMethods []string
	// IncludeNames keeps only requests with one of these names (empty = all).
	IncludeNames []string
}

// Substitute replaces {{key}} placeholders in template, one variable at a
// time in the given order. Each pass works on the output of the previous one,
// so a value that itself contains a placeholder can be replaced again by a
// later variable. Placeholders without a matching variable are left as-is.
func Substitute(template string, vars []Variable) string {
	result := template
	for _, v := range vars {
		result = strings.ReplaceAll(result, "{{"+v.Key+"}}", v.Value)
	}
	return result
}

// Flatten resolves every request in doc, in document order. Folders are
// expanded depth-first in place.
func Flatten(doc *Document, opts Options) ([]ResolvedRequest, error) {
	if doc == nil {
		return nil, malformed("", "document is nil")
	}

	vars := mergeVariables(doc.Variables, opts.Variables)

	requests := make([]ResolvedRequest, 0, len(doc.Items))
	var walk func(items []Item, path string) error
	walk = func(items []Item, path string) error {
		for idx, item := range items {
			itemPath := indexPath(path, idx)
			if item.IsFolder() {
				if err := walk(item.Items, itemPath+".item"); err != nil {
					return err
				}
				continue
			}
			if strings.TrimSpace(item.Request.Method) == "" {
				return malformed(itemPath+".request.method", "empty")
			}
			resolved := resolve(item, vars)
			if !opts.includes(resolved) {
				continue
			}
			requests = append(requests, resolved)
		}
		return nil
	}

	if err := walk(doc.Items, "item"); err != nil {
		return nil, err
	}
	return requests, nil
}

// mergeVariables concatenates the variable sets and collapses repeated keys:
// the last value wins and keeps the position of the key's first occurrence.
func mergeVariables(sets ...[]Variable) []Variable {
	var merged []Variable
	index := make(map[string]int)
	for _, set := range sets {
		for _, v := range set {
			if pos, ok := index[v.Key]; ok {
				merged[pos].Value = v.Value
				continue
			}
			index[v.Key] = len(merged)
			merged = append(merged, v)
		}
	}
	return merged
}

func resolve(item Item, vars []Variable) ResolvedRequest {
	req := item.Request

	params := make(map[string]string, len(req.Query))
	for _, q := range req.Query {
		params[q.Key] = q.Value
	}

	var headers map[string]string
	if len(req.Headers) > 0 {
		headers = make(map[string]string, len(req.Headers))
		for _, h := range req.Headers {
			headers[h.Key] = Substitute(h.Value, vars)
		}
	}

	return ResolvedRequest{
		Name:    item.Name,
		Method:  strings.ToUpper(strings.TrimSpace(req.Method)),
		URL:     Substitute(req.RawURL, vars),
		Params:  params,
		Headers: headers,
		Body:    Substitute(req.Body, vars),
	}
}

func (o Options) includes(req ResolvedRequest) bool {
	if len(o.IncludeMethods) > 0 {
		found := false
		for _, method := range o.IncludeMethods {
			if strings.EqualFold(req.Method, strings.TrimSpace(method)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(o.IncludeNames) > 0 {
		found := false
		for _, name := range o.IncludeNames {
			if req.Name == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// EndpointNames returns the distinct request names in first-occurrence order.
func EndpointNames(requests []ResolvedRequest) []string {
	seen := make(map[string]struct{}, len(requests))
	names := make([]string, 0, len(requests))
	for _, req := range requests {
		if _, ok := seen[req.Name]; ok {
			continue
		}
		seen[req.Name] = struct{}{}
		names = append(names, req.Name)
	}
	return names
}
