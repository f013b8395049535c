package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/torosent/crankpost/internal/collection"
)

// BodySource produces a fresh reader for every send, so the request body can
// be replayed by retries and redirects.
type BodySource interface {
	NewReader() (io.ReadCloser, error)
	ContentLength() (int64, bool)
}

// NewBodySource picks the payload for a resolved request. Methods without a
// body get an empty source. Otherwise the raw collection body wins, and
// requests without one send their parameters as a JSON object.
func NewBodySource(req collection.ResolvedRequest) (BodySource, string, error) {
	if !methodHasBody(req.Method) {
		return emptyBodySource{}, "", nil
	}
	if req.Body != "" {
		return &inlineBodySource{data: []byte(req.Body)}, "", nil
	}

	params := req.Params
	if params == nil {
		params = map[string]string{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, "", fmt.Errorf("encode params for %s: %w", req.Name, err)
	}
	return &inlineBodySource{data: data}, "application/json", nil
}

func methodHasBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

type inlineBodySource struct {
	data []byte
}

func (s *inlineBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *inlineBodySource) ContentLength() (int64, bool) {
	return int64(len(s.data)), true
}

type emptyBodySource struct{}

func (emptyBodySource) NewReader() (io.ReadCloser, error) {
	return http.NoBody, nil
}

func (emptyBodySource) ContentLength() (int64, bool) {
	return 0, true
}
