package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/crankpost/internal/collection"
)

// RequestBuilder turns resolved collection requests into *http.Request values.
// Global headers are applied first; headers declared on the request override them.
type RequestBuilder struct {
	headers http.Header
}

func NewRequestBuilder(headers map[string]string) (*RequestBuilder, error) {
	global, err := validateHeaders(headers)
	if err != nil {
		return nil, err
	}
	return &RequestBuilder{headers: global}, nil
}

func validateHeaders(headers map[string]string) (http.Header, error) {
	result := make(http.Header, len(headers))
	for key, value := range headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		result.Set(canonicalKey, value)
	}
	return result, nil
}

func (b *RequestBuilder) Build(ctx context.Context, resolved collection.ResolvedRequest) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := resolved.Method
	if method == "" {
		method = http.MethodGet
	}
	resolved.Method = method

	body, contentType, err := NewBodySource(resolved)
	if err != nil {
		return nil, err
	}
	reader, err := body.NewReader()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, resolved.URL, reader)
	if err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("build %s: %w", resolved.Name, err)
	}

	req.Header = b.headers.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	requestHeaders, err := validateHeaders(resolved.Headers)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", resolved.Name, err)
	}
	for key, values := range requestHeaders {
		req.Header[key] = values
	}

	if length, ok := body.ContentLength(); ok {
		req.ContentLength = length
	}
	req.GetBody = body.NewReader

	return req, nil
}

func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// ReadSnippet reads at most limit bytes of a response body and trims the result.
func ReadSnippet(r io.Reader, limit int64) string {
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
