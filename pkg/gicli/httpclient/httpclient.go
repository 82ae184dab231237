// Package httpclient implements the retrying HTTP request contract
// spec §4.4 describes. It is grounded on the teacher's
// example/weather/step/reader/weather_reader.go, which builds a
// *http.Client with a Timeout, issues a single http.NewRequestWithContext
// call, and classifies the outcome as retryable or not via
// exception.NewBatchError's bool flags -- generalized here into an
// explicit per-attempt retry loop with a fixed delay, since the reader
// only ever made one attempt.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
)

// Request is the input contract to Do.
type Request struct {
	Method     string
	URL        string
	Headers    map[string]string
	Body       any // string, or any JSON-marshalable value; nil for none
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Response is the normalized output contract from Do.
type Response struct {
	Status     int
	StatusText string
	Headers    http.Header
	Data       any // parsed JSON, string, or []byte depending on Content-Type
	URL        string
	RequestID  string
}

// Client issues HTTP requests with the retry/timeout policy spec §4.4
// requires. The zero value is usable.
type Client struct{}

// New constructs a Client. It takes no arguments today but exists so
// callers depend on a constructor, not a package-level value, matching
// the explicit-dependency style the rest of gicli follows.
func New() *Client { return &Client{} }

// Do issues req, retrying up to req.Retries additional times with a
// fixed req.RetryDelay between attempts, per spec §4.4's eligibility
// table: transport errors and 408 and 5xx are retried; any other 4xx is
// not.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	attempts := req.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(req.RetryDelay):
			}
		}

		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)

	var bodyReader io.Reader
	contentType := ""
	if req.Body != nil && method != http.MethodGet && method != http.MethodHead {
		switch b := req.Body.(type) {
		case string:
			bodyReader = strings.NewReader(b)
		case []byte:
			bodyReader = bytes.NewReader(b)
		default:
			encoded, err := json.Marshal(b)
			if err != nil {
				return nil, gicerr.New(gicerr.HTTPTransport, "httpclient", "encoding request body", err, false, false)
			}
			bodyReader = bytes.NewReader(encoded)
			contentType = "application/json"
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, gicerr.New(gicerr.HTTPTransport, "httpclient", "building request", err, false, false)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	requestID := uuid.New().String()
	httpReq.Header.Set("X-Request-Id", requestID)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	httpReq = httpReq.WithContext(attemptCtx)

	client := &http.Client{}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, gicerr.New(gicerr.HTTPTransport, "httpclient", fmt.Sprintf("%s %s", method, req.URL), err, true, false)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, gicerr.New(gicerr.HTTPTransport, "httpclient", "reading response body", err, true, false)
	}

	data := parseBody(httpResp.Header.Get("Content-Type"), raw)
	resp := &Response{
		Status:     httpResp.StatusCode,
		StatusText: httpResp.Status,
		Headers:    httpResp.Header,
		Data:       data,
		URL:        req.URL,
		RequestID:  requestID,
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, gicerr.New(gicerr.HTTPTransport, "httpclient",
			fmt.Sprintf("HTTP %d %s: %s %s", httpResp.StatusCode, httpResp.Status, method, req.URL),
			nil, isRetryableStatus(httpResp.StatusCode), false)
	}

	return resp, nil
}

func parseBody(contentType string, raw []byte) any {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "application/json"):
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return string(raw)
		}
		return v
	case strings.HasPrefix(ct, "text/"):
		return string(raw)
	default:
		return raw
	}
}

func isRetryableStatus(status int) bool {
	if status == http.StatusRequestTimeout {
		return true
	}
	if status >= 500 {
		return true
	}
	return false
}

// isRetryable reports whether err (as produced by attempt) is eligible
// for another attempt: any non-HTTP transport error, or an HTTP error
// whose status was already classified retryable in attempt.
func isRetryable(err error) bool {
	gerr, ok := err.(*gicerr.Error)
	if !ok {
		return false
	}
	if gerr.Kind != gicerr.HTTPTransport {
		return false
	}
	return gerr.Retryable
}

// StatusFromHTTPError extracts the numeric status code from a "HTTP nnn
// ..." transport error message, for callers (the Job Executor) that
// need to distinguish a 401 from other transport failures without a
// structured status field on the error. Returns 0 if err does not carry
// one.
func StatusFromHTTPError(err error) int {
	gerr, ok := err.(*gicerr.Error)
	if !ok || gerr.Kind != gicerr.HTTPTransport {
		return 0
	}
	const marker = "HTTP "
	idx := strings.Index(gerr.Message, marker)
	if idx < 0 {
		return 0
	}
	rest := gerr.Message[idx+len(marker):]
	end := strings.IndexByte(rest, ' ')
	if end < 0 {
		end = len(rest)
	}
	n, err2 := strconv.Atoi(rest[:end])
	if err2 != nil {
		return 0
	}
	return n
}
