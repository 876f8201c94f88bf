package httpws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// StatusError is returned for responses with a non 2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "unexpected status " + e.Status
}

// LoadJSON implements spi.Transport. The call completes on a separate
// goroutine.
func (t *Transport) LoadJSON(call *spi.JSONCall) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		values, err := t.load(call)
		if err != nil {
			t.logger.Debug("request failed", "method", call.Method, "url", call.URL, "error", err)
			call.Receiver.Fail(err)
			return
		}
		t.logger.Debug("request completed", "method", call.Method, "url", call.URL, "values", len(values))
		call.Receiver.Succeed(values)
	}()
}

func (t *Transport) load(call *spi.JSONCall) ([]any, error) {
	var body io.Reader
	if call.Payload != nil {
		body = bytes.NewReader(call.Payload)
	}
	req, err := http.NewRequestWithContext(t.ctx, call.Method, call.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header = t.header()
	if call.IsJSONP() {
		req.Header.Set("Accept", "application/javascript, */*")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if call.Payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.opts.ReadLimit))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	if call.IsJSONP() {
		if data, err = unwrapJSONP(data, call.Callback); err != nil {
			return nil, err
		}
	}
	return decodeValues(data)
}

// unwrapJSONP strips the callback invocation around a JSONP response.
func unwrapJSONP(data []byte, callback string) ([]byte, error) {
	s := bytes.TrimSpace(data)
	s = bytes.TrimPrefix(s, []byte("/**/"))
	s = bytes.TrimSpace(bytes.TrimSuffix(s, []byte(";")))

	prefix := []byte(callback + "(")
	if !bytes.HasPrefix(s, prefix) || !bytes.HasSuffix(s, []byte(")")) {
		return nil, fmt.Errorf("response is not wrapped in %s(...)", callback)
	}
	return s[len(prefix) : len(s)-1], nil
}

// decodeValues decodes a JSON document into the values delivered to the
// model: the elements of an array, or the document itself.
func decodeValues(data []byte) ([]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []any{}, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			return nil, fmt.Errorf("decode response at offset %d: %w", syntax.Offset, err)
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if arr, ok := v.([]any); ok {
		return arr, nil
	}
	return []any{v}, nil
}
