package weed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxJSONBody bounds the size of JSON responses read into memory.
const maxJSONBody = 1 << 20

// maxErrorMessage bounds how much of a non-JSON error body is surfaced.
const maxErrorMessage = 512

// send stamps the common headers on req and performs it. The caller owns the
// response body.
func (cfg *clientConfig) send(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	requestID := cfg.requestID()
	req = req.WithContext(ctx)
	req.Header.Set("X-Request-ID", requestID)
	if cfg.userAgent != "" {
		req.Header.Set("User-Agent", cfg.userAgent)
	}

	cfg.logger.DebugContext(ctx, "sending request", "op", op, "method", req.Method, "url", req.URL.String(), "request_id", requestID)
	resp, err := cfg.httpClient.Do(req)
	if err != nil {
		cfg.logger.WarnContext(ctx, "request failed", "op", op, "url", req.URL.String(), "request_id", requestID, "error", err)
		return nil, err
	}
	cfg.logger.DebugContext(ctx, "received response", "op", op, "status", resp.StatusCode, "request_id", requestID)
	return resp, nil
}

// readBody drains and closes the body, reading at most limit bytes.
func readBody(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// errorBody is the shape of the error field shared by master and volume responses.
type errorBody struct {
	Error string `json:"error"`
}

// errorMessage extracts a human readable message from a failed response.
func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return eb.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}

func newRemoteError(kind error, op, url string, status int, message string, cause error) *RemoteError {
	return &RemoteError{
		Kind:       kind,
		Op:         op,
		URL:        url,
		StatusCode: status,
		Message:    message,
		Err:        cause,
	}
}

// encodeQuery appends an encoded query string to base when q is non-empty.
func encodeQuery(base string, q interface{ Encode() string }) string {
	if encoded := q.Encode(); encoded != "" {
		return base + "?" + encoded
	}
	return base
}
