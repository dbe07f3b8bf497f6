package weed

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAllocation indicates the master could not be reached for an assignment.
	ErrAllocation = errors.New("allocation failed")
	// ErrAllocationRejected indicates the master answered but refused the assignment.
	ErrAllocationRejected = errors.New("allocation rejected")
	// ErrMalformedIdentifier indicates a file id string could not be parsed.
	ErrMalformedIdentifier = errors.New("malformed file id")
	// ErrMalformedAddress indicates a volume server address could not be parsed.
	ErrMalformedAddress = errors.New("malformed address")
	// ErrTransport indicates a volume server (or the master, outside of assignment) could not be reached.
	ErrTransport = errors.New("transport failure")
	// ErrUploadRejected indicates the volume server refused a write.
	ErrUploadRejected = errors.New("upload rejected")
	// ErrDecode indicates a response body did not have the expected shape.
	ErrDecode = errors.New("malformed response")
	// ErrLookupRejected indicates the master refused a volume lookup.
	ErrLookupRejected = errors.New("lookup rejected")
	// ErrNotFound indicates the volume server has no data for the file id.
	ErrNotFound = errors.New("file not found")
	// ErrRequestRejected indicates the volume server refused a read or delete.
	ErrRequestRejected = errors.New("request rejected")
	// ErrNoLocations indicates the master returned no location for a volume.
	ErrNoLocations = errors.New("no volume locations available")
	// ErrChecksumMismatch indicates a confirmed write does not match the data sent.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrInvalidOption indicates a caller supplied option could not be encoded.
	ErrInvalidOption = errors.New("invalid option")
)

// RemoteError describes a failed request to the master or a volume server.
//
// Kind is one of the package sentinel errors; Err is the underlying cause, if
// any. Both are reachable through errors.Is and errors.As.
type RemoteError struct {
	Kind       error
	Op         string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.URL != "" {
		b.WriteString(" ")
		b.WriteString(e.URL)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether err is a transport-level failure that is
// generally safe to retry. Rejections by the remote service are not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrAllocation) || errors.Is(err, ErrTransport)
}
