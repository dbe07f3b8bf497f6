package weed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Assignment is the master's answer to an assign request.
type Assignment struct {
	// Count is the number of ids granted; never more than requested.
	Count    int
	FileID   FileID
	Location Location
	Replicas []Location
	// Auth is the write token issued by the master, if it issues any.
	Auth string
}

// FileIDs returns every id granted: FileID followed by its batch siblings.
// All of them are written through Location.
func (a *Assignment) FileIDs() []FileID {
	return a.FileID.Batch(a.Count)
}

// Locations returns the primary location followed by any replica locations.
func (a *Assignment) Locations() []Location {
	locations := make([]Location, 0, 1+len(a.Replicas))
	locations = append(locations, a.Location)
	return append(locations, a.Replicas...)
}

type assignResponse struct {
	Fid       string     `json:"fid"`
	URL       string     `json:"url"`
	PublicURL string     `json:"publicUrl"`
	Count     int        `json:"count"`
	Auth      string     `json:"auth"`
	Replicas  []Location `json:"replicas"`
	Error     string     `json:"error"`
}

// Assign asks the master for a new file id and the volume server to write it
// to. A nil opts requests a single id with server defaults.
//
// Failures are reported as ErrAllocation when the master cannot be reached,
// ErrAllocationRejected when it refuses, and ErrDecode when its answer does
// not parse.
func (c *Client) Assign(ctx context.Context, opts *AssignOptions) (*Assignment, error) {
	const op = "assign"

	q, err := opts.values()
	if err != nil {
		return nil, err
	}
	requested := opts.requestedCount()
	target := encodeQuery(c.baseURL+"/dir/assign", q)

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("assign: %w", err)
	}
	resp, err := c.cfg.send(ctx, op, req)
	if err != nil {
		return nil, newRemoteError(ErrAllocation, op, target, 0, "", err)
	}
	body, err := readBody(resp, maxJSONBody)
	if err != nil {
		return nil, newRemoteError(ErrAllocation, op, target, resp.StatusCode, "failed to read response", err)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, newRemoteError(ErrAllocationRejected, op, target, resp.StatusCode, errorMessage(body), nil)
	}

	var ar assignResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, newRemoteError(ErrDecode, op, target, resp.StatusCode, "", err)
	}
	if ar.Error != "" {
		return nil, newRemoteError(ErrAllocationRejected, op, target, resp.StatusCode, ar.Error, nil)
	}

	assignment, err := ar.assignment(requested)
	if err != nil {
		return nil, newRemoteError(ErrDecode, op, target, resp.StatusCode, "", err)
	}

	c.cfg.logger.DebugContext(ctx, "assigned file id", "fid", assignment.FileID.String(), "url", assignment.Location.URL, "count", assignment.Count)
	return assignment, nil
}

func (r *assignResponse) assignment(requested int) (*Assignment, error) {
	if r.Fid == "" {
		return nil, errors.New("missing fid")
	}
	fid, err := ParseFileID(r.Fid)
	if err != nil {
		return nil, err
	}
	if r.URL == "" {
		return nil, errors.New("missing url")
	}
	if _, err := ParseVolumeAddress(r.URL); err != nil {
		return nil, err
	}

	count := r.Count
	if count == 0 {
		count = 1
	}
	if count < 0 || count > requested {
		return nil, fmt.Errorf("master granted %d ids for %d requested", count, requested)
	}

	return &Assignment{
		Count:    count,
		FileID:   fid,
		Location: Location{URL: r.URL, PublicURL: r.PublicURL},
		Replicas: r.Replicas,
		Auth:     r.Auth,
	}, nil
}
