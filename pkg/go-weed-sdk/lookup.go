package weed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

type lookupResponse struct {
	VolumeOrFileID string     `json:"volumeOrFileId"`
	Locations      []Location `json:"locations"`
	Error          string     `json:"error"`
}

// Lookup returns the locations of the volume servers holding volumeID.
func (c *Client) Lookup(ctx context.Context, volumeID uint32, opts *LookupOptions) ([]Location, error) {
	const op = "lookup"

	q := opts.values()
	q.Set("volumeId", strconv.FormatUint(uint64(volumeID), 10))
	target := encodeQuery(c.baseURL+"/dir/lookup", q)

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	resp, err := c.cfg.send(ctx, op, req)
	if err != nil {
		return nil, newRemoteError(ErrTransport, op, target, 0, "", err)
	}
	body, err := readBody(resp, maxJSONBody)
	if err != nil {
		return nil, newRemoteError(ErrTransport, op, target, resp.StatusCode, "failed to read response", err)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, newRemoteError(ErrLookupRejected, op, target, resp.StatusCode, errorMessage(body), nil)
	}

	var lr lookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, newRemoteError(ErrDecode, op, target, resp.StatusCode, "", err)
	}
	if lr.Error != "" {
		return nil, newRemoteError(ErrLookupRejected, op, target, resp.StatusCode, lr.Error, nil)
	}
	if len(lr.Locations) == 0 {
		return nil, newRemoteError(ErrNoLocations, op, target, resp.StatusCode, "", nil)
	}
	return lr.Locations, nil
}

// LookupFileID returns the locations of the volume holding fid.
func (c *Client) LookupFileID(ctx context.Context, fid FileID, opts *LookupOptions) ([]Location, error) {
	return c.Lookup(ctx, fid.VolumeID, opts)
}

// Locate looks up fid and returns a volume client for the location chosen by
// the configured LocationPicker.
func (c *Client) Locate(ctx context.Context, fid FileID) (*VolumeClient, error) {
	locations, err := c.LookupFileID(ctx, fid, &LookupOptions{Read: true})
	if err != nil {
		return nil, err
	}
	loc, ok := c.cfg.locationPicker(locations)
	if !ok {
		return nil, ErrNoLocations
	}
	return c.Volume(loc)
}
