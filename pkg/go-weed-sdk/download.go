package weed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DeleteResult is the volume server's confirmation of a delete.
type DeleteResult struct {
	// Size is the number of bytes the deleted file occupied.
	Size int64 `json:"size"`
}

type deleteResponse struct {
	DeleteResult
	Error string `json:"error"`
}

// Download reads the whole content of fid into memory.
func (v *VolumeClient) Download(ctx context.Context, fid FileID, opts *ReadOptions) ([]byte, error) {
	resp, target, err := v.get(ctx, fid, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newRemoteError(ErrTransport, "download", target, resp.StatusCode, "failed to read content", err)
	}
	return data, nil
}

// DownloadTo streams the content of fid to w and returns the bytes copied.
func (v *VolumeClient) DownloadTo(ctx context.Context, fid FileID, w io.Writer, opts *ReadOptions) (int64, error) {
	resp, target, err := v.get(ctx, fid, opts)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, newRemoteError(ErrTransport, "download", target, resp.StatusCode, "failed to copy content", err)
	}
	return n, nil
}

func (v *VolumeClient) get(ctx context.Context, fid FileID, opts *ReadOptions) (*http.Response, string, error) {
	const op = "download"

	target := encodeQuery(v.FileURL(fid), opts.values())
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, target, fmt.Errorf("download: %w", err)
	}
	resp, err := v.cfg.send(ctx, op, req)
	if err != nil {
		return nil, target, newRemoteError(ErrTransport, op, target, 0, "", err)
	}
	if !isSuccess(resp.StatusCode) {
		body, _ := readBody(resp, maxErrorMessage*2)
		return nil, target, newRemoteError(requestErrorKind(resp.StatusCode), op, target, resp.StatusCode, errorMessage(body), nil)
	}
	return resp, target, nil
}

// Delete removes fid from the volume server. The write token rules of
// Upload apply.
func (v *VolumeClient) Delete(ctx context.Context, fid FileID, opts *DeleteOptions) (*DeleteResult, error) {
	const op = "delete"

	var explicit string
	if opts != nil {
		explicit = opts.Auth
	}
	token, err := v.cfg.authToken(explicit, fid)
	if err != nil {
		return nil, err
	}

	target := encodeQuery(v.FileURL(fid), opts.values())
	req, err := http.NewRequest(http.MethodDelete, target, nil)
	if err != nil {
		return nil, fmt.Errorf("delete: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "BEARER "+token)
	}

	resp, err := v.cfg.send(ctx, op, req)
	if err != nil {
		return nil, newRemoteError(ErrTransport, op, target, 0, "", err)
	}
	body, err := readBody(resp, maxJSONBody)
	if err != nil {
		return nil, newRemoteError(ErrTransport, op, target, resp.StatusCode, "failed to read response", err)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, newRemoteError(requestErrorKind(resp.StatusCode), op, target, resp.StatusCode, errorMessage(body), nil)
	}

	var dr deleteResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &dr); err != nil {
			return nil, newRemoteError(ErrDecode, op, target, resp.StatusCode, "", err)
		}
	}
	if dr.Error != "" {
		return nil, newRemoteError(ErrRequestRejected, op, target, resp.StatusCode, dr.Error, nil)
	}

	v.cfg.logger.DebugContext(ctx, "deleted", "fid", fid.String(), "size", dr.Size)
	result := dr.DeleteResult
	return &result, nil
}

func requestErrorKind(status int) error {
	if status == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrRequestRejected
}
