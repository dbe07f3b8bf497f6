package weed

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// Stored describes a file written by Put.
type Stored struct {
	FileID   FileID
	Location Location
	Upload   *UploadResult
}

// Put assigns a new file id and uploads payload to the primary location.
// The master's write token, if any, is forwarded unless uopts carries one.
func (c *Client) Put(ctx context.Context, payload Payload, aopts *AssignOptions, uopts *UploadOptions) (*Stored, error) {
	assignment, err := c.Assign(ctx, aopts)
	if err != nil {
		return nil, err
	}
	volume, err := c.Volume(assignment.Location)
	if err != nil {
		return nil, err
	}

	opts := UploadOptions{}
	if uopts != nil {
		opts = *uopts
	}
	if opts.Auth == "" {
		opts.Auth = assignment.Auth
	}

	result, err := volume.Upload(ctx, assignment.FileID, payload, &opts)
	if err != nil {
		return nil, err
	}
	return &Stored{
		FileID:   assignment.FileID,
		Location: assignment.Location,
		Upload:   result,
	}, nil
}

// PutFile uploads a local file as a multipart form carrying its base name.
// The content type is guessed from the extension unless uopts sets one.
func (c *Client) PutFile(ctx context.Context, localPath string, aopts *AssignOptions, uopts *UploadOptions) (*Stored, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	payload := MultipartPayload{
		Data:     data,
		FileName: filepath.Base(localPath),
	}
	if uopts == nil || uopts.MimeType == "" {
		payload.MimeType = mime.TypeByExtension(filepath.Ext(localPath))
	}
	return c.Put(ctx, payload, aopts, uopts)
}

// Get looks up fid and reads its content from the picked location.
func (c *Client) Get(ctx context.Context, fid FileID, opts *ReadOptions) ([]byte, error) {
	volume, err := c.Locate(ctx, fid)
	if err != nil {
		return nil, err
	}
	return volume.Download(ctx, fid, opts)
}

// GetTo looks up fid and streams its content to w.
func (c *Client) GetTo(ctx context.Context, fid FileID, w io.Writer, opts *ReadOptions) (int64, error) {
	volume, err := c.Locate(ctx, fid)
	if err != nil {
		return 0, err
	}
	return volume.DownloadTo(ctx, fid, w, opts)
}

// GetToFile writes the content of fid to a local file. The content lands in
// a temporary file next to localPath and replaces it only once the read has
// succeeded, so a failed read leaves any existing file untouched.
func (c *Client) GetToFile(ctx context.Context, fid FileID, localPath string, opts *ReadOptions) (n int64, err error) {
	out, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".*.part")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(out.Name())
		}
	}()

	n, err = c.GetTo(ctx, fid, out, opts)
	if err != nil {
		return 0, err
	}
	if err = out.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	if err = os.Rename(out.Name(), localPath); err != nil {
		return 0, fmt.Errorf("failed to replace %s: %w", localPath, err)
	}
	return n, nil
}

// Remove looks up fid and deletes it.
func (c *Client) Remove(ctx context.Context, fid FileID, opts *DeleteOptions) (*DeleteResult, error) {
	volume, err := c.Locate(ctx, fid)
	if err != nil {
		return nil, err
	}
	return volume.Delete(ctx, fid, opts)
}
