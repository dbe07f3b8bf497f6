package weed

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const defaultMimeType = "application/octet-stream"

// DefaultFormField is the form field name of a multipart upload.
const DefaultFormField = "file"

// Payload is the body of an upload. It is either a RawPayload or a
// MultipartPayload; the choice decides the request shape.
type Payload interface {
	encode(opts *UploadOptions) (*encodedPayload, error)
}

type encodedPayload struct {
	mode        string
	method      string
	contentType string
	body        []byte
	data        []byte
}

// RawPayload sends Data as the whole request body. The content type comes
// from UploadOptions.MimeType, defaulting to application/octet-stream.
type RawPayload struct {
	Data []byte
}

func (p RawPayload) encode(opts *UploadOptions) (*encodedPayload, error) {
	contentType := defaultMimeType
	if opts != nil && opts.MimeType != "" {
		contentType = opts.MimeType
	}
	return &encodedPayload{
		mode:        "raw",
		method:      http.MethodPut,
		contentType: contentType,
		body:        p.Data,
		data:        p.Data,
	}, nil
}

// MultipartPayload wraps Data in a single multipart/form-data file part, the
// way a browser uploads a file. FileName and MimeType set here take
// precedence over the ones in UploadOptions.
type MultipartPayload struct {
	Data      []byte
	FieldName string
	FileName  string
	MimeType  string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (p MultipartPayload) encode(opts *UploadOptions) (*encodedPayload, error) {
	field := p.FieldName
	if field == "" {
		field = DefaultFormField
	}
	fileName, mimeType := p.FileName, p.MimeType
	if opts != nil {
		if fileName == "" {
			fileName = opts.FileName
		}
		if mimeType == "" {
			mimeType = opts.MimeType
		}
	}
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	disposition := fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(field))
	if fileName != "" {
		disposition += fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(fileName))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", disposition)
	header.Set("Content-Type", mimeType)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(p.Data); err != nil {
		return nil, fmt.Errorf("failed to write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	return &encodedPayload{
		mode:        "multipart",
		method:      http.MethodPost,
		contentType: w.FormDataContentType(),
		body:        buf.Bytes(),
		data:        p.Data,
	}, nil
}

// UploadResult is the volume server's confirmation of a write.
type UploadResult struct {
	Name       string `json:"name,omitempty"`
	Size       int64  `json:"size"`
	ETag       string `json:"eTag,omitempty"`
	Mime       string `json:"mime,omitempty"`
	ContentMD5 string `json:"contentMd5,omitempty"`
}

type uploadResponse struct {
	UploadResult
	Error string `json:"error"`
}

// Verify checks the confirmed size, and the echoed MD5 when the server sent
// one, against data.
func (r *UploadResult) Verify(data []byte) error {
	if r.Size != int64(len(data)) {
		return fmt.Errorf("%w: stored %d bytes, sent %d", ErrChecksumMismatch, r.Size, len(data))
	}
	if r.ContentMD5 != "" && r.ContentMD5 != contentMD5(data) {
		return fmt.Errorf("%w: content md5 %s does not match", ErrChecksumMismatch, r.ContentMD5)
	}
	return nil
}

func contentMD5(data []byte) string {
	sum := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Upload writes payload to fid. It never retries: a second write to the
// same id may be refused by the server.
//
// Failures are reported as ErrTransport when the server cannot be reached,
// ErrUploadRejected when it refuses the write, and ErrDecode when its answer
// does not parse.
func (v *VolumeClient) Upload(ctx context.Context, fid FileID, payload Payload, opts *UploadOptions) (*UploadResult, error) {
	const op = "upload"

	switch p := payload.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidOption)
	case *RawPayload:
		if p == nil {
			return nil, fmt.Errorf("%w: nil payload", ErrInvalidOption)
		}
	case *MultipartPayload:
		if p == nil {
			return nil, fmt.Errorf("%w: nil payload", ErrInvalidOption)
		}
	}
	enc, err := payload.encode(opts)
	if err != nil {
		return nil, err
	}
	token, err := v.cfg.authToken(opts.auth(), fid)
	if err != nil {
		return nil, err
	}

	target := encodeQuery(v.FileURL(fid), opts.values())
	req, err := http.NewRequest(enc.method, target, opts.wrapBody(enc.body))
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	req.ContentLength = int64(len(enc.body))
	if req.ContentLength == 0 {
		req.Body = http.NoBody
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(enc.body)), nil
	}
	req.Header.Set("Content-Type", enc.contentType)
	if token != "" {
		req.Header.Set("Authorization", "BEARER "+token)
	}
	if opts != nil && opts.SendMD5 {
		req.Header.Set("Content-MD5", contentMD5(enc.data))
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
		return nil, newRemoteError(ErrUploadRejected, op, target, resp.StatusCode, errorMessage(body), nil)
	}

	var ur uploadResponse
	if err := json.Unmarshal(body, &ur); err != nil {
		return nil, newRemoteError(ErrDecode, op, target, resp.StatusCode, "", err)
	}
	if ur.Error != "" {
		return nil, newRemoteError(ErrUploadRejected, op, target, resp.StatusCode, ur.Error, nil)
	}

	v.cfg.logger.DebugContext(ctx, "uploaded", "fid", fid.String(), "mode", enc.mode, "size", ur.Size, "etag", ur.ETag)
	result := ur.UploadResult
	return &result, nil
}

// UploadBytes is shorthand for a raw upload.
func (v *VolumeClient) UploadBytes(ctx context.Context, fid FileID, data []byte, opts *UploadOptions) (*UploadResult, error) {
	return v.Upload(ctx, fid, RawPayload{Data: data}, opts)
}

// UploadMultipart is shorthand for a multipart upload carrying fileName and
// mimeType.
func (v *VolumeClient) UploadMultipart(ctx context.Context, fid FileID, data []byte, fileName, mimeType string, opts *UploadOptions) (*UploadResult, error) {
	return v.Upload(ctx, fid, MultipartPayload{Data: data, FileName: fileName, MimeType: mimeType}, opts)
}

func (o *UploadOptions) auth() string {
	if o == nil {
		return ""
	}
	return o.Auth
}

func (o *UploadOptions) wrapBody(body []byte) io.Reader {
	r := bytes.NewReader(body)
	if o == nil || o.OnProgress == nil {
		return r
	}
	return &progressReader{r: r, fn: o.OnProgress}
}

// progressReader reports the running byte count of reads from r.
type progressReader struct {
	r    io.Reader
	sent int64
	fn   ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.sent += int64(n)
		pr.fn(pr.sent)
	}
	return n, err
}
