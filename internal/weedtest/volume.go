package weedtest

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	weed "eddisonso.com/go-weed/pkg/go-weed-sdk"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
)

// Blob is a file held by a fake volume server.
type Blob struct {
	Data []byte
	Name string
	Mime string
	// Method is the HTTP method of the write: PUT for raw, POST for multipart.
	Method string
}

// Volume is a fake volume server holding one volume.
type Volume struct {
	ID      uint32
	cluster *Cluster
	server  *httptest.Server

	mu       sync.Mutex
	blobs    map[string]Blob
	readOnly bool
}

func newVolume(c *Cluster, id uint32) *Volume {
	v := &Volume{
		ID:      id,
		cluster: c,
		blobs:   make(map[string]Blob),
	}
	v.server = httptest.NewServer(v.router())
	return v
}

// Address returns the server's "host:port".
func (v *Volume) Address() string {
	return strings.TrimPrefix(v.server.URL, "http://")
}

// SetReadOnly makes the server refuse writes.
func (v *Volume) SetReadOnly(readOnly bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.readOnly = readOnly
}

func (v *Volume) isReadOnly() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.readOnly
}

// Blob returns the stored content of fid.
func (v *Volume) Blob(fid string) (Blob, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.blobs[fid]
	return b, ok
}

// Len returns the number of files stored.
func (v *Volume) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.blobs)
}

func (v *Volume) router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(v.cluster.recordRequest)
	r.Put("/{fid}", v.handleWrite)
	r.Post("/{fid}", v.handleWrite)
	r.Get("/{fid}", v.handleRead)
	r.Delete("/{fid}", v.handleDelete)
	return r
}

type writeResponse struct {
	Name       string `json:"name,omitempty"`
	Size       int64  `json:"size"`
	ETag       string `json:"eTag"`
	Mime       string `json:"mime,omitempty"`
	ContentMD5 string `json:"contentMd5"`
}

func (v *Volume) fileID(w http.ResponseWriter, r *http.Request) (weed.FileID, bool) {
	fid, err := weed.ParseFileID(chi.URLParam(r, "fid"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return weed.FileID{}, false
	}
	if fid.VolumeID != v.ID {
		renderError(w, r, http.StatusNotFound, fmt.Sprintf("volume %d not found", fid.VolumeID))
		return weed.FileID{}, false
	}
	return fid, true
}

func (v *Volume) authorized(w http.ResponseWriter, r *http.Request, fid weed.FileID) bool {
	if v.cluster.secret == nil {
		return true
	}
	if err := v.cluster.verifyToken(r.Header.Get("Authorization"), fid); err != nil {
		renderError(w, r, http.StatusUnauthorized, err.Error())
		return false
	}
	return true
}

func (v *Volume) handleWrite(w http.ResponseWriter, r *http.Request) {
	fid, ok := v.fileID(w, r)
	if !ok || !v.authorized(w, r, fid) {
		return
	}

	blob, err := readBlob(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sum := md5.Sum(blob.Data)
	if want := r.Header.Get("Content-MD5"); want != "" && want != base64.StdEncoding.EncodeToString(sum[:]) {
		renderError(w, r, http.StatusBadRequest, "Content-MD5 did not match md5 of file data")
		return
	}

	v.mu.Lock()
	if v.readOnly {
		v.mu.Unlock()
		renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("volume %d is read only", v.ID))
		return
	}
	if _, exists := v.blobs[fid.String()]; exists {
		v.mu.Unlock()
		renderError(w, r, http.StatusConflict, fmt.Sprintf("file %s already has data", fid))
		return
	}
	v.blobs[fid.String()] = blob
	v.mu.Unlock()

	v.cluster.logger.Debug("stored file", "fid", fid.String(), "size", len(blob.Data), "method", blob.Method)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, writeResponse{
		Name:       blob.Name,
		Size:       int64(len(blob.Data)),
		ETag:       hex.EncodeToString(sum[:4]),
		Mime:       blob.Mime,
		ContentMD5: base64.StdEncoding.EncodeToString(sum[:]),
	})
}

// readBlob extracts the file from a raw or multipart request body.
func readBlob(r *http.Request) (Blob, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}
	if r.Method == http.MethodPost && mediaType == "multipart/form-data" {
		mr := multipart.NewReader(r.Body, params["boundary"])
		part, err := mr.NextPart()
		if err != nil {
			return Blob{}, fmt.Errorf("failed to read form part: %w", err)
		}
		defer part.Close()
		data, err := io.ReadAll(part)
		if err != nil {
			return Blob{}, fmt.Errorf("failed to read form part: %w", err)
		}
		return Blob{
			Data:   data,
			Name:   part.FileName(),
			Mime:   part.Header.Get("Content-Type"),
			Method: r.Method,
		}, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to read body: %w", err)
	}
	return Blob{Data: data, Mime: mediaType, Method: r.Method}, nil
}

func (v *Volume) handleRead(w http.ResponseWriter, r *http.Request) {
	fid, ok := v.fileID(w, r)
	if !ok {
		return
	}
	blob, found := v.Blob(fid.String())
	if !found {
		renderError(w, r, http.StatusNotFound, fmt.Sprintf("file %s not found", fid))
		return
	}
	if blob.Mime != "" {
		w.Header().Set("Content-Type", blob.Mime)
	}
	w.WriteHeader(http.StatusOK)
	io.Copy(w, bytes.NewReader(blob.Data))
}

type deleteResponse struct {
	Size int64 `json:"size"`
}

func (v *Volume) handleDelete(w http.ResponseWriter, r *http.Request) {
	fid, ok := v.fileID(w, r)
	if !ok || !v.authorized(w, r, fid) {
		return
	}

	v.mu.Lock()
	blob, found := v.blobs[fid.String()]
	delete(v.blobs, fid.String())
	v.mu.Unlock()

	if !found {
		renderError(w, r, http.StatusNotFound, fmt.Sprintf("file %s not found", fid))
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, deleteResponse{Size: int64(len(blob.Data))})
}
