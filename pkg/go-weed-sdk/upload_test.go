package weed

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFid = MustParseFileID("3,01637037d6")

// capturedUpload is what a test volume server saw.
type capturedUpload struct {
	method      string
	path        string
	query       string
	contentType string
	auth        string
	contentMD5  string
	body        []byte
}

// newVolume starts a volume server running handler. Every request it sees is
// sent on the returned channel.
func newVolume(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body []byte)) (*VolumeClient, <-chan capturedUpload) {
	t.Helper()
	seen := make(chan capturedUpload, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen <- capturedUpload{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			contentMD5:  r.Header.Get("Content-MD5"),
			body:        body,
		}
		handler(w, r, body)
	}))
	t.Cleanup(srv.Close)

	v, err := NewVolumeClient(srv.URL)
	require.NoError(t, err)
	return v, seen
}

func created(w http.ResponseWriter, r *http.Request, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	io.WriteString(w, `{"size":`+strconv.Itoa(len(body))+`,"eTag":"abcd1234"}`)
}

func TestUploadRaw(t *testing.T) {
	v, seen := newVolume(t, created)

	result, err := v.Upload(context.Background(), testFid, RawPayload{Data: []byte("Hello World!")}, nil)
	require.NoError(t, err)
	got := <-seen

	assert.Equal(t, int64(12), result.Size)
	assert.Equal(t, "abcd1234", result.ETag)
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/3,01637037d6", got.path)
	assert.Equal(t, "application/octet-stream", got.contentType)
	assert.Equal(t, "Hello World!", string(got.body))
	assert.Empty(t, got.auth)
	assert.Empty(t, got.query)
}

func TestUploadRawMimeType(t *testing.T) {
	v, seen := newVolume(t, created)

	_, err := v.UploadBytes(context.Background(), testFid, []byte("{}"), &UploadOptions{MimeType: "application/json"})
	require.NoError(t, err)
	got := <-seen
	assert.Equal(t, "application/json", got.contentType)
}

func TestUploadMultipart(t *testing.T) {
	v, seen := newVolume(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		part, err := multipart.NewReader(strings.NewReader(string(body)), params["boundary"]).NextPart()
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(part)

		assert.Equal(t, "file", part.FormName())
		assert.Equal(t, "hello.txt", part.FileName())
		assert.Equal(t, "text/plain", part.Header.Get("Content-Type"))

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"name":"hello.txt","size":`+strconv.Itoa(len(data))+`,"mime":"text/plain"}`)
	})

	result, err := v.UploadMultipart(context.Background(), testFid, []byte("Hello World!"), "hello.txt", "text/plain", nil)
	require.NoError(t, err)
	got := <-seen

	assert.Equal(t, int64(12), result.Size)
	assert.Equal(t, "hello.txt", result.Name)
	assert.Equal(t, http.MethodPost, got.method)
	assert.True(t, strings.HasPrefix(got.contentType, "multipart/form-data; boundary="))
}

func TestMultipartPayloadFallsBackToOptions(t *testing.T) {
	enc, err := MultipartPayload{Data: []byte("x")}.encode(&UploadOptions{FileName: `a "b".txt`, MimeType: "text/csv"})
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(enc.contentType)
	require.NoError(t, err)
	part, err := multipart.NewReader(strings.NewReader(string(enc.body)), params["boundary"]).NextPart()
	require.NoError(t, err)
	assert.Equal(t, `a "b".txt`, part.FileName())
	assert.Equal(t, "text/csv", part.Header.Get("Content-Type"))

	enc, err = MultipartPayload{Data: []byte("x")}.encode(nil)
	require.NoError(t, err)
	_, params, err = mime.ParseMediaType(enc.contentType)
	require.NoError(t, err)
	part, err = multipart.NewReader(strings.NewReader(string(enc.body)), params["boundary"]).NextPart()
	require.NoError(t, err)
	assert.Empty(t, part.FileName())
	assert.Equal(t, "application/octet-stream", part.Header.Get("Content-Type"))
}

func TestUploadOccupiedKeyIsRejected(t *testing.T) {
	v, _ := newVolume(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error":"file 3,01637037d6 already has data"}`)
	})

	_, err := v.UploadBytes(context.Background(), testFid, []byte("again"), nil)
	require.ErrorIs(t, err, ErrUploadRejected)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "already has data")
}

func TestUploadReadOnlyVolume(t *testing.T) {
	v, _ := newVolume(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"volume 3 is read only"}`)
	})

	_, err := v.UploadBytes(context.Background(), testFid, []byte("x"), nil)
	assert.ErrorIs(t, err, ErrUploadRejected)
}

func TestUploadErrorFieldOnSuccess(t *testing.T) {
	v, _ := newVolume(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		io.WriteString(w, `{"error":"cookie mismatch"}`)
	})

	_, err := v.UploadBytes(context.Background(), testFid, []byte("x"), nil)
	assert.ErrorIs(t, err, ErrUploadRejected)
}

func TestUploadUndecodableResponse(t *testing.T) {
	v, _ := newVolume(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `not json`)
	})

	_, err := v.UploadBytes(context.Background(), testFid, []byte("x"), nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestUploadUnreachableVolume(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	v, err := NewVolumeClient(addr, WithTimeout(2*time.Second))
	require.NoError(t, err)

	_, err = v.UploadBytes(context.Background(), testFid, []byte("x"), nil)
	require.ErrorIs(t, err, ErrTransport)
	assert.True(t, IsRetryable(err))
}

func TestUploadNilPayload(t *testing.T) {
	v, err := NewVolumeClient("localhost:8080")
	require.NoError(t, err)

	_, err = v.Upload(context.Background(), testFid, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = v.Upload(context.Background(), testFid, (*RawPayload)(nil), nil)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = v.Upload(context.Background(), testFid, (*MultipartPayload)(nil), nil)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestUploadOptionsOnTheWire(t *testing.T) {
	v, seen := newVolume(t, created)

	data := []byte("Hello World!")
	_, err := v.UploadBytes(context.Background(), testFid, data, &UploadOptions{
		TTL:     TTL{Count: 3, Unit: TTLDay},
		Auth:    "issued-token",
		SendMD5: true,
	})
	require.NoError(t, err)
	got := <-seen

	assert.Equal(t, "ttl=3d", got.query)
	assert.Equal(t, "BEARER issued-token", got.auth)
	assert.Equal(t, contentMD5(data), got.contentMD5)
}

func TestUploadSignsToken(t *testing.T) {
	key := []byte("volume secret")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "BEARER ")
		token, err := jwt.ParseWithClaims(raw, &FileIDClaims{}, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"wrong jwt"}`)
			return
		}
		assert.Equal(t, "3,01637037d6", token.Claims.(*FileIDClaims).Fid)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"size":1}`)
	}))
	t.Cleanup(srv.Close)

	signed, err := NewVolumeClient(srv.URL, WithSigningKey(key), WithTokenTTL(time.Minute))
	require.NoError(t, err)
	_, err = signed.UploadBytes(context.Background(), testFid, []byte("x"), nil)
	require.NoError(t, err)

	wrong, err := NewVolumeClient(srv.URL, WithSigningKey([]byte("other")))
	require.NoError(t, err)
	_, err = wrong.UploadBytes(context.Background(), testFid, []byte("x"), nil)
	assert.ErrorIs(t, err, ErrUploadRejected)
}

func TestUploadProgress(t *testing.T) {
	v, _ := newVolume(t, created)

	var last atomic.Int64
	data := []byte(strings.Repeat("a", 64<<10))
	_, err := v.UploadBytes(context.Background(), testFid, data, &UploadOptions{
		OnProgress: func(sent int64) { last.Store(sent) },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), last.Load())
}

func TestUploadEmptyBody(t *testing.T) {
	v, seen := newVolume(t, created)

	result, err := v.UploadBytes(context.Background(), testFid, nil, &UploadOptions{OnProgress: func(int64) {}})
	require.NoError(t, err)
	got := <-seen
	assert.Equal(t, int64(0), result.Size)
	assert.Empty(t, got.body)
}

func TestUploadResultVerify(t *testing.T) {
	data := []byte("Hello World!")
	ok := &UploadResult{Size: 12, ContentMD5: contentMD5(data)}
	assert.NoError(t, ok.Verify(data))

	assert.NoError(t, (&UploadResult{Size: 12}).Verify(data))
	assert.ErrorIs(t, (&UploadResult{Size: 11}).Verify(data), ErrChecksumMismatch)
	assert.ErrorIs(t, (&UploadResult{Size: 12, ContentMD5: contentMD5([]byte("other"))}).Verify(data), ErrChecksumMismatch)
}

func TestVolumeClientsAreIndependent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"size":1}`)
	}))
	t.Cleanup(srv.Close)

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			v, err := NewVolumeClient(srv.URL)
			if err != nil {
				done <- err
				return
			}
			_, err = v.UploadBytes(context.Background(), testFid, []byte("x"), nil)
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
	assert.Equal(t, int32(8), calls.Load())
}
