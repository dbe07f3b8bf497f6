// Package weedtest runs an in-memory master and volume servers over
// httptest, for exercising the SDK and the CLI end to end.
package weedtest

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	weed "eddisonso.com/go-weed/pkg/go-weed-sdk"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
)

// NoFreeVolumes is the master's answer when no volume server is writable.
const NoFreeVolumes = "No free volumes left!"

// Option configures a Cluster.
type Option func(*Cluster)

// WithVolumeServers sets how many volume servers are started (default 1).
func WithVolumeServers(n int) Option {
	return func(c *Cluster) {
		c.volumeCount = n
	}
}

// WithSecret makes the volume servers require write tokens signed with key.
func WithSecret(key []byte) Option {
	return func(c *Cluster) {
		c.secret = key
	}
}

// WithIssuedAuth makes the master hand out write tokens with each assignment.
// It requires WithSecret.
func WithIssuedAuth() Option {
	return func(c *Cluster) {
		c.issueAuth = true
	}
}

// WithLogger sets the logger of the fake servers.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cluster) {
		c.logger = logger
	}
}

// Cluster is a master with its volume servers.
type Cluster struct {
	master  *httptest.Server
	Volumes []*Volume

	volumeCount int
	secret      []byte
	issueAuth   bool
	logger      *slog.Logger

	mu          sync.Mutex
	nextKey     uint64
	next        int
	assignError *failure
	requestIDs  []string
}

type failure struct {
	status  int
	message string
}

// NewCluster starts a cluster and stops it when t finishes.
func NewCluster(t cleaner, opts ...Option) *Cluster {
	c := &Cluster{
		volumeCount: 1,
		logger:      slog.New(slog.DiscardHandler),
		nextKey:     firstKey,
	}
	for _, opt := range opts {
		opt(c)
	}

	for i := 0; i < c.volumeCount; i++ {
		c.Volumes = append(c.Volumes, newVolume(c, uint32(i+1)))
	}
	c.master = httptest.NewServer(c.router())
	t.Cleanup(c.Close)
	return c
}

// cleaner is the subset of testing.TB the cluster needs.
type cleaner interface {
	Cleanup(func())
}

// MasterAddress returns the master's "host:port".
func (c *Cluster) MasterAddress() string {
	return strings.TrimPrefix(c.master.URL, "http://")
}

// Close stops every server of the cluster.
func (c *Cluster) Close() {
	c.master.Close()
	for _, v := range c.Volumes {
		v.server.Close()
	}
}

// FailAssign makes every following assignment fail with status and an error
// body carrying message. A zero status restores normal operation.
func (c *Cluster) FailAssign(status int, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status == 0 {
		c.assignError = nil
		return
	}
	c.assignError = &failure{status: status, message: message}
}

// RequestIDs returns the X-Request-ID values seen by every server, in order.
func (c *Cluster) RequestIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requestIDs...)
}

// Volume returns the volume server holding volumeID, or nil.
func (c *Cluster) Volume(volumeID uint32) *Volume {
	for _, v := range c.Volumes {
		if v.ID == volumeID {
			return v
		}
	}
	return nil
}

func (c *Cluster) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			c.mu.Lock()
			c.requestIDs = append(c.requestIDs, id)
			c.mu.Unlock()
			w.Header().Set("X-Request-ID", id)
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Cluster) router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(c.recordRequest)
	r.Get("/dir/assign", c.handleAssign)
	r.Get("/dir/lookup", c.handleLookup)
	return r
}

type assignResponse struct {
	Fid       string          `json:"fid,omitempty"`
	URL       string          `json:"url,omitempty"`
	PublicURL string          `json:"publicUrl,omitempty"`
	Count     int             `json:"count,omitempty"`
	Auth      string          `json:"auth,omitempty"`
	Replicas  []weed.Location `json:"replicas,omitempty"`
}

func (c *Cluster) handleAssign(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	count := 1
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid count %q", raw))
			return
		}
		count = n
	}
	copies := 1
	if raw := q.Get("replication"); raw != "" {
		rp, err := weed.ParseReplicaPlacement(raw)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		copies = rp.CopyCount()
	}

	c.mu.Lock()
	if c.assignError != nil {
		f := *c.assignError
		c.mu.Unlock()
		renderError(w, r, f.status, f.message)
		return
	}
	volumes := c.writableVolumes(q.Get("dataNode"))
	if len(volumes) == 0 {
		c.mu.Unlock()
		renderError(w, r, http.StatusNotAcceptable, NoFreeVolumes)
		return
	}
	if copies > len(volumes) {
		c.mu.Unlock()
		renderError(w, r, http.StatusNotAcceptable, fmt.Sprintf("cannot place %d copies on %d servers", copies, len(volumes)))
		return
	}

	start := c.next
	c.next++
	key := c.nextKey
	c.nextKey += uint64(count)
	c.mu.Unlock()

	primary := volumes[start%len(volumes)]
	fid := weed.FileID{VolumeID: primary.ID, Key: key, Cookie: cookieFor(key)}
	resp := assignResponse{
		Fid:       fid.String(),
		URL:       primary.Address(),
		PublicURL: primary.Address(),
		Count:     count,
	}
	for i := 1; i < copies; i++ {
		replica := volumes[(start+i)%len(volumes)]
		resp.Replicas = append(resp.Replicas, weed.Location{URL: replica.Address(), PublicURL: replica.Address()})
	}
	if c.issueAuth {
		token, err := c.signToken(fid)
		if err != nil {
			renderError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Auth = token
	}

	c.logger.Debug("assigned file id", "fid", resp.Fid, "url", resp.URL, "count", count)
	render.JSON(w, r, resp)
}

// writableVolumes lists the writable servers, restricted to dataNode when
// it names one. The caller holds c.mu.
func (c *Cluster) writableVolumes(dataNode string) []*Volume {
	var out []*Volume
	for _, v := range c.Volumes {
		if v.isReadOnly() {
			continue
		}
		if dataNode != "" && v.Address() != dataNode {
			continue
		}
		out = append(out, v)
	}
	return out
}

type lookupResponse struct {
	VolumeOrFileID string          `json:"volumeOrFileId"`
	Locations      []weed.Location `json:"locations"`
}

func (c *Cluster) handleLookup(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("volumeId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown volume id %q", raw))
		return
	}
	v := c.Volume(uint32(id))
	if v == nil {
		renderError(w, r, http.StatusNotFound, fmt.Sprintf("volume id %d not found", id))
		return
	}
	render.JSON(w, r, lookupResponse{
		VolumeOrFileID: raw,
		Locations:      []weed.Location{{URL: v.Address(), PublicURL: v.Address()}},
	})
}

func (c *Cluster) signToken(fid weed.FileID) (string, error) {
	claims := weed.FileIDClaims{
		Fid: fid.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// verifyToken checks a BEARER write token for fid. Tokens for the first id
// of a batch cover its siblings.
func (c *Cluster) verifyToken(header string, fid weed.FileID) error {
	raw, ok := strings.CutPrefix(header, "BEARER ")
	if !ok || raw == "" {
		return fmt.Errorf("missing write token")
	}
	token, err := jwt.ParseWithClaims(raw, &weed.FileIDClaims{}, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("invalid write token: %w", err)
	}
	claims, ok := token.Claims.(*weed.FileIDClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("invalid write token claims")
	}
	if claims.Fid != fid.String() && claims.Fid != fid.WithDelta(0).String() {
		return fmt.Errorf("write token is for %s, not %s", claims.Fid, fid)
	}
	return nil
}

// firstKey is the key of the first assignment; with its cookie the first
// file id on volume 1 is "1,01637037d6".
const firstKey = 0x01637037

// cookieFor derives a stable cookie from a key so runs are reproducible.
func cookieFor(key uint64) uint8 {
	return 0xd6 ^ uint8(key-firstKey)
}
