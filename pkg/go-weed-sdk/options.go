package weed

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ReplicaPlacement describes how many extra copies a volume keeps: in other
// data centers, on other racks and on the same rack. It renders as the three
// digit "xyz" string the master expects, e.g. "001".
type ReplicaPlacement struct {
	DiffDataCenter uint8
	DiffRack       uint8
	SameRack       uint8
}

// maxReplicasPerTier is the largest copy count allowed for a single tier.
const maxReplicasPerTier = 2

// ParseReplicaPlacement parses an "xyz" replication string.
func ParseReplicaPlacement(s string) (ReplicaPlacement, error) {
	if len(s) != 3 {
		return ReplicaPlacement{}, fmt.Errorf("%w: replication %q must have three digits", ErrInvalidOption, s)
	}
	var digits [3]uint8
	for i := 0; i < 3; i++ {
		d := s[i] - '0'
		if s[i] < '0' || d > maxReplicasPerTier {
			return ReplicaPlacement{}, fmt.Errorf("%w: replication %q digit %d must be 0..%d", ErrInvalidOption, s, i, maxReplicasPerTier)
		}
		digits[i] = d
	}
	return ReplicaPlacement{DiffDataCenter: digits[0], DiffRack: digits[1], SameRack: digits[2]}, nil
}

func (r ReplicaPlacement) String() string {
	return fmt.Sprintf("%d%d%d", r.DiffDataCenter, r.DiffRack, r.SameRack)
}

// CopyCount returns the total number of copies, the original included.
func (r ReplicaPlacement) CopyCount() int {
	return 1 + int(r.DiffDataCenter) + int(r.DiffRack) + int(r.SameRack)
}

// TTLUnit is the unit suffix of a TTL.
type TTLUnit byte

const (
	TTLMinute TTLUnit = 'm'
	TTLHour   TTLUnit = 'h'
	TTLDay    TTLUnit = 'd'
	TTLWeek   TTLUnit = 'w'
	TTLMonth  TTLUnit = 'M'
	TTLYear   TTLUnit = 'y'
)

// TTL is a time-to-live such as "3d". The zero value means no TTL.
type TTL struct {
	Count uint32
	Unit  TTLUnit
}

// ParseTTL parses "<count><unit>". An empty string yields the zero TTL.
func ParseTTL(s string) (TTL, error) {
	if s == "" {
		return TTL{}, nil
	}
	unit := TTLUnit(s[len(s)-1])
	switch unit {
	case TTLMinute, TTLHour, TTLDay, TTLWeek, TTLMonth, TTLYear:
	default:
		return TTL{}, fmt.Errorf("%w: ttl %q has unknown unit %q", ErrInvalidOption, s, string(unit))
	}
	count, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
	if err != nil || count == 0 {
		return TTL{}, fmt.Errorf("%w: ttl %q needs a positive count", ErrInvalidOption, s)
	}
	return TTL{Count: uint32(count), Unit: unit}, nil
}

// IsZero reports whether the TTL is unset.
func (t TTL) IsZero() bool {
	return t.Count == 0
}

func (t TTL) String() string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatUint(uint64(t.Count), 10) + string(t.Unit)
}

// AssignOptions configures an assignment. Zero fields are left to the master.
type AssignOptions struct {
	Count               int
	Replication         string
	Collection          string
	DataCenter          string
	Rack                string
	DataNode            string // preferred volume server, host:port
	TTL                 TTL
	Preallocate         int64
	WritableVolumeCount int
	DiskType            string
}

func (o *AssignOptions) requestedCount() int {
	if o == nil || o.Count < 1 {
		return 1
	}
	return o.Count
}

func (o *AssignOptions) values() (url.Values, error) {
	q := url.Values{}
	if o == nil {
		return q, nil
	}
	if o.Count < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrInvalidOption, o.Count)
	}
	if o.Count > 0 {
		q.Set("count", strconv.Itoa(o.Count))
	}
	if o.Replication != "" {
		if _, err := ParseReplicaPlacement(o.Replication); err != nil {
			return nil, err
		}
		q.Set("replication", o.Replication)
	}
	setString(q, "collection", o.Collection)
	setString(q, "dataCenter", o.DataCenter)
	setString(q, "rack", o.Rack)
	setString(q, "dataNode", o.DataNode)
	setString(q, "ttl", o.TTL.String())
	if o.Preallocate > 0 {
		q.Set("preallocate", strconv.FormatInt(o.Preallocate, 10))
	}
	if o.WritableVolumeCount > 0 {
		q.Set("writableVolumeCount", strconv.Itoa(o.WritableVolumeCount))
	}
	setString(q, "disk", o.DiskType)
	return q, nil
}

// LookupOptions narrows a volume lookup.
type LookupOptions struct {
	Collection string
	Read       bool
}

func (o *LookupOptions) values() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setString(q, "collection", o.Collection)
	if o.Read {
		q.Set("read", "yes")
	}
	return q
}

// ProgressFunc is called as request bytes are sent with the total so far.
type ProgressFunc func(bytesSent int64)

// UploadOptions carries per-upload metadata. A nil value uses server defaults.
type UploadOptions struct {
	MimeType string
	FileName string
	TTL      TTL

	// Auth is a write token issued by the master. When empty and the client
	// has a signing key, a token is minted locally.
	Auth string

	// Replicate marks the write as a replica copy from another volume server.
	Replicate bool
	// Timestamp overrides the modification time recorded for the file.
	Timestamp time.Time
	// ChunkManifest marks the content as a chunk manifest.
	ChunkManifest bool
	// SendMD5 adds a Content-MD5 header the server verifies.
	SendMD5 bool

	OnProgress ProgressFunc
}

func (o *UploadOptions) values() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setString(q, "ttl", o.TTL.String())
	if !o.Timestamp.IsZero() {
		q.Set("ts", strconv.FormatInt(o.Timestamp.Unix(), 10))
	}
	if o.ChunkManifest {
		q.Set("cm", "true")
	}
	if o.Replicate {
		q.Set("type", "replicate")
	}
	return q
}

// ResizeMode selects how an image is resized on read.
type ResizeMode string

const (
	ResizeFit  ResizeMode = "fit"
	ResizeFill ResizeMode = "fill"
)

// ReadOptions configures a download.
type ReadOptions struct {
	ReadDeleted bool
	Width       int
	Height      int
	Mode        ResizeMode
	CropX1      int
	CropY1      int
	CropX2      int
	CropY2      int
}

func (o *ReadOptions) values() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if o.ReadDeleted {
		q.Set("readDeleted", "true")
	}
	setInt(q, "width", o.Width)
	setInt(q, "height", o.Height)
	setString(q, "mode", string(o.Mode))
	setInt(q, "crop_x1", o.CropX1)
	setInt(q, "crop_y1", o.CropY1)
	setInt(q, "crop_x2", o.CropX2)
	setInt(q, "crop_y2", o.CropY2)
	return q
}

// DeleteOptions configures a delete.
type DeleteOptions struct {
	Auth string
	// Timestamp is recorded as the deletion time.
	Timestamp time.Time
}

func (o *DeleteOptions) values() url.Values {
	q := url.Values{}
	if o != nil && !o.Timestamp.IsZero() {
		q.Set("ts", strconv.FormatInt(o.Timestamp.Unix(), 10))
	}
	return q
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int) {
	if value > 0 {
		q.Set(key, strconv.Itoa(value))
	}
}
