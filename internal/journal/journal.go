// Package journal keeps a local record of the files uploaded by the CLI so
// they can be listed and removed by file id later.
package journal

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"time"

	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	dslvl "github.com/ipfs/go-ds-leveldb"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when no record exists for a file id.
var ErrNotFound = errors.New("no journal record")

var uploadsPrefix = ds.NewKey("/uploads")

// Record describes one uploaded file.
type Record struct {
	FileID     string    `json:"fid"`
	Name       string    `json:"name,omitempty"`
	Size       int64     `json:"size"`
	ETag       string    `json:"etag,omitempty"`
	Mime       string    `json:"mime,omitempty"`
	VolumeURL  string    `json:"volumeUrl"`
	Collection string    `json:"collection,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Journal is a leveldb backed store of Records keyed by file id.
type Journal struct {
	store *dslvl.Datastore
}

// Open opens or creates the journal under dir.
func Open(dir string) (*Journal, error) {
	store, err := dslvl.NewDatastore(filepath.Join(dir, "uploads"), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open journal in %s", dir)
	}
	return &Journal{store: store}, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.store.Close()
}

func recordKey(fid string) ds.Key {
	return uploadsPrefix.ChildString(fid)
}

// Put stores rec, replacing any record with the same file id.
func (j *Journal) Put(ctx context.Context, rec Record) error {
	if rec.FileID == "" {
		return errors.New("record has no file id")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode record")
	}
	return errors.Wrapf(j.store.Put(ctx, recordKey(rec.FileID), b), "failed to store record %s", rec.FileID)
}

// Get returns the record of fid.
func (j *Journal) Get(ctx context.Context, fid string) (*Record, error) {
	b, err := j.store.Get(ctx, recordKey(fid))
	if errors.Is(err, ds.ErrNotFound) {
		return nil, errors.Wrap(ErrNotFound, fid)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read record %s", fid)
	}

	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, errors.Wrapf(err, "failed to decode record %s", fid)
	}
	return &rec, nil
}

// Delete removes the record of fid.
func (j *Journal) Delete(ctx context.Context, fid string) error {
	k := recordKey(fid)
	exists, err := j.store.Has(ctx, k)
	if err != nil {
		return errors.Wrapf(err, "failed to read record %s", fid)
	}
	if !exists {
		return errors.Wrap(ErrNotFound, fid)
	}
	return errors.Wrapf(j.store.Delete(ctx, k), "failed to delete record %s", fid)
}

// All returns every record, oldest upload first.
func (j *Journal) All(ctx context.Context) ([]*Record, error) {
	res, err := j.store.Query(ctx, dsq.Query{Prefix: uploadsPrefix.String()})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query journal")
	}
	defer res.Close()

	records := make([]*Record, 0)
	for {
		r, hasNext := res.NextSync()
		if !hasNext {
			break
		}
		if r.Error != nil {
			return records, errors.Wrap(r.Error, "failed to read journal")
		}

		var rec Record
		if err := json.Unmarshal(r.Value, &rec); err != nil {
			return records, errors.Wrapf(err, "failed to decode record %s", r.Key)
		}
		records = append(records, &rec)
	}

	sort.SliceStable(records, func(a, b int) bool {
		return records[a].UploadedAt.Before(records[b].UploadedAt)
	})
	return records, nil
}
