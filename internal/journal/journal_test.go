package journal

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)

	rec := Record{
		FileID:     "3,01637037d6",
		Name:       "hello.txt",
		Size:       12,
		ETag:       "abcd1234",
		Mime:       "text/plain",
		VolumeURL:  "127.0.0.1:8080",
		UploadedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, j.Put(ctx, rec))

	got, err := j.Get(ctx, rec.FileID)
	require.NoError(t, err)
	assert.Equal(t, rec, *got)

	require.NoError(t, j.Delete(ctx, rec.FileID))
	_, err = j.Get(ctx, rec.FileID)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = j.Delete(ctx, rec.FileID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPutRequiresFileID(t *testing.T) {
	assert.Error(t, openJournal(t).Put(context.Background(), Record{Name: "x"}))
}

func TestAllOrdersByUploadTime(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.Put(ctx, Record{FileID: "1,02aa", UploadedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, j.Put(ctx, Record{FileID: "2,01bb", UploadedAt: base}))
	require.NoError(t, j.Put(ctx, Record{FileID: "1,03cc", UploadedAt: base.Add(time.Hour)}))

	records, err := j.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2,01bb", records[0].FileID)
	assert.Equal(t, "1,03cc", records[1].FileID)
	assert.Equal(t, "1,02aa", records[2].FileID)
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	j, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, j.Put(ctx, Record{FileID: "5,0ab3c4", Size: 3}))
	require.NoError(t, j.Close())

	j, err = Open(dir)
	require.NoError(t, err)
	defer j.Close()

	rec, err := j.Get(ctx, "5,0ab3c4")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Size)
}
