package weed

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileID(t *testing.T) {
	fid, err := ParseFileID("3,01637037d6")
	require.NoError(t, err)
	assert.Equal(t, FileID{VolumeID: 3, Key: 0x01637037, Cookie: 0xd6}, fid)
	assert.Equal(t, "3,01637037d6", fid.String())
}

func TestParseFileIDDelta(t *testing.T) {
	fid, err := ParseFileID("7,2ab1f00d_3")
	require.NoError(t, err)
	assert.Equal(t, FileID{VolumeID: 7, Key: 0x2ab1f0, Cookie: 0x0d, Delta: 3}, fid)
	assert.Equal(t, "7,2ab1f00d_3", fid.String())
}

func TestParseFileIDZeroKey(t *testing.T) {
	fid, err := ParseFileID("1,0a")
	require.NoError(t, err)
	assert.Equal(t, FileID{VolumeID: 1, Cookie: 0x0a}, fid)
}

func TestParseFileIDRejects(t *testing.T) {
	cases := []string{
		"",
		"3",
		"abc,123",
		"3,d",
		"3,0163zz",
		",01637037d6",
		"-3,01637037d6",
		"03,01637037d6",
		"3,01637037D6",
		"3,1637037d6",
		"3,0001637037d6",
		"3,01637037d6_",
		"3,01637037d6_0",
		"3,01637037d6_x",
		"3,0102030405060708090a",
		"4294967296,01637037d6",
	}
	for _, tc := range cases {
		t.Run(tc, func(t *testing.T) {
			_, err := ParseFileID(tc)
			assert.ErrorIs(t, err, ErrMalformedIdentifier)
		})
	}
}

func TestFileIDRoundTrip(t *testing.T) {
	ids := []FileID{
		{VolumeID: 3, Key: 0x01637037, Cookie: 0xd6},
		{VolumeID: 0, Key: 0, Cookie: 0},
		{VolumeID: 1, Key: 1, Cookie: 0xff},
		{VolumeID: math.MaxUint32, Key: math.MaxUint64, Cookie: 0x10, Delta: 9},
		{VolumeID: 42, Key: 0x100, Cookie: 0x01, Delta: 1},
	}
	for _, fid := range ids {
		parsed, err := ParseFileID(fid.String())
		require.NoError(t, err, fid.String())
		assert.Equal(t, fid, parsed)
	}

	texts := []string{"3,01637037d6", "1,00", "12,ff00_2", "9,0100000000000000aa"}
	for _, text := range texts {
		fid, err := ParseFileID(text)
		require.NoError(t, err, text)
		assert.Equal(t, text, fid.String())
	}
}

func TestFileIDBatch(t *testing.T) {
	fid := MustParseFileID("3,01637037d6")
	batch := fid.Batch(3)
	require.Len(t, batch, 3)
	assert.Equal(t, "3,01637037d6", batch[0].String())
	assert.Equal(t, "3,01637037d6_1", batch[1].String())
	assert.Equal(t, "3,01637037d6_2", batch[2].String())

	assert.Len(t, fid.Batch(0), 1)
}

func TestFileIDText(t *testing.T) {
	type doc struct {
		Fid FileID `json:"fid"`
	}
	b, err := json.Marshal(doc{Fid: MustParseFileID("5,0ab3c4")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fid":"5,0ab3c4"}`, string(b))

	var out doc
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, uint32(5), out.Fid.VolumeID)

	assert.Error(t, json.Unmarshal([]byte(`{"fid":"nope"}`), &out))
}

func TestMustParseFileIDPanics(t *testing.T) {
	assert.Panics(t, func() { MustParseFileID("bad") })
}
