package clientcli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"put a.txt", []string{"put", "a.txt"}},
		{"  get\t3,01637037d6  -o out ", []string{"get", "3,01637037d6", "-o", "out"}},
		{`put "my file.txt" --mime 'text/plain'`, []string{"put", "my file.txt", "--mime", "text/plain"}},
		{`put 'it"s'`, []string{"put", `it"s`}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseArgs(tt.line), tt.line)
	}
}

func TestParseVolumeArg(t *testing.T) {
	id, err := parseVolumeArg("7")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), id)

	id, err = parseVolumeArg("3,01637037d6")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)

	_, err = parseVolumeArg("seven")
	assert.Error(t, err)
	_, err = parseVolumeArg("3,zz")
	assert.Error(t, err)
	_, err = parseVolumeArg("4294967296")
	assert.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "1023 B", formatBytes(1023))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 MB", formatBytes(3<<19))
	assert.Equal(t, "2.0 GB", formatBytes(2<<30))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}
