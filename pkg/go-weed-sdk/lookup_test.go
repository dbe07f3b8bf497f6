package weed

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	var query map[string][]string
	client := newMaster(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dir/lookup", r.URL.Path)
		query = r.URL.Query()
		jsonHandler(http.StatusOK, `{"volumeOrFileId":"3","locations":[{"url":"10.0.0.1:8080","publicUrl":"cdn:80"},{"url":"10.0.0.2:8080"}]}`)(w, r)
	})

	locations, err := client.Lookup(context.Background(), 3, &LookupOptions{Collection: "pics", Read: true})
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, "10.0.0.1:8080", locations[0].URL)
	assert.Equal(t, "cdn:80", locations[0].PublicURL)

	assert.Equal(t, []string{"3"}, query["volumeId"])
	assert.Equal(t, []string{"pics"}, query["collection"])
	assert.Equal(t, []string{"yes"}, query["read"])
}

func TestLookupErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unknown volume", http.StatusNotFound, `{"error":"volume id 9 not found"}`, ErrLookupRejected},
		{"error field", http.StatusOK, `{"error":"collection mismatch"}`, ErrLookupRejected},
		{"bad body", http.StatusOK, `[`, ErrDecode},
		{"no locations", http.StatusOK, `{"volumeOrFileId":"9","locations":[]}`, ErrNoLocations},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMaster(t, jsonHandler(tt.status, tt.body))
			_, err := client.Lookup(context.Background(), 9, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLocateUsesPicker(t *testing.T) {
	client := newMaster(t, jsonHandler(http.StatusOK, `{"locations":[{"url":"10.0.0.1:8080"},{"url":"10.0.0.2:8080"}]}`))
	client.cfg.locationPicker = func(locations []Location) (Location, bool) {
		return locations[len(locations)-1], true
	}

	v, err := client.Locate(context.Background(), testFid)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:8080", v.Address().String())
}

func TestLocateWithPublicURL(t *testing.T) {
	client := newMaster(t, jsonHandler(http.StatusOK, `{"locations":[{"url":"10.0.0.1:8080","publicUrl":"files.local:80"}]}`))
	client.cfg.usePublicURL = true

	v, err := client.Locate(context.Background(), testFid)
	require.NoError(t, err)
	assert.Equal(t, "files.local:80", v.Address().String())
}
