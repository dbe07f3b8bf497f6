package weed

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultMasterPort is used when a master address is given without a port.
const DefaultMasterPort = 9333

// VolumeAddress is the host:port authority of a volume server (or master).
type VolumeAddress struct {
	Scheme string
	Host   string
	Port   int
}

// ParseVolumeAddress parses "host:port", optionally prefixed with "http://"
// or "https://". A port is required.
func ParseVolumeAddress(s string) (VolumeAddress, error) {
	return parseAddress(s, 0)
}

func parseAddress(s string, defaultPort int) (VolumeAddress, error) {
	malformed := func(reason string) (VolumeAddress, error) {
		return VolumeAddress{}, fmt.Errorf("%w %q: %s", ErrMalformedAddress, s, reason)
	}

	raw := strings.TrimSpace(s)
	scheme := ""
	for _, prefix := range []string{"http://", "https://"} {
		if strings.HasPrefix(raw, prefix) {
			scheme = strings.TrimSuffix(prefix, "://")
			raw = strings.TrimPrefix(raw, prefix)
			break
		}
	}
	raw = strings.TrimSuffix(raw, "/")
	if raw == "" {
		return malformed("empty")
	}
	if strings.ContainsAny(raw, "/?#") {
		return malformed("unexpected path")
	}

	host, portText, err := net.SplitHostPort(raw)
	if err != nil {
		bracketed := strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]")
		if defaultPort == 0 || (strings.Contains(raw, ":") && !bracketed) {
			return malformed("expected host:port")
		}
		host, portText = strings.Trim(raw, "[]"), strconv.Itoa(defaultPort)
	}
	if host == "" {
		return malformed("missing host")
	}

	port, err := strconv.Atoi(portText)
	if err != nil {
		return malformed(fmt.Sprintf("port %q is not numeric", portText))
	}
	if port < 1 || port > 65535 {
		return malformed(fmt.Sprintf("port %d out of range", port))
	}

	return VolumeAddress{Scheme: scheme, Host: host, Port: port}, nil
}

// String returns the host:port form of the address.
func (a VolumeAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// BaseURL returns the HTTP base URL of the address. An explicit scheme in the
// parsed address wins over defaultScheme.
func (a VolumeAddress) BaseURL(defaultScheme string) string {
	scheme := a.Scheme
	if scheme == "" {
		scheme = defaultScheme
	}
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + a.String()
}

// Location is the network address of a volume server able to serve a file.
type Location struct {
	URL        string `json:"url"`
	PublicURL  string `json:"publicUrl,omitempty"`
	DataCenter string `json:"dataCenter,omitempty"`
}

// Address parses the location's internal URL, or its public URL when
// preferPublic is set and one is present.
func (l Location) Address(preferPublic bool) (VolumeAddress, error) {
	if preferPublic && l.PublicURL != "" {
		return ParseVolumeAddress(l.PublicURL)
	}
	return ParseVolumeAddress(l.URL)
}

// LocationPicker chooses the location a file is read from.
type LocationPicker func(locations []Location) (Location, bool)

// DefaultLocationPicker returns the first location.
func DefaultLocationPicker(locations []Location) (Location, bool) {
	if len(locations) == 0 {
		return Location{}, false
	}
	return locations[0], true
}
