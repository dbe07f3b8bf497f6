package weed

// VolumeClient writes to and reads from a single volume server. It holds
// only the server address and immutable options, so any number of them may
// be created for the same location and used concurrently.
type VolumeClient struct {
	addr    VolumeAddress
	baseURL string
	cfg     clientConfig
}

func newVolumeClient(addr VolumeAddress, cfg clientConfig) *VolumeClient {
	return &VolumeClient{
		addr:    addr,
		baseURL: addr.BaseURL(cfg.scheme),
		cfg:     cfg,
	}
}

// NewVolumeClient returns a client bound to addr ("host:port").
func NewVolumeClient(addr string, opts ...Option) (*VolumeClient, error) {
	parsed, err := ParseVolumeAddress(addr)
	if err != nil {
		return nil, err
	}
	return newVolumeClient(parsed, newClientConfig(opts)), nil
}

// NewVolumeClientForLocation returns a client bound to loc's URL, or to its
// public URL when WithPublicURL is given and loc has one.
func NewVolumeClientForLocation(loc Location, opts ...Option) (*VolumeClient, error) {
	cfg := newClientConfig(opts)
	addr, err := loc.Address(cfg.usePublicURL)
	if err != nil {
		return nil, err
	}
	return newVolumeClient(addr, cfg), nil
}

// Address returns the volume server address.
func (v *VolumeClient) Address() VolumeAddress {
	return v.addr
}

// BaseURL returns the HTTP base URL of the volume server.
func (v *VolumeClient) BaseURL() string {
	return v.baseURL
}

// FileURL returns the URL of fid on this volume server.
func (v *VolumeClient) FileURL(fid FileID) string {
	return v.baseURL + "/" + fid.String()
}
