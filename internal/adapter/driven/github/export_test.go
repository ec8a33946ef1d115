package github

// NewCachingClient builds a Client on the same transport stack as NewClient,
// pointed at baseURL.
func NewCachingClient(baseURL, configPath string) (*Client, error) {
	return NewClientWithHTTPClient(newHTTPClient(nil), baseURL, configPath)
}
