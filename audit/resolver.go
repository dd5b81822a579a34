package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// UnknownIP is recorded when the client address cannot be resolved.
const UnknownIP = "unknown"

// Resolver looks up the client's public IP address for audit stamping.
// Resolution is best-effort; callers treat any error as [UnknownIP].
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// StaticResolver always returns a fixed address. Useful in tests and in
// deployments where the address is known out of band.
type StaticResolver string

func (r StaticResolver) Resolve(context.Context) (string, error) {
	return string(r), nil
}

// HTTPResolver queries an ipify-compatible endpoint returning
// {"ip": "..."}.
type HTTPResolver struct {
	client *http.Client
	url    string
}

// NewHTTPResolver creates a resolver against url. A short timeout is
// applied so a slow lookup cannot stall audit appends noticeably.
func NewHTTPResolver(url string, timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPResolver{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.IP, nil
}
