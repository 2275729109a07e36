// Package health provides homeserver reachability checks for synadm.
//
// Purpose:
//
//	Verify, right after the configurator has written a new configuration,
//	that the client-server API answers at base_url and that the admin API
//	accepts the configured token. Results are reported as warnings so that a
//	configuration can be saved while the server is down.
//
// Dependencies:
//   - net/http: HTTP client for health checks
//   - context: Timeout control
package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Checker performs health checks on the homeserver.
type Checker struct {
	client  *http.Client
	timeout time.Duration
}

// NewChecker creates a new health checker. A zero timeout means 5 seconds.
func NewChecker(timeout time.Duration, insecure bool) *Checker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // mirrors ssl_verify: false
	}
	return &Checker{
		client:  &http.Client{Timeout: timeout, Transport: transport},
		timeout: timeout,
	}
}

// Target is one endpoint to probe.
type Target struct {
	Name  string
	URL   string
	Token string
}

// ServiceHealth represents the health status of one endpoint.
type ServiceHealth struct {
	Service string
	Healthy bool
	URL     string
	Status  int
	Error   error
}

// Targets returns the standard probes for a homeserver: the unauthenticated
// client API version list and the authenticated admin server version.
func Targets(baseURL, matrixPath, adminPath, token string) []Target {
	join := func(parts ...string) string {
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.Trim(p, "/"); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		return strings.TrimRight(baseURL, "/") + "/" + strings.Join(trimmed, "/")
	}
	return []Target{
		{Name: "client API", URL: join(matrixPath, "client/versions")},
		{Name: "admin API", URL: join(adminPath, "v1/server_version"), Token: token},
	}
}

// CheckService performs a health check on a single endpoint.
func (c *Checker) CheckService(ctx context.Context, target Target) ServiceHealth {
	result := ServiceHealth{Service: target.Name, URL: target.URL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		return result
	}
	if target.Token != "" {
		req.Header.Set("Authorization", "Bearer "+target.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("homeserver unreachable: %w", err)
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result.Healthy = true
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		result.Error = fmt.Errorf("token rejected (status %d), check that the user is a server admin", resp.StatusCode)
	default:
		result.Error = fmt.Errorf("homeserver returned status %d", resp.StatusCode)
	}
	return result
}

// CheckRequired probes every target in order and returns all results.
// Returns an error describing the failing targets if any is unhealthy.
func (c *Checker) CheckRequired(ctx context.Context, targets []Target) ([]ServiceHealth, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var results []ServiceHealth
	var unhealthy []ServiceHealth

	for _, target := range targets {
		health := c.CheckService(ctx, target)
		results = append(results, health)
		if !health.Healthy {
			unhealthy = append(unhealthy, health)
		}
	}

	if len(unhealthy) > 0 {
		var b strings.Builder
		b.WriteString("Homeserver check failed:\n")
		for _, h := range unhealthy {
			fmt.Fprintf(&b, "  - %s (%s): %v\n", h.Service, h.URL, h.Error)
		}
		return results, fmt.Errorf("%s", strings.TrimRight(b.String(), "\n"))
	}

	return results, nil
}
