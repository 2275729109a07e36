package matrix

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/client"
)

// Discovery methods understood by Resolver.
const (
	DiscoveryWellKnown = "well-known"
	DiscoveryDNS       = "dns"
)

// AutoRetrieval as Homeserver makes Resolver look the name up.
const AutoRetrieval = "auto-retrieval"

// DefaultFederationPort is used when the well-known resource names no port.
const DefaultFederationPort = "8448"

const resolvConf = "/etc/resolv.conf"

// Resolver finds the server name of the homeserver, i.e. the part after the
// colon in its user IDs.
type Resolver struct {
	// Homeserver is the configured name; anything but AutoRetrieval is
	// returned as is.
	Homeserver string
	// Discovery is DiscoveryWellKnown or DiscoveryDNS.
	Discovery string
	// BaseURL is the configured base_url.
	BaseURL string
	// Localhost marks a BaseURL on the local machine, whose keys API is
	// asked directly in well-known mode.
	Localhost bool

	Timeout  time.Duration
	Insecure bool
	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
	// Nameserver is host:port of the DNS server. Empty means the first
	// server in /etc/resolv.conf that answers.
	Nameserver string

	Logger *zap.Logger
	// Announce shows progress messages. Nil logs them at info.
	Announce func(msg string)
}

// HomeserverName returns the configured name or looks it up as configured.
func (r *Resolver) HomeserverName(ctx context.Context) (string, error) {
	if r.Homeserver != "" && r.Homeserver != AutoRetrieval {
		return r.Homeserver, nil
	}

	switch r.Discovery {
	case DiscoveryWellKnown:
		if r.Localhost {
			r.announce("Trying to fetch homeserver name via localhost...")
			return r.serverNameFromKeys(ctx, r.BaseURL)
		}
		r.announce("Trying to fetch federation URI via well-known resource...")
		federationURL, err := r.wellKnownFederationURL(ctx)
		if err != nil {
			return "", err
		}
		return r.serverNameFromKeys(ctx, federationURL)
	case DiscoveryDNS:
		r.announce("Trying to fetch federation URI via DNS SRV record...")
		federationURL, err := r.srvFederationURL(ctx)
		if err != nil {
			return "", err
		}
		return r.serverNameFromKeys(ctx, federationURL)
	default:
		return "", fmt.Errorf("unknown server_discovery mode %q, run 'synadm config'", r.Discovery)
	}
}

func (r *Resolver) announce(msg string) {
	if r.Announce != nil {
		r.Announce(msg)
		return
	}
	r.logger().Info(msg)
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Resolver) newClient(baseURL string) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL:            baseURL,
		Timeout:            r.Timeout,
		InsecureSkipVerify: r.Insecure,
		HTTPClient:         r.HTTPClient,
		Logger:             r.Logger,
	})
}

// wellKnownFederationURL reads m.server from <base_url>/.well-known/matrix/server.
func (r *Resolver) wellKnownFederationURL(ctx context.Context) (string, error) {
	c, err := r.newClient(r.BaseURL)
	if err != nil {
		return "", err
	}
	resp, err := c.Do(ctx, client.Request{Method: http.MethodGet, Path: ".well-known/matrix/server", NoAuth: true})
	if err != nil {
		return "", fmt.Errorf("fetch well-known resource: %w", err)
	}
	doc, _ := resp.(map[string]any)
	server, _ := doc["m.server"].(string)
	if server == "" {
		return "", fmt.Errorf("well-known resource at %s has no m.server entry", r.BaseURL)
	}
	return "https://" + withDefaultPort(server), nil
}

func withDefaultPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), DefaultFederationPort)
}

// srvFederationURL looks up _matrix._tcp.<host of base_url> and returns the
// first target.
func (r *Resolver) srvFederationURL(ctx context.Context) (string, error) {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", fmt.Errorf("base_url: %w", err)
	}
	hostname := u.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("base_url %q has no host", r.BaseURL)
	}

	nameservers, err := r.nameservers()
	if err != nil {
		return "", err
	}

	name := dns.Fqdn("_matrix._tcp." + hostname)
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeSRV)
	m.RecursionDesired = true

	c := new(dns.Client)
	c.Timeout = r.Timeout

	var lastErr error
	for _, ns := range nameservers {
		in, _, err := c.ExchangeContext(ctx, m, ns)
		if err != nil {
			r.logger().Debug("nameserver did not answer", zap.String("nameserver", ns), zap.Error(err))
			lastErr = err
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			return "", fmt.Errorf("resolving Matrix delegation for %s: %s", hostname, dns.RcodeToString[in.Rcode])
		}
		for _, rr := range in.Answer {
			if srv, ok := rr.(*dns.SRV); ok {
				target := strings.TrimSuffix(srv.Target, ".")
				return "https://" + net.JoinHostPort(target, strconv.Itoa(int(srv.Port))), nil
			}
		}
		return "", fmt.Errorf("resolving Matrix delegation for %s: no SRV record", hostname)
	}
	return "", fmt.Errorf("resolving Matrix delegation for %s: %w", hostname, lastErr)
}

func (r *Resolver) nameservers() ([]string, error) {
	if r.Nameserver != "" {
		return []string{r.Nameserver}, nil
	}
	conf, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", resolvConf, err)
	}
	if len(conf.Servers) == 0 {
		return nil, fmt.Errorf("no nameservers in %s", resolvConf)
	}
	servers := make([]string, len(conf.Servers))
	for i, s := range conf.Servers {
		servers[i] = net.JoinHostPort(s, conf.Port)
	}
	return servers, nil
}

// serverNameFromKeys asks the federation keys API at federationURL for the
// server name.
func (r *Resolver) serverNameFromKeys(ctx context.Context, federationURL string) (string, error) {
	c, err := r.newClient(federationURL)
	if err != nil {
		return "", err
	}
	resp, err := c.Do(ctx, client.Request{Method: http.MethodGet, Path: "_matrix/key/v2/server", NoAuth: true})
	if err != nil {
		return "", fmt.Errorf("fetch server keys: %w", err)
	}
	keys, _ := resp.(map[string]any)
	name, _ := keys["server_name"].(string)
	if name == "" {
		return "", fmt.Errorf("keys API at %s returned no server_name", federationURL)
	}
	return name, nil
}
