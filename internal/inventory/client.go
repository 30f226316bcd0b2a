package inventory

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/vm-migration-console/internal/logging"
	"github.com/rflorenc/vm-migration-console/internal/metrics"
)

// ClientConfig configures the inventory REST client.
type ClientConfig struct {
	URL      string
	Token    string
	Insecure bool
	CACert   string
	RetryMax int
}

// Client reads provider inventories from the inventory service.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	metrics *metrics.Metrics
}

var _ Source = (*Client)(nil)

// StatusError is returned for non-2xx inventory responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Code, truncate(e.Body, 200))
}

// NewClient creates a Client. Requests failing with connection errors or 5xx
// responses are retried up to cfg.RetryMax times with backoff.
func NewClient(cfg ClientConfig, log logrus.FieldLogger, m *metrics.Metrics) *Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	} else if cfg.CACert != "" {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM([]byte(cfg.CACert)) {
			transport.TLSClientConfig = &tls.Config{RootCAs: pool}
		}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport, Timeout: 60 * time.Second}
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if log != nil {
		rc.Logger = logging.LeveledLogger{Log: log}
	} else {
		rc.Logger = nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		http:    rc,
		metrics: m,
	}
}

// Get performs an authenticated GET request and returns the response body.
// endpoint labels the request in metrics.
func (c *Client) Get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveInventory(endpoint, 0, time.Since(start))
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()
	c.metrics.ObserveInventory(endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: http.MethodGet, Path: path, Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// GetJSON performs an authenticated GET and unmarshals the response into dest.
func (c *Client) GetJSON(ctx context.Context, endpoint, path string, params url.Values, dest interface{}) error {
	body, err := c.Get(ctx, endpoint, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	return nil
}

var detail = url.Values{"detail": {"true"}}

func (c *Client) Providers(ctx context.Context) (Providers, error) {
	var providers Providers
	if err := c.GetJSON(ctx, "providers", "/providers", detail, &providers); err != nil {
		return nil, err
	}
	for t, list := range providers {
		for i := range list {
			if list[i].Type == "" {
				list[i].Type = t
			}
		}
	}
	return providers, nil
}

// VMs returns the provider's VMs sorted by name.
func (c *Client) VMs(ctx context.Context, p *Provider) ([]VM, error) {
	var vms []VM
	if err := c.GetJSON(ctx, "vms", p.SelfLink+"/vms", detail, &vms); err != nil {
		return nil, err
	}
	SortVMsByName(vms)
	return vms, nil
}

func (c *Client) Tree(ctx context.Context, p *Provider, treeType TreeType) (*Tree, error) {
	var tree Tree
	if err := c.GetJSON(ctx, "tree", p.SelfLink+"/tree/"+treeType.Path(), nil, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

func (c *Client) Networks(ctx context.Context, p *Provider) ([]Network, error) {
	var networks []Network
	err := c.GetJSON(ctx, "networks", p.SelfLink+"/networks", nil, &networks)
	return networks, err
}

func (c *Client) Datastores(ctx context.Context, p *Provider) ([]Datastore, error) {
	var datastores []Datastore
	err := c.GetJSON(ctx, "datastores", p.SelfLink+"/datastores", nil, &datastores)
	return datastores, err
}

func (c *Client) Hosts(ctx context.Context, p *Provider) ([]Host, error) {
	var hosts []Host
	err := c.GetJSON(ctx, "hosts", p.SelfLink+"/hosts", detail, &hosts)
	return hosts, err
}

func (c *Client) NetworkAttachmentDefinitions(ctx context.Context, p *Provider) ([]NetworkAttachmentDefinition, error) {
	var nads []NetworkAttachmentDefinition
	err := c.GetJSON(ctx, "networkattachmentdefinitions", p.SelfLink+"/networkattachmentdefinitions", nil, &nads)
	return nads, err
}

func (c *Client) StorageClasses(ctx context.Context, p *Provider) ([]StorageClass, error) {
	var scs []StorageClass
	err := c.GetJSON(ctx, "storageclasses", p.SelfLink+"/storageclasses", nil, &scs)
	return scs, err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
