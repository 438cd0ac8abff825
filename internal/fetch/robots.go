package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsGate answers whether a path may be fetched. robots.txt files are
// fetched once per host; an unreachable robots.txt allows everything.
type robotsGate struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

func newRobotsGate(client *http.Client, userAgent string) *robotsGate {
	return &robotsGate{client: client, userAgent: userAgent, hosts: make(map[string]*robotstxt.RobotsData)}
}

func (g *robotsGate) allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data, err := g.data(ctx, u)
	if err != nil {
		return true
	}
	return data.TestAgent(u.Path, g.userAgent)
}

func (g *robotsGate) data(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	g.mu.Lock()
	data, ok := g.hosts[u.Host]
	g.mu.Unlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.hosts[u.Host] = data
	g.mu.Unlock()
	return data, nil
}
