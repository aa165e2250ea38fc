// Package remote reaches the state and history host. The card consumes the
// host strictly read-only: a map of live snapshots plus one history query.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/timzifer/entitycard/config"
)

// Client defines the subset of host operations required by the card.
type Client interface {
	States(ctx context.Context) (map[string]Snapshot, error)
	History(ctx context.Context, entityID string, start, end time.Time) ([]RawSample, error)
	Close() error
}

// ClientFactory is responsible for creating host clients.
type ClientFactory func(cfg config.HostConfig) (Client, error)

type restClient struct {
	base   *url.URL
	token  string
	client *http.Client
}

// NewRESTClientFactory returns a factory that creates clients for the
// Home Assistant compatible REST API.
func NewRESTClientFactory() ClientFactory {
	return func(cfg config.HostConfig) (Client, error) {
		if cfg.URL == "" {
			return nil, fmt.Errorf("host url is required")
		}
		base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
		if err != nil {
			return nil, fmt.Errorf("parse host url %s: %w", cfg.URL, err)
		}
		timeout := cfg.Timeout.Duration
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		return &restClient{
			base:   base,
			token:  cfg.Token,
			client: &http.Client{Timeout: timeout},
		}, nil
	}
}

// States fetches the full live state store.
func (c *restClient) States(ctx context.Context) (map[string]Snapshot, error) {
	var list []Snapshot
	if err := c.getJSON(ctx, c.base.JoinPath("api", "states").String(), &list); err != nil {
		return nil, fmt.Errorf("fetch states: %w", err)
	}
	states := make(map[string]Snapshot, len(list))
	for _, s := range list {
		if s.EntityID == "" {
			continue
		}
		states[s.EntityID] = s
	}
	return states, nil
}

// History fetches raw historical samples for one entity over a time window.
// The host groups samples per entity; only the requested entity's series is
// returned.
func (c *restClient) History(ctx context.Context, entityID string, start, end time.Time) ([]RawSample, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required")
	}
	endpoint := c.base.JoinPath("api", "history", "period", start.UTC().Format(time.RFC3339))
	query := endpoint.Query()
	query.Set("filter_entity_id", entityID)
	query.Set("end_time", end.UTC().Format(time.RFC3339))
	endpoint.RawQuery = query.Encode()

	var series [][]RawSample
	if err := c.getJSON(ctx, endpoint.String(), &series); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", entityID, err)
	}
	if len(series) == 0 {
		return nil, nil
	}
	return series[0], nil
}

func (c *restClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *restClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
