package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	fspath "path"
	"time"

	"github.com/andydunstall/glomers/node"
	"github.com/andydunstall/glomers/pkg/status"
)

// Client queries the status API of a node admin server.
type Client struct {
	httpClient *http.Client

	url *url.URL
}

func NewClient(url *url.URL) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Second * 15,
		},
		url: url,
	}
}

// Node returns the node runtime status.
func (c *Client) Node() (*node.NodeStatus, error) {
	r, err := c.request("/status/node")
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var st node.NodeStatus
	if err := json.NewDecoder(r).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &st, nil
}

// Workload returns the workload status. The format depends on the workload
// the node runs.
func (c *Client) Workload() (map[string]any, error) {
	r, err := c.request("/status/node/workload")
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var st map[string]any
	if err := json.NewDecoder(r).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return st, nil
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) request(path string) (io.ReadCloser, error) {
	url := new(url.URL)
	*url = *c.url

	url.Path = fspath.Join(url.Path, path)

	req, err := http.NewRequest(http.MethodGet, url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()

		errorInfo := &status.ErrorInfo{
			StatusCode: resp.StatusCode,
		}
		if err := json.NewDecoder(resp.Body).Decode(errorInfo); err != nil || errorInfo.Message == "" {
			return nil, fmt.Errorf("request: bad status: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("request: %w", errorInfo)
	}

	return resp.Body, nil
}
