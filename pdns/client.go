package pdns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var ErrZoneNotFound = errors.New("zone not found")

// RemoteError carries the status code and error message of a failed
// PowerDNS API call. It originates at the client, not at the HTTP boundary.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("powerdns api error: %s (status: %d)", e.Message, e.StatusCode)
}

// Client holds the configuration for the PowerDNS API
type Client struct {
	BaseURL    string
	APIKey     string
	ServerID   string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey, serverID string) *Client {
	if serverID == "" {
		serverID = "localhost"
	}

	return &Client{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		ServerID: serverID,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateZone creates a new zone with the given kind, nameservers and SOA
// settings. The server responds with the created zone.
func (c *Client) CreateZone(ctx context.Context, zone Zone) (*Zone, error) {
	path := fmt.Sprintf("/api/v1/servers/%s/zones", url.PathEscape(c.ServerID))

	return doRequest[Zone](ctx, c, http.MethodPost, path, zone)
}

// GetZone fetches a zone with its full rrset snapshot.
func (c *Client) GetZone(ctx context.Context, name string) (*Zone, error) {
	path := c.zonePath(name)

	zone, err := doRequest[Zone](ctx, c, http.MethodGet, path, nil)
	var rerr *RemoteError
	if errors.As(err, &rerr) && rerr.StatusCode == http.StatusNotFound {
		return nil, ErrZoneNotFound
	}
	if err != nil {
		return nil, err
	}

	return zone, nil
}

// ReplaceRRset creates or replaces the rrset wholesale. Partial merges are
// not possible through the zone PATCH endpoint.
func (c *Client) ReplaceRRset(ctx context.Context, zone string, rrset RRset) error {
	rrset.ChangeType = ChangeTypeReplace

	return c.patchZone(ctx, zone, rrset)
}

// DeleteRRset removes the rrset identified by (type, name) from the zone.
func (c *Client) DeleteRRset(ctx context.Context, zone, typ, name string) error {
	rrset := RRset{
		Name:       name,
		Type:       typ,
		ChangeType: ChangeTypeDelete,
		Records:    []Record{},
	}

	return c.patchZone(ctx, zone, rrset)
}

// DeleteZone removes the zone and all of its records.
func (c *Client) DeleteZone(ctx context.Context, name string) error {
	_, err := doRequest[struct{}](ctx, c, http.MethodDelete, c.zonePath(name), nil)

	return err
}

func (c *Client) patchZone(ctx context.Context, zone string, rrsets ...RRset) error {
	_, err := doRequest[struct{}](ctx, c, http.MethodPatch, c.zonePath(zone), zonePatch{RRsets: rrsets})

	return err
}

func (c *Client) zonePath(name string) string {
	return fmt.Sprintf("/api/v1/servers/%s/zones/%s", url.PathEscape(c.ServerID), url.PathEscape(name))
}

func doRequest[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-API-Key", c.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    parseErrorMessage(respBody),
		}
	}

	result := new(T)
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %v", err)
		}
	}

	return result, nil
}

// parseErrorMessage unwraps the PowerDNS {"error": "..."} body, falling back
// to the raw body when it is not that shape.
func parseErrorMessage(body []byte) string {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return apiErr.Error
	}

	return string(body)
}
