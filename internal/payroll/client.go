package payroll

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"payrollctl/internal/authapi"
)

// Record is one item of a collection, as returned by the backend.
type Record map[string]interface{}

// Field formats the value of key for display. Missing and null values are empty.
func (r Record) Field(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Client reads backend collections.
type Client struct {
	baseURL string
	doer    authapi.Doer
}

// NewClient sends requests through doer, normally the dispatcher.
func NewClient(baseURL string, doer authapi.Doer) *Client {
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), doer: doer}
}

// List returns the first page of res.
func (c *Client) List(ctx context.Context, res Resource) ([]Record, error) {
	body, err := c.get(ctx, res.Path)
	if err != nil {
		return nil, err
	}
	return decodeCollection(body)
}

// Get returns the item of res with the given id.
func (c *Client) Get(ctx context.Context, res Resource, id string) (Record, error) {
	body, err := c.get(ctx, res.Path+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse %s %s: %w", res.Name, id, err)
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, authapi.NewAPIError(path, resp.StatusCode, body)
	}
	return body, nil
}

// decodeCollection accepts both a bare JSON array and a paginated envelope
// with an "items" array.
func decodeCollection(body []byte) ([]Record, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var items []Record
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("failed to parse collection: %w", err)
		}
		return items, nil
	}

	var envelope struct {
		Items []Record `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse collection: %w", err)
	}
	return envelope.Items, nil
}
