package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/shopdesk-dev/shopdesk/internal/resources"
)

// Record is a resource object as returned by the API. Business fields are
// passed through untouched.
type Record map[string]any

// ID returns the record identifier as a string
func (r Record) ID() string {
	switch id := r["id"].(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprint(id)
	}
}

// List fetches a collection. Both a bare array and a {"data": [...]} envelope
// are accepted.
func (c *Client) List(ctx context.Context, path string, query url.Values) ([]Record, error) {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}

	var raw json.RawMessage
	if err := c.do(ctx, "list "+path, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err == nil {
		return records, nil
	}

	var envelope struct {
		Data []Record `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return envelope.Data, nil
}

// ListByStore lists r, limited to one store when storeID is set and to one
// status when status is set
func (c *Client) ListByStore(ctx context.Context, r resources.Resource, storeID, status string) ([]Record, error) {
	path, query, err := r.ListPath(storeID, status)
	if err != nil {
		return nil, err
	}
	return c.List(ctx, path, query)
}

// Get fetches a single record
func (c *Client) Get(ctx context.Context, path string) (Record, error) {
	var record Record
	if err := c.do(ctx, "get "+path, http.MethodGet, path, nil, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// Create posts a new record and returns what the server stored
func (c *Client) Create(ctx context.Context, path string, data Record) (Record, error) {
	var record Record
	if err := c.do(ctx, "create "+path, http.MethodPost, path, data, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// CreateForStore creates a record of r, through the store-scoped endpoint
// when r has one and storeID is set
func (c *Client) CreateForStore(ctx context.Context, r resources.Resource, storeID string, data Record) (Record, error) {
	return c.Create(ctx, r.CreatePath(storeID), data)
}

// Update patches a record and returns the updated version
func (c *Client) Update(ctx context.Context, path string, data Record) (Record, error) {
	var record Record
	if err := c.do(ctx, "update "+path, http.MethodPatch, path, data, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, "delete "+path, http.MethodDelete, path, nil, nil)
}

// UploadResponse describes a stored upload
type UploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// UploadFile sends content as a multipart "file" field
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp UploadResponse
	if err := c.send(req, "upload", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
