// Package client is the Go client for the tabula HTTP API.
//
// It never retries on its own: a failed call surfaces exactly one error and
// leaves it to the caller to decide what to do, which is what the UI contract
// requires.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/agentic-research/tabula/api"
)

// ErrNotFound reports a 404 from the server: the identifier does not address
// a record (it may have been deleted by another client moments earlier).
var ErrNotFound = errors.New("record not found on server")

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to one tabula server.
type Client struct {
	base string
	hc   *http.Client
}

// New returns a Client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{},
	}
}

// Upload sends raw CSV bytes as a multipart file and returns the server's
// batch outcome.
func (c *Client) Upload(ctx context.Context, filename string, raw []byte) (api.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("csvFile", filename)
	if err != nil {
		return api.UploadResult{}, fmt.Errorf("build upload body: %w", err)
	}
	if _, err := part.Write(raw); err != nil {
		return api.UploadResult{}, fmt.Errorf("build upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return api.UploadResult{}, fmt.Errorf("build upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/upload", &body)
	if err != nil {
		return api.UploadResult{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res api.UploadResult
	if err := c.do(req, &res); err != nil {
		return api.UploadResult{}, err
	}
	return res, nil
}

// List fetches all records.
func (c *Client) List(ctx context.Context) ([]api.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/records", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	var records []api.Record
	if err := c.do(req, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Update sends a partial field patch and returns the server's canonical
// version of the updated record.
func (c *Client) Update(ctx context.Context, id string, patch map[string]string) (api.Record, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return api.Record{}, fmt.Errorf("marshal patch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.base+"/records/"+id, bytes.NewReader(payload))
	if err != nil {
		return api.Record{}, fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var rec api.Record
	if err := c.do(req, &rec); err != nil {
		return api.Record{}, err
	}
	return rec, nil
}

// Delete removes the record addressed by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+"/records/"+id, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	var res api.DeleteResult
	return c.do(req, &res)
}

// do executes the request and decodes the response into out. Non-2xx
// responses become ErrNotFound or *APIError.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb api.ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error == "" {
			eb.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: eb.Error}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
