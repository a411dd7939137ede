package boatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/five82/marina/internal/records"
)

// RecordService is the remote record service as the grid sees it. It is
// implemented by *Client and can be used for testing.
type RecordService interface {
	FetchRecords(ctx context.Context, req records.FetchRequest) ([]records.Record, error)
	PersistBatch(ctx context.Context, edits []records.DraftEdit) error
	FetchBoatTypes(ctx context.Context) ([]BoatType, error)
}

// Ensure Client implements RecordService at compile time.
var _ RecordService = (*Client)(nil)

// Client talks to the boat HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string

	mu    sync.Mutex
	etags map[records.FilterKey]string
}

// errNotModified reports a 304 answer to a conditional request.
var errNotModified = errors.New("not modified")

const (
	defaultAPIBind   = "127.0.0.1:7489"
	defaultUserAgent = "marina/0.1"
	maxErrorBody     = 64 * 1024
)

// NewClient builds a Client using the provided apiBind host:port value.
//
// No request timeout is set: a hung service keeps the grid busy until the
// caller's context ends.
func NewClient(apiBind string) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		etags:     make(map[records.FilterKey]string),
	}, nil
}

// FetchRecords retrieves the boats for a boat type. Refresh requests bypass
// intermediary caches. A refresh whose previous result came back cleanly for
// the same key is sent as a conditional request, and a 304 answer reuses the
// previous records.
func (c *Client) FetchRecords(ctx context.Context, req records.FetchRequest) ([]records.Record, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("boatTypeId", string(req.Key))
	header := http.Header{}
	conditional := false
	if req.Refresh {
		values.Set("refresh", "1")
		header.Set("Cache-Control", "no-cache")
		if etag := c.etag(req.Key); etag != "" && req.Previous.Key == req.Key && req.Previous.Err == nil && req.Previous.Records != nil {
			header.Set("If-None-Match", etag)
			conditional = true
		}
	}
	rel := &url.URL{Path: "/api/boats", RawQuery: values.Encode()}
	var payload BoatListResponse
	respHeader, err := c.doURL(ctx, http.MethodGet, rel, header, nil, &payload)
	if errors.Is(err, errNotModified) && conditional {
		return records.CloneRecords(req.Previous.Records), nil
	}
	if err != nil {
		return nil, err
	}
	c.setETag(req.Key, respHeader.Get("ETag"))
	if payload.Boats == nil {
		payload.Boats = []records.Record{}
	}
	return payload.Boats, nil
}

func (c *Client) etag(key records.FilterKey) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.etags[key]
}

func (c *Client) setETag(key records.FilterKey, etag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.etags == nil {
		c.etags = make(map[records.FilterKey]string)
	}
	if etag == "" {
		delete(c.etags, key)
		return
	}
	c.etags[key] = etag
}

// PersistBatch sends every edit in one request.
func (c *Client) PersistBatch(ctx context.Context, edits []records.DraftEdit) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rows := records.Rows(edits)
	if rows == nil {
		rows = []records.RowPatch{}
	}
	body, err := json.Marshal(BatchUpdateRequest{Data: rows})
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	rel := &url.URL{Path: "/api/boats/batch"}
	_, err = c.doURL(ctx, http.MethodPost, rel, nil, body, nil)
	return err
}

// FetchBoatTypes lists the selectable boat types.
func (c *Client) FetchBoatTypes(ctx context.Context) ([]BoatType, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload BoatTypeListResponse
	if _, err := c.doURL(ctx, http.MethodGet, &url.URL{Path: "/api/boat-types"}, nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Types, nil
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, header http.Header, body []byte, dest any) (http.Header, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return resp.Header, errNotModified
	}
	if resp.StatusCode >= 400 {
		return resp.Header, decodeError(rel, resp)
	}
	if dest == nil {
		return resp.Header, nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return resp.Header, fmt.Errorf("decode response: %w", err)
	}
	return resp.Header, nil
}

// decodeError turns a failed response into a *records.ServerError, keeping
// the server's message when the body carries one.
func decodeError(rel *url.URL, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload ErrorResponse
	if err := json.Unmarshal(raw, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return &records.ServerError{Status: resp.StatusCode, Message: payload.Message}
	}
	return &records.ServerError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("api %s returned status %d", rel.Path, resp.StatusCode),
		Err:     errors.New(strings.TrimSpace(string(raw))),
	}
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
