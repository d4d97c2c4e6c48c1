/*
client.go - Remote data source over the REST contract

PURPOSE:
  Implements hierarchy.DataSource against any service speaking the
  /api/people, /api/areas and tier-record endpoints served by package api.
  The CLI uses it to drive the engine against a running server.

ERRORS:
  - 404 responses wrap hierarchy.ErrNotFound
  - other non-2xx responses become *StatusError
  - transport failures are returned as they come from net/http
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/warp/hierarchy-engine/hierarchy"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Msg    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Msg)
}

// Client talks to a hierarchy data source over HTTP.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a client for baseURL (e.g. http://localhost:8080). A nil
// httpClient gets a 15 second timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: u, http: httpClient}, nil
}

var _ hierarchy.DataSource = (*Client)(nil)

// =============================================================================
// PEOPLE
// =============================================================================

func (c *Client) ListPeople(ctx context.Context, ref hierarchy.AreaRef) ([]hierarchy.Person, error) {
	var out []hierarchy.Person
	err := c.do(ctx, http.MethodGet, "/api/people", areaQuery(ref), nil, &out)
	return out, err
}

func (c *Client) GetPerson(ctx context.Context, id string) (hierarchy.Person, error) {
	var out hierarchy.Person
	err := c.do(ctx, http.MethodGet, "/api/people/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) UpdatePerson(ctx context.Context, id string, patch hierarchy.PersonPatch) (hierarchy.Person, error) {
	var out hierarchy.Person
	err := c.do(ctx, http.MethodPut, "/api/people/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

// =============================================================================
// AREAS
// =============================================================================

func (c *Client) ListAreas(ctx context.Context) ([]hierarchy.Area, error) {
	var out []hierarchy.Area
	err := c.do(ctx, http.MethodGet, "/api/areas", nil, nil, &out)
	return out, err
}

func (c *Client) GetArea(ctx context.Context, ref hierarchy.AreaRef) (hierarchy.Area, error) {
	path := "/api/areas/" + url.PathEscape(ref.ID)
	if ref.ID == "" {
		path = "/api/areas/by-name/" + url.PathEscape(ref.Name)
	}
	var out hierarchy.Area
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

func (c *Client) UpdateArea(ctx context.Context, id string, patch hierarchy.AreaPatch) (hierarchy.Area, error) {
	var out hierarchy.Area
	err := c.do(ctx, http.MethodPut, "/api/areas/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

func (c *Client) AppendAreaIndex(ctx context.Context, areaID, index, personID string) (hierarchy.Area, error) {
	var out hierarchy.Area
	path := "/api/areas/" + url.PathEscape(areaID) + "/" + url.PathEscape(index)
	err := c.do(ctx, http.MethodPut, path, nil, map[string]string{"person_id": personID}, &out)
	return out, err
}

// =============================================================================
// RECORDS
// =============================================================================

func (c *Client) ListRecords(ctx context.Context, tier hierarchy.Tier, filter hierarchy.RecordFilter) ([]hierarchy.TierRecord, error) {
	path, err := collectionPath(tier)
	if err != nil {
		return nil, err
	}
	q := areaQuery(filter.Area)
	if filter.ParentID != "" {
		q.Set("parent_id", filter.ParentID)
	}
	if filter.PersonID != "" {
		q.Set("person_id", filter.PersonID)
	}
	var out []hierarchy.TierRecord
	err = c.do(ctx, http.MethodGet, path, q, nil, &out)
	return out, err
}

func (c *Client) CreateRecord(ctx context.Context, rec hierarchy.TierRecord) (hierarchy.TierRecord, error) {
	path, err := collectionPath(rec.Tier)
	if err != nil {
		return hierarchy.TierRecord{}, err
	}
	var out hierarchy.TierRecord
	err = c.do(ctx, http.MethodPost, path, nil, rec, &out)
	return out, err
}

func collectionPath(tier hierarchy.Tier) (string, error) {
	spec, ok := tier.Spec()
	if !ok || !spec.HasRecords() {
		return "", fmt.Errorf("record tier %q: %w", tier, hierarchy.ErrInvalidTier)
	}
	return "/api/" + spec.Collection, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func areaQuery(ref hierarchy.AreaRef) url.Values {
	q := url.Values{}
	if ref.ID != "" {
		q.Set("area", ref.ID)
	} else if ref.Name != "" {
		q.Set("area_name", ref.Name)
	}
	return q
}

// do sends one request. path is already escaped: callers escape each
// segment with url.PathEscape, so ids and area names may contain spaces,
// slashes or other reserved characters.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	raw := c.base.EscapedPath() + path
	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	u.Path, u.RawPath = unescaped, raw
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
		if body.Details != "" {
			msg += ": " + body.Details
		}
	}

	se := &StatusError{Method: method, Path: path, Status: resp.StatusCode, Msg: msg}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", se, hierarchy.ErrNotFound)
	}
	return se
}
