// Package notion implements the outbound contract toward the remote
// document-database API. Every method retries transient and rate-limit
// failures with bounded jittered backoff before surfacing a domain error,
// so callers never see a raw transport failure.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"taskbridge/internal/config"
	"taskbridge/internal/domain"
	"taskbridge/internal/ports"
	"taskbridge/pkg/backoff"
)

var _ ports.Remote = (*Client)(nil)

type Client struct {
	cfg    config.Remote
	policy backoff.Policy
	http   *http.Client
}

func New(cfg config.Remote) *Client {
	log.Info().Msgf("remote API client targeting %s (version %s)", cfg.BaseURL, cfg.Version)
	return &Client{
		cfg: cfg,
		policy: backoff.Policy{
			Base:        cfg.RetryBase,
			Max:         cfg.RetryMax,
			MaxAttempts: cfg.RetryAttempts,
			Jitter:      cfg.RetryJitter,
		},
		http: &http.Client{},
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type containerResponse struct {
	ID    string `json:"id"`
	Title []struct {
		PlainText string `json:"plain_text"`
	} `json:"title"`
	DataSources []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data_sources"`
}

type pageResponse struct {
	ID             string         `json:"id"`
	URL            string         `json:"url"`
	CreatedTime    time.Time      `json:"created_time"`
	LastEditedTime time.Time      `json:"last_edited_time"`
	Archived       bool           `json:"archived"`
	Properties     map[string]any `json:"properties"`
}

type queryResponse struct {
	Results    []pageResponse `json:"results"`
	HasMore    bool           `json:"has_more"`
	NextCursor string         `json:"next_cursor"`
}

func (p pageResponse) toPage() ports.Page {
	return ports.Page{
		ID:             p.ID,
		URL:            p.URL,
		CreatedTime:    p.CreatedTime,
		LastEditedTime: p.LastEditedTime,
		Archived:       p.Archived,
		Properties:     p.Properties,
	}
}

// DescribeContainer retrieves a container and its data sources.
func (c *Client) DescribeContainer(ctx context.Context, containerID string) (ports.Container, error) {
	var out containerResponse
	err := c.call(ctx, http.MethodGet, "/v1/databases/"+containerID, nil, nil, &out)
	if err != nil {
		if domain.IsNotFound(err) {
			return ports.Container{}, domain.NewNotFound("database", containerID)
		}
		return ports.Container{}, err
	}

	info := ports.Container{ID: out.ID}
	if len(out.Title) > 0 {
		info.Title = out.Title[0].PlainText
	}
	for _, src := range out.DataSources {
		info.Sources = append(info.Sources, ports.DataSource{ID: src.ID, Name: src.Name})
	}
	return info, nil
}

// CreateRecord creates a page under the resolved data source. The
// idempotency key makes the call safe to retry.
func (c *Client) CreateRecord(ctx context.Context, sourceID string, properties map[string]any, idempotencyKey string) (ports.Page, error) {
	body := map[string]any{
		"parent": map[string]any{
			"type":           "data_source_id",
			"data_source_id": sourceID,
		},
		"properties": properties,
	}
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	var out pageResponse
	err := c.call(ctx, http.MethodPost, "/v1/pages", headers, body, &out)
	if err != nil {
		if domain.IsNotFound(err) {
			return ports.Page{}, domain.NewNotFound("data source", sourceID)
		}
		return ports.Page{}, err
	}
	return out.toPage(), nil
}

// QueryRecords fetches one page of a cursor walk against a data source.
func (c *Client) QueryRecords(ctx context.Context, sourceID string, q ports.RecordQuery) (ports.QueryPage, error) {
	size := q.PageSize
	if size <= 0 || size > 100 {
		size = 100
	}
	body := map[string]any{"page_size": size}
	if q.Filter != nil {
		body["filter"] = q.Filter
	}
	if len(q.Sorts) > 0 {
		body["sorts"] = q.Sorts
	}
	if q.StartCursor != "" {
		body["start_cursor"] = q.StartCursor
	}

	var out queryResponse
	err := c.call(ctx, http.MethodPost, "/v1/data_sources/"+sourceID+"/query", nil, body, &out)
	if err != nil {
		if domain.IsNotFound(err) {
			return ports.QueryPage{}, domain.NewNotFound("data source", sourceID)
		}
		return ports.QueryPage{}, err
	}

	page := ports.QueryPage{HasMore: out.HasMore, NextCursor: out.NextCursor}
	for _, raw := range out.Results {
		page.Results = append(page.Results, raw.toPage())
	}
	return page, nil
}

// UpdateRecord applies a partial property update directly to a record.
func (c *Client) UpdateRecord(ctx context.Context, recordID string, properties map[string]any) (ports.Page, error) {
	body := map[string]any{"properties": properties}
	var out pageResponse
	err := c.call(ctx, http.MethodPatch, "/v1/pages/"+recordID, nil, body, &out)
	if err != nil {
		if domain.IsNotFound(err) {
			return ports.Page{}, domain.NewNotFound("task", recordID)
		}
		return ports.Page{}, err
	}
	return out.toPage(), nil
}

// ArchiveRecord sets the archived flag; the remote API models deletion as
// archival rather than physical removal.
func (c *Client) ArchiveRecord(ctx context.Context, recordID string) (ports.Page, error) {
	body := map[string]any{"archived": true}
	var out pageResponse
	err := c.call(ctx, http.MethodPatch, "/v1/pages/"+recordID, nil, body, &out)
	if err != nil {
		if domain.IsNotFound(err) {
			return ports.Page{}, domain.NewNotFound("task", recordID)
		}
		return ports.Page{}, err
	}
	return out.toPage(), nil
}

// Check verifies connectivity and credentials against the remote API.
func (c *Client) Check(ctx context.Context) error {
	var out map[string]any
	return c.call(ctx, http.MethodGet, "/v1/users/me", nil, nil, &out)
}

// call runs one logical remote call through the retry executor.
func (c *Client) call(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	_, err := backoff.RetryNotify(ctx, c.policy, domain.IsTransient,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.do(ctx, method, path, headers, body, out)
		},
		func(attempt int, delay time.Duration) {
			log.Ctx(ctx).Warn().
				Str("method", method).
				Str("path", path).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("transient remote failure, backing off")
		})
	return err
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return domain.NewRemote("encoding request body", false, err)
		}
		reader = bytes.NewReader(buf)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return domain.NewRemote("building request", false, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Notion-Version", c.cfg.Version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// the caller's deadline elapsed, fail fast
			return domain.NewTimeout(fmt.Sprintf("%s %s", method, path), ctx.Err())
		}
		// per-call timeout or network failure, eligible for retry
		return domain.NewRemote(fmt.Sprintf("%s %s", method, path), true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.NewRemote("decoding response body", false, err)
		}
		return nil
	}

	var remote apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(raw, &remote)
	if remote.Message == "" {
		remote.Message = http.StatusText(resp.StatusCode)
	}
	return mapStatus(resp.StatusCode, remote)
}

func mapStatus(status int, remote apiError) error {
	msg := remote.Message
	switch {
	case status == http.StatusTooManyRequests:
		return domain.NewRateLimited(msg)
	case status == http.StatusNotFound:
		return &domain.Error{Kind: domain.KindNotFound, Message: msg}
	case status == http.StatusBadRequest:
		return domain.NewValidation(msg, "")
	case status == http.StatusConflict:
		return domain.NewConflict(msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewRemote(fmt.Sprintf("remote rejected credentials (%d): %s", status, msg), false, nil)
	case status >= 500:
		return domain.NewRemote(fmt.Sprintf("remote failure (%d): %s", status, msg), true, nil)
	default:
		return domain.NewRemote(fmt.Sprintf("unexpected remote status %d: %s", status, msg), false, nil)
	}
}
