// Package feedclient is the consumer side of the feed: a REST client, a
// websocket room subscriber and the Reconciler that keeps a local copy of
// one scope's feed in step with both.
package feedclient

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

	"broadcast/internal/geo"
	"broadcast/internal/models"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient talks to the server at baseURL, e.g. http://localhost:3000.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) ListPosts(ctx context.Context, scope geo.Scope) ([]models.Post, error) {
	q := url.Values{}
	q.Set("levelType", string(scope.LevelType))
	if !scope.IsHome() {
		q.Set("levelValue", scope.LevelValue)
	}
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts?"+q.Encode(), nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) ToggleLike(ctx context.Context, postID, userID string) (models.LikeResult, error) {
	var res models.LikeResult
	err := c.do(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(postID)+"/like", map[string]string{"userId": userID}, &res)
	return res, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
