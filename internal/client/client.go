// Package client provides a Go client for the Confessional API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/alphabot-ai/confessional/internal/model"
)

// Client is a Confessional API client. Token is the admin session token,
// sent as a bearer token when set.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

// New creates a new Confessional client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-success response. Message is the server's "error" field
// when it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (%d)", e.Status)
	}
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Post is a new message. Image, when set, is uploaded as ImageName.
type Post struct {
	Text        string
	Category    string
	DisplayName string
	Avatar      string
	ImageURL    string
	Image       io.Reader
	ImageName   string
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

// doRequest sends body as JSON and decodes a response with status want into out.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, want int, out any) error {
	var (
		bodyReader  io.Reader
		contentType string
	)
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyBytes)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, bodyReader, contentType)
	if err != nil {
		return err
	}
	return c.send(req, want, out)
}

func (c *Client) send(req *http.Request, want int, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		respBody, _ := io.ReadAll(resp.Body)
		var result struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &result) != nil || result.Error == "" {
			result.Error = strings.TrimSpace(string(respBody))
		}
		return &APIError{Status: resp.StatusCode, Message: result.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Messages lists messages newest first. An empty category lists all of them.
func (c *Client) Messages(ctx context.Context, category string) ([]model.Message, error) {
	path := "/api/messages"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var msgs []model.Message
	if err := c.doRequest(ctx, http.MethodGet, path, nil, http.StatusOK, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Message fetches a single message.
func (c *Client) Message(ctx context.Context, id int64) (*model.Message, error) {
	var msg model.Message
	if err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/messages/%d", id), nil, http.StatusOK, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) Counts(ctx context.Context) (map[string]int, error) {
	var counts map[string]int
	if err := c.doRequest(ctx, http.MethodGet, "/api/messages/counts", nil, http.StatusOK, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// Categories returns the configured categories and the default one.
func (c *Client) Categories(ctx context.Context) ([]string, string, error) {
	var result struct {
		Categories []string `json:"categories"`
		Default    string   `json:"default"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/api/categories", nil, http.StatusOK, &result); err != nil {
		return nil, "", err
	}
	return result.Categories, result.Default, nil
}

// PostMessage submits p, as multipart when it carries an image and as JSON
// otherwise.
func (c *Client) PostMessage(ctx context.Context, p Post) (*model.Message, error) {
	var msg model.Message
	if p.Image == nil {
		body := map[string]string{
			"text":         p.Text,
			"category":     p.Category,
			"display_name": p.DisplayName,
			"avatar":       p.Avatar,
			"image_url":    p.ImageURL,
		}
		if err := c.doRequest(ctx, http.MethodPost, "/api/messages", body, http.StatusCreated, &msg); err != nil {
			return nil, err
		}
		return &msg, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"text", p.Text},
		{"category", p.Category},
		{"display_name", p.DisplayName},
		{"avatar", p.Avatar},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	name := p.ImageName
	if name == "" {
		name = "image"
	}
	fw, err := mw.CreateFormFile("image", name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, p.Image); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/messages", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	if err := c.send(req, http.StatusCreated, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Like adds a like and returns the new count.
func (c *Client) Like(ctx context.Context, id int64) (int, error) {
	return c.likes(ctx, id, "like")
}

// Unlike removes a like and returns the new count.
func (c *Client) Unlike(ctx context.Context, id int64) (int, error) {
	return c.likes(ctx, id, "unlike")
}

func (c *Client) likes(ctx context.Context, id int64, action string) (int, error) {
	var result struct {
		Likes int `json:"likes"`
	}
	path := fmt.Sprintf("/api/messages/%d/%s", id, action)
	if err := c.doRequest(ctx, http.MethodPost, path, nil, http.StatusOK, &result); err != nil {
		return 0, err
	}
	return result.Likes, nil
}

// Report files a report and returns the message's report count.
func (c *Client) Report(ctx context.Context, id int64, reason string) (int, error) {
	var result struct {
		Reports int `json:"reports"`
	}
	path := fmt.Sprintf("/api/messages/%d/report", id)
	if err := c.doRequest(ctx, http.MethodPost, path, map[string]string{"reason": reason}, http.StatusOK, &result); err != nil {
		return 0, err
	}
	return result.Reports, nil
}

// Login exchanges admin credentials for a session token and keeps it on c.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var result struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/login", body, http.StatusOK, &result); err != nil {
		return err
	}
	c.Token = result.Token
	return nil
}

// Logout ends the session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/logout", map[string]string{"token": c.Token}, http.StatusOK, nil); err != nil {
		return err
	}
	c.Token = ""
	return nil
}

// Check reports whether the server still accepts the client's token.
func (c *Client) Check(ctx context.Context) (bool, error) {
	var result struct {
		Authorized bool `json:"authorized"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/check", map[string]string{"token": c.Token}, http.StatusOK, &result); err != nil {
		return false, err
	}
	return result.Authorized, nil
}

// Delete removes a message. Requires a session.
func (c *Client) Delete(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/messages/%d", id)
	return c.doRequest(ctx, http.MethodDelete, path, map[string]string{"token": c.Token}, http.StatusOK, nil)
}

// Reports lists reported messages. Requires a session.
func (c *Client) Reports(ctx context.Context) ([]model.ReportedMessage, error) {
	var reported []model.ReportedMessage
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/reports", map[string]string{"token": c.Token}, http.StatusOK, &reported); err != nil {
		return nil, err
	}
	return reported, nil
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	var health map[string]string
	if err := c.doRequest(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, &health); err != nil {
		return nil, err
	}
	return health, nil
}
