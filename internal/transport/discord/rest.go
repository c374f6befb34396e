package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultAPIBase   = "https://discord.com/api/v10/"
	DefaultUserAgent = "RemindBot (Discord Bot)"
)

// Client is a minimal Discord REST client authenticated as a bot.
type Client struct {
	base  string
	token string
	ua    string
	http  *http.Client
}

type ClientOption func(*Client)

func WithAPIBase(base string) ClientOption {
	return func(c *Client) {
		if base = strings.TrimSpace(base); base != "" {
			if !strings.HasSuffix(base, "/") {
				base += "/"
			}
			c.base = base
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		base:  DefaultAPIBase,
		token: strings.TrimSpace(token),
		ua:    DefaultUserAgent,
		http:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIError is a non-2xx Discord response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api: http %d: %s", e.Status, e.Body)
}

// Do sends one request to endpoint (relative to the API base). body is
// JSON-encoded when non-nil; out is decoded when non-nil.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+strings.TrimPrefix(endpoint, "/"), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("User-Agent", c.ua)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// CreateMessage posts content to a channel.
func (c *Client) CreateMessage(ctx context.Context, channelID, content string) (Message, error) {
	var m Message
	err := c.Do(ctx, http.MethodPost, "channels/"+channelID+"/messages", ResponseData{Content: content}, &m)
	return m, err
}

// InstallGlobalCommands bulk-overwrites the application's global commands.
func (c *Client) InstallGlobalCommands(ctx context.Context, appID string, cmds []ApplicationCommand) error {
	if strings.TrimSpace(appID) == "" {
		return fmt.Errorf("discord: app id is empty")
	}
	return c.Do(ctx, http.MethodPut, "applications/"+appID+"/commands", cmds, nil)
}
