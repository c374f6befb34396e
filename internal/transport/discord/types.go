package discord

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Interaction types.
const (
	InteractionPing               = 1
	InteractionApplicationCommand = 2
)

// Interaction response types.
const (
	ResponsePong                     = 1
	ResponseChannelMessageWithSource = 4
)

type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
}

type Member struct {
	User *User `json:"user"`
}

type CommandOption struct {
	Name  string          `json:"name"`
	Type  int             `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// String renders the option value; numbers keep their literal form.
func (o CommandOption) String() string {
	raw := strings.TrimSpace(string(o.Value))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(o.Value, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(o.Value, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(o.Value, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return raw
}

type InteractionData struct {
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name"`
	Type    int             `json:"type,omitempty"`
	Options []CommandOption `json:"options,omitempty"`
}

type Interaction struct {
	ID        string           `json:"id"`
	Type      int              `json:"type"`
	Data      *InteractionData `json:"data,omitempty"`
	Member    *Member          `json:"member,omitempty"`
	User      *User            `json:"user,omitempty"` // set instead of Member in DMs
	ChannelID string           `json:"channel_id"`
}

type ResponseData struct {
	Content string `json:"content"`
}

type InteractionResponse struct {
	Type int           `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}
