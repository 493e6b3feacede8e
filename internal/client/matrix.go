package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	matrixTimeout  = 30 * time.Second
	matrixPageSize = 100

	eventMessage   = "m.room.message"
	eventMember    = "m.room.member"
	eventEncrypted = "m.room.encrypted"

	relThread = "m.thread"
)

// MatrixClient reads one room's message timeline. It surfaces reply and
// thread relations exactly as received, one hop deep: resolving the root of a
// multi-hop chain would require fetching ancestor events outside the current
// page, which a single fetch cannot guarantee.
type MatrixClient struct {
	name       string
	homeserver string
	token      string
	roomID     string
	client     *http.Client
}

// NewMatrix creates a Matrix client for one room. Credentials come resolved
// from the configuration layer; only unencrypted rooms are supported.
func NewMatrix(name, homeserver, token, roomID string) (*MatrixClient, error) {
	if strings.TrimSpace(homeserver) == "" || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: client %q: homeserver and access token are required", ErrConfiguration, name)
	}
	if strings.TrimSpace(roomID) == "" {
		return nil, fmt.Errorf("%w: client %q: room_id is required", ErrConfiguration, name)
	}
	return &MatrixClient{
		name:       name,
		homeserver: strings.TrimRight(homeserver, "/"),
		token:      token,
		roomID:     roomID,
		client:     &http.Client{Timeout: matrixTimeout},
	}, nil
}

// Name returns the configured display name.
func (m *MatrixClient) Name() string {
	return m.name
}

type matrixEvent struct {
	Type           string          `json:"type"`
	Sender         string          `json:"sender"`
	EventID        string          `json:"event_id"`
	OriginServerTS int64           `json:"origin_server_ts"`
	Content        json.RawMessage `json:"content"`
}

type matrixChunk struct {
	Chunk []matrixEvent `json:"chunk"`
}

type matrixMessageContent struct {
	Body      string `json:"body"`
	RelatesTo *struct {
		RelType   string `json:"rel_type"`
		EventID   string `json:"event_id"`
		InReplyTo *struct {
			EventID string `json:"event_id"`
		} `json:"m.in_reply_to"`
	} `json:"m.relates_to"`
}

type matrixMemberContent struct {
	DisplayName string `json:"displayname"`
}

// matrixError is the standard error body returned by the client-server API.
type matrixError struct {
	Code    string `json:"errcode"`
	Message string `json:"error"`
}

// Fetch reads one page of room history and normalizes message events.
// Messages come back sorted ascending by origin server timestamp; events that
// cannot be decoded (encrypted, malformed content) are appended as Failure
// items after the messages rather than silently dropped.
func (m *MatrixClient) Fetch(ctx context.Context) ([]Item, error) {
	endpoint := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/messages?limit=%d",
		m.homeserver, url.PathEscape(m.roomID), matrixPageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("client %q: create request: %w", m.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+m.token)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client %q: %w: %v", m.name, ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr matrixError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		kind := ErrTransport
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = ErrAuthentication
		}
		if apiErr.Code != "" {
			return nil, fmt.Errorf("client %q: %w: room %s: %s (%s)", m.name, kind, m.roomID, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("client %q: %w: room %s: HTTP %d", m.name, kind, m.roomID, resp.StatusCode)
	}

	var page matrixChunk
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("client %q: %w: decode room history: %v", m.name, ErrNormalization, err)
	}

	// First pass: display names from member events in the same window.
	displayNames := make(map[string]string)
	for _, ev := range page.Chunk {
		if ev.Type != eventMember {
			continue
		}
		var member matrixMemberContent
		if err := json.Unmarshal(ev.Content, &member); err != nil {
			continue
		}
		if member.DisplayName != "" {
			displayNames[ev.Sender] = member.DisplayName
		}
	}

	var messages []Message
	var failures []Item
	for _, ev := range page.Chunk {
		switch ev.Type {
		case eventMessage:
			msg, err := messageFromEvent(ev, displayNames)
			if err != nil {
				failures = append(failures, Failure{Ref: ev.EventID, Cause: err.Error()})
				continue
			}
			messages = append(messages, msg)
		case eventEncrypted:
			failures = append(failures, Failure{
				Ref:   ev.EventID,
				Cause: "encrypted event cannot be decoded",
			})
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})

	items := make([]Item, 0, len(messages)+len(failures))
	for _, msg := range messages {
		items = append(items, msg)
	}
	return append(items, failures...), nil
}

func messageFromEvent(ev matrixEvent, displayNames map[string]string) (Message, error) {
	var content matrixMessageContent
	if err := json.Unmarshal(ev.Content, &content); err != nil {
		return Message{}, fmt.Errorf("%w: event content: %v", ErrNormalization, err)
	}

	msg := Message{
		Sender:      ev.Sender,
		DisplayName: displayNames[ev.Sender],
		Body:        content.Body,
		SentAt:      time.UnixMilli(ev.OriginServerTS).UTC(),
		EventID:     ev.EventID,
	}

	if rel := content.RelatesTo; rel != nil {
		if rel.RelType == relThread {
			msg.ThreadRoot = rel.EventID
		}
		if rel.InReplyTo != nil {
			msg.ReplyTo = rel.InReplyTo.EventID
		}
	}

	return msg, nil
}
