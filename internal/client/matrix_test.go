package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func matrixWithTransport(t *testing.T, rt roundTripFunc) *MatrixClient {
	t.Helper()
	m, err := NewMatrix("Y", "https://hs.test", "syt_token", "!room:hs.test")
	if err != nil {
		t.Fatalf("new matrix: %v", err)
	}
	m.client = &http.Client{Timeout: matrixTimeout, Transport: rt}
	return m
}

func TestNewMatrix_MissingParameters(t *testing.T) {
	cases := []struct {
		homeserver, token, room string
	}{
		{"", "tok", "!r:hs"},
		{"https://hs", "", "!r:hs"},
		{"https://hs", "tok", ""},
	}
	for _, tc := range cases {
		_, err := NewMatrix("Y", tc.homeserver, tc.token, tc.room)
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("NewMatrix(%q, %q, %q): err = %v, want ErrConfiguration",
				tc.homeserver, tc.token, tc.room, err)
		}
	}
}

func TestNewMatrix_TrimsTrailingSlash(t *testing.T) {
	m, err := NewMatrix("Y", "https://hs.test/", "tok", "!r:hs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.homeserver != "https://hs.test" {
		t.Errorf("homeserver = %q", m.homeserver)
	}
}

const matrixTimeline = `{
  "chunk": [
    {
      "type": "m.room.member",
      "sender": "@alice:hs.test",
      "event_id": "$member1",
      "origin_server_ts": 1722850000000,
      "content": {"membership": "join", "displayname": "Alice"}
    },
    {
      "type": "m.room.message",
      "sender": "@bob:hs.test",
      "event_id": "$bbbbbbbbbbbb",
      "origin_server_ts": 1722852000000,
      "content": {
        "msgtype": "m.text",
        "body": "replying in thread",
        "m.relates_to": {
          "rel_type": "m.thread",
          "event_id": "$aaaaaaaaaaaa",
          "m.in_reply_to": {"event_id": "$aaaaaaaaaaaa"}
        }
      }
    },
    {
      "type": "m.room.message",
      "sender": "@alice:hs.test",
      "event_id": "$aaaaaaaaaaaa",
      "origin_server_ts": 1722851000000,
      "content": {"msgtype": "m.text", "body": "hello"}
    },
    {
      "type": "m.room.encrypted",
      "sender": "@carol:hs.test",
      "event_id": "$encrypted11",
      "origin_server_ts": 1722851500000,
      "content": {"algorithm": "m.megolm.v1.aes-sha2"}
    }
  ]
}`

func TestMatrix_Fetch_NormalizesTimeline(t *testing.T) {
	m := matrixWithTransport(t, func(r *http.Request) (*http.Response, error) {
		if got := r.Header.Get("Authorization"); got != "Bearer syt_token" {
			t.Errorf("authorization = %q", got)
		}
		if !strings.Contains(r.URL.EscapedPath(), "/_matrix/client/v3/rooms/") {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		return response(http.StatusOK, matrixTimeline), nil
	})

	items, err := m.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3 (2 messages + 1 failure)", len(items))
	}

	// Messages sorted ascending by origin server timestamp.
	first, ok := items[0].(Message)
	if !ok {
		t.Fatalf("items[0] = %T, want Message", items[0])
	}
	if first.EventID != "$aaaaaaaaaaaa" || first.Body != "hello" {
		t.Errorf("items[0] = %+v, want $aaaaaaaaaaaa/hello", first)
	}
	if first.DisplayName != "Alice" {
		t.Errorf("display name = %q, want Alice (from member event)", first.DisplayName)
	}
	if first.ReplyTo != "" || first.ThreadRoot != "" {
		t.Errorf("plain message carries relations: %+v", first)
	}
	wantAt := time.UnixMilli(1722851000000).UTC()
	if !first.SentAt.Equal(wantAt) {
		t.Errorf("sent at = %v, want %v", first.SentAt, wantAt)
	}

	second, ok := items[1].(Message)
	if !ok {
		t.Fatalf("items[1] = %T, want Message", items[1])
	}
	if second.ThreadRoot != "$aaaaaaaaaaaa" {
		t.Errorf("thread root = %q", second.ThreadRoot)
	}
	if second.ReplyTo != "$aaaaaaaaaaaa" {
		t.Errorf("reply to = %q", second.ReplyTo)
	}
	if second.DisplayName != "" {
		t.Errorf("bob has no member event, display name = %q", second.DisplayName)
	}

	// Encrypted event surfaces as an explicit failure, never a silent gap.
	f, ok := items[2].(Failure)
	if !ok {
		t.Fatalf("items[2] = %T, want Failure", items[2])
	}
	if f.Ref != "$encrypted11" {
		t.Errorf("failure ref = %q", f.Ref)
	}
	if !strings.Contains(f.Cause, "encrypted") {
		t.Errorf("failure cause = %q", f.Cause)
	}
}

func TestMatrix_Fetch_AuthRejected(t *testing.T) {
	m := matrixWithTransport(t, func(_ *http.Request) (*http.Response, error) {
		return response(http.StatusForbidden,
			`{"errcode":"M_FORBIDDEN","error":"You aren't a member of the room"}`), nil
	})

	_, err := m.Fetch(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", err)
	}
	if !strings.Contains(err.Error(), "M_FORBIDDEN") {
		t.Errorf("error should carry the matrix errcode, got %v", err)
	}
}

func TestMatrix_Fetch_RoomNotFound(t *testing.T) {
	m := matrixWithTransport(t, func(_ *http.Request) (*http.Response, error) {
		return response(http.StatusNotFound,
			`{"errcode":"M_NOT_FOUND","error":"Room not found"}`), nil
	})

	_, err := m.Fetch(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestMatrix_Fetch_EmptyRoom(t *testing.T) {
	m := matrixWithTransport(t, func(_ *http.Request) (*http.Response, error) {
		return response(http.StatusOK, `{"chunk":[]}`), nil
	})

	items, err := m.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("got %d items, want 0", len(items))
	}
}
