// Package client fetches and normalizes activity from remote sources.
package client

import (
	"context"
	"errors"
	"time"
)

// Error kinds wrapped by clients so callers can classify failures with errors.Is.
var (
	ErrConfiguration  = errors.New("invalid client configuration")
	ErrAuthentication = errors.New("authentication rejected")
	ErrTransport      = errors.New("transport failure")
	ErrNormalization  = errors.New("cannot normalize record")
)

// Kind tags an Issue item.
type Kind string

const (
	KindIssue       Kind = "Issue"
	KindPullRequest Kind = "PR"
)

// Item is one normalized unit of content produced by a client.
// The variant set is closed: Issue, Message, Failure.
type Item interface {
	item()
}

// Issue is a normalized issue or pull request record.
type Issue struct {
	Kind      Kind
	Number    int
	Title     string
	Author    string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
	Body      string
}

// Message is a normalized chat message. ReplyTo and ThreadRoot carry the
// direct relation identifiers as received; multi-hop chains are not resolved
// because a single fetch window cannot guarantee the full relation graph.
type Message struct {
	Sender      string
	DisplayName string
	Body        string
	SentAt      time.Time
	EventID     string
	ReplyTo     string // event ID this message replies to, empty if none
	ThreadRoot  string // event ID of the thread root, empty if none
}

// Failure marks a fetched record that could not be normalized. It is carried
// in the item stream so the report never presents a silent gap.
type Failure struct {
	Ref   string // source-side identifier of the failed record
	Cause string
}

func (Issue) item()   {}
func (Message) item() {}
func (Failure) item() {}

// Client fetches items from one configured source.
// Implementations perform network I/O and keep no state between calls.
type Client interface {
	// Name returns the configured display name.
	Name() string

	// Fetch retrieves all available items, already normalized. Items come
	// back in source-natural order; the caller must not re-sort them.
	Fetch(ctx context.Context) ([]Item, error)
}
