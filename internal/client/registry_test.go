package client

import (
	"errors"
	"testing"

	"github.com/avezina/roundup/internal/config"
)

func TestNew_GitHub(t *testing.T) {
	c, err := New(config.Client{
		Name:        "X",
		API:         config.SourceGitHub,
		Owner:       "o",
		Repo:        "r",
		AccessToken: testGitHubToken,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := c.(*GitHubClient); !ok {
		t.Fatalf("got %T, want *GitHubClient", c)
	}
}

func TestNew_Matrix(t *testing.T) {
	c, err := New(config.Client{
		Name:   "Y",
		API:    config.SourceMatrix,
		RoomID: "!room:hs.test",
		Matrix: &config.MatrixCredentials{
			Homeserver:  "https://hs.test",
			AccessToken: "syt_token",
			UserID:      "@me:hs.test",
			DeviceID:    "DEV1",
		},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := c.(*MatrixClient); !ok {
		t.Fatalf("got %T, want *MatrixClient", c)
	}
}

func TestNew_UnknownSourceType(t *testing.T) {
	_, err := New(config.Client{Name: "Z", API: "carrier-pigeon"})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestNew_EntryResolutionError(t *testing.T) {
	_, err := New(config.Client{
		Name: "Y",
		API:  config.SourceMatrix,
		Err:  errors.New("read credentials: no such file"),
	})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestNew_MatrixWithoutCredentials(t *testing.T) {
	_, err := New(config.Client{Name: "Y", API: config.SourceMatrix, RoomID: "!r:hs"})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}
