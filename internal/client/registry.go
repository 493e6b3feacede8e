package client

import (
	"fmt"

	"github.com/avezina/roundup/internal/config"
)

// constructor builds a Client from one resolved configuration entry.
type constructor func(cfg config.Client) (Client, error)

var constructors = map[config.SourceType]constructor{
	config.SourceGitHub: newGitHubFromConfig,
	config.SourceMatrix: newMatrixFromConfig,
}

// New resolves a configuration entry to a concrete Client. Unknown source
// types and missing parameters are configuration errors, raised here before
// any fetch is attempted.
func New(cfg config.Client) (Client, error) {
	if cfg.Err != nil {
		return nil, fmt.Errorf("%w: client %q: %v", ErrConfiguration, cfg.Name, cfg.Err)
	}
	build, ok := constructors[cfg.API]
	if !ok {
		return nil, fmt.Errorf("%w: client %q: unknown api type %q", ErrConfiguration, cfg.Name, cfg.API)
	}
	return build(cfg)
}

func newGitHubFromConfig(cfg config.Client) (Client, error) {
	return NewGitHub(cfg.Name, cfg.Owner, cfg.Repo, cfg.AccessToken)
}

func newMatrixFromConfig(cfg config.Client) (Client, error) {
	if cfg.Matrix == nil {
		return nil, fmt.Errorf("%w: client %q: matrix credentials are not resolved", ErrConfiguration, cfg.Name)
	}
	return NewMatrix(cfg.Name, cfg.Matrix.Homeserver, cfg.Matrix.AccessToken, cfg.RoomID)
}
