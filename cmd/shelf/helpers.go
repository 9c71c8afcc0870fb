// Shared helpers for shelf CLI commands.
package main

import (
	"fmt"

	"github.com/mesh-intelligence/shelf/internal/engine"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// newAPI builds an engine handle over the resolved data directory.
func newAPI() (*engine.API, error) {
	api, err := engine.New(types.Config{DataDir: resolvedDataDir})
	if err != nil {
		return nil, fmt.Errorf("starting engine: %w", err)
	}
	return api, nil
}
