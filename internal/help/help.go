// Package help serves the static command catalog: a description and a
// usage example per engine command, loaded from an embedded data file.
package help

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

//go:embed help.yaml
var catalogYAML []byte

// Entry is one command's help text.
type Entry struct {
	Description string `mapstructure:"description"`
	Example     string `mapstructure:"example"`
}

// Catalog maps command names to help entries.
type Catalog struct {
	entries map[string]Entry
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(catalogYAML)); err != nil {
		return nil, fmt.Errorf("reading help catalog: %w", err)
	}
	var raw struct {
		Commands map[string]Entry `mapstructure:"commands"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("decoding help catalog: %w", err)
	}
	return &Catalog{entries: raw.Commands}, nil
}

// Lookup returns the entry for a command name.
func (c *Catalog) Lookup(name string) (Entry, error) {
	e, ok := c.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("help topic %q: %w", name, types.ErrNotFound)
	}
	return e, nil
}

// Names returns all command names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
