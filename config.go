package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// yamlConfig resolves flag defaults from a YAML document. Keys are flag
// names with dashes replaced by underscores, e.g. url_template or log_level.
func yamlConfig(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return kong.JSON(bytes.NewReader(data))
}
