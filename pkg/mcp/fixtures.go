package mcp

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Fixture is the canned answer for one tool. Exactly one of Result, Text or
// Error is used, in that order of preference.
type Fixture struct {
	Result any    `yaml:"result"`
	Text   string `yaml:"text"`
	Error  *Error `yaml:"error"`
}

// Fixtures maps tool names to canned answers.
type Fixtures map[string]Fixture

// LoadFixtures reads a YAML (or JSON) document of tool name → Fixture.
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	for name, f := range fx {
		if f.Result == nil && f.Text == "" && f.Error == nil {
			return nil, fmt.Errorf("fixture %q: one of result, text or error is required", name)
		}
	}
	return fx, nil
}

// Register installs a handler per fixture on srv, in name order.
func (fx Fixtures) Register(srv *Server) {
	names := make([]string, 0, len(fx))
	for name := range fx {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := fx[name]
		srv.Register(name, "fixture", func(ctx context.Context, args map[string]any) (any, *Error) {
			switch {
			case f.Result != nil:
				return f.Result, nil
			case f.Error == nil:
				return f.Text, nil
			default:
				return nil, f.Error
			}
		})
	}
}
