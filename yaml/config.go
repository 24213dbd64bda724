// Package yaml loads command-line defaults from YAML configuration files.
package yaml

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// Loader is a kong.ConfigurationLoader reading YAML documents.
//
// Top-level keys match long flag names. A mapping keyed by a command name
// scopes its keys to that command and takes precedence:
//
//	workers: 8
//	build:
//	  exclude-routes: [docs/changelogs/**/*]
//
// Sequences become comma-separated values.
func Loader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var f kong.ResolverFunc = func(ctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		raw, ok := lookup(values, commands(ctx), flag.Name)
		if !ok {
			return nil, nil
		}
		return stringify(raw)
	}
	return f, nil
}

// commands returns the names of the commands selected on the command line,
// innermost last.
func commands(ctx *kong.Context) []string {
	if ctx == nil {
		return nil
	}
	var names []string
	for _, p := range ctx.Path {
		if p.Command != nil {
			names = append(names, p.Command.Name)
		}
	}
	return names
}

func lookup(values map[string]any, commands []string, name string) (any, bool) {
	for i := len(commands) - 1; i >= 0; i-- {
		section, ok := values[commands[i]].(map[string]any)
		if !ok {
			continue
		}
		if v, ok := section[name]; ok {
			return v, true
		}
	}
	v, ok := values[name]
	return v, ok
}

func stringify(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, err := stringify(item)
			if err != nil {
				return nil, err
			}
			if s == nil {
				continue
			}
			parts = append(parts, s.(string))
		}
		return strings.Join(parts, ","), nil
	case map[string]any:
		return nil, fmt.Errorf("unexpected mapping value")
	default:
		return fmt.Sprint(v), nil
	}
}
