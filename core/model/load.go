package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadProblem reads a problem from a JSON or YAML file, applies defaults and
// validates it.
func LoadProblem(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeProblem(f, ext)
}

// DecodeProblem reads a problem in the given format ("yaml", "yml" or "json").
func DecodeProblem(r io.Reader, format string) (*Problem, error) {
	var p Problem
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&p); err != nil {
			return nil, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported problem format: %s", format)
	}
	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
