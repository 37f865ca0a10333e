// Package metadata builds the route manifest: a serialisable view of every
// registered endpoint, written next to the generated registration code for
// tooling and review.
package metadata

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Manifest is the complete route manifest of one compilation.
type Manifest struct {
	Version    string          `json:"version" yaml:"version"`
	Identity   string          `json:"identity" yaml:"identity"`
	SourceHash string          `json:"source_hash" yaml:"source_hash"` // Hash of the descriptor set for change detection
	Groups     []GroupMetadata `json:"groups,omitempty" yaml:"groups,omitempty"`
	Routes     []RouteMetadata `json:"routes" yaml:"routes"`
}

// GroupMetadata describes one route group and the routes mapped in it.
type GroupMetadata struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Routes int    `json:"routes" yaml:"routes"`
}

// RouteMetadata describes a registered route
type RouteMetadata struct {
	Method      string            `json:"method" yaml:"method"`
	Path        string            `json:"path" yaml:"path"`
	Handler     string            `json:"handler" yaml:"handler"`
	Endpoint    string            `json:"endpoint" yaml:"endpoint"`
	Group       string            `json:"group" yaml:"group"`
	Params      []ParamMetadata   `json:"params,omitempty" yaml:"params,omitempty"`
	Payload     string            `json:"payload" yaml:"payload"`
	Auth        *AuthMetadata     `json:"auth,omitempty" yaml:"auth,omitempty"`
	Filters     []string          `json:"filters,omitempty" yaml:"filters,omitempty"`
	Produces    []ProduceMetadata `json:"produces,omitempty" yaml:"produces,omitempty"`
	Consumes    []string          `json:"consumes,omitempty" yaml:"consumes,omitempty"`
	Summary     string            `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Responses   map[int]string    `json:"responses,omitempty" yaml:"responses,omitempty"`
	Deprecated  bool              `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	FilePath    string            `json:"file_path,omitempty" yaml:"file_path,omitempty"` // Source file path
	Line        int               `json:"line,omitempty" yaml:"line,omitempty"`           // Line number in source
}

// ParamMetadata describes a handler parameter
type ParamMetadata struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Source string `json:"source" yaml:"source"`
	Key    string `json:"key,omitempty" yaml:"key,omitempty"` // Wire name when it differs from Name
}

// AuthMetadata is present when the route requires authorization or
// explicitly allows anonymous access.
type AuthMetadata struct {
	Required  bool     `json:"required" yaml:"required"`
	Anonymous bool     `json:"anonymous,omitempty" yaml:"anonymous,omitempty"`
	Policy    string   `json:"policy,omitempty" yaml:"policy,omitempty"`
	Roles     []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	Schemes   []string `json:"schemes,omitempty" yaml:"schemes,omitempty"`
}

// ProduceMetadata describes one produced content declaration
type ProduceMetadata struct {
	Status       int      `json:"status" yaml:"status"`
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	ContentTypes []string `json:"content_types,omitempty" yaml:"content_types,omitempty"`
}

// ToJSON converts the manifest to a JSON string
func (m *Manifest) ToJSON() (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ToYAML converts the manifest to a YAML string
func (m *Manifest) ToYAML() (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON parses a manifest from a JSON string
func FromJSON(data string) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FromYAML parses a manifest from a YAML string
func FromYAML(data string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal([]byte(data), &m); err != nil {
		return nil, err
	}
	return &m, nil
}
