// Package behavior normalizes externally produced sandbox behavior reports.
package behavior

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Connection is an observed outbound connection.
type Connection struct {
	Destination string `json:"destination" yaml:"destination"`
	Port        int    `json:"port" yaml:"port"`
	Protocol    string `json:"protocol" yaml:"protocol"`
}

// HTTPRequest is an observed HTTP request.
type HTTPRequest struct {
	URL    string `json:"url" yaml:"url"`
	Method string `json:"method" yaml:"method"`
}

// RegistryValue is a registry value written by the sample.
type RegistryValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
	Data  string `json:"data" yaml:"data"`
}

// Process is a child process spawned by the sample.
type Process struct {
	Name        string `json:"name" yaml:"name"`
	CommandLine string `json:"command_line" yaml:"command_line"`
}

type Network struct {
	TCPConnections []Connection  `json:"tcp_connections" yaml:"tcp_connections"`
	DNSRequests    []string      `json:"dns_requests" yaml:"dns_requests"`
	HTTPRequests   []HTTPRequest `json:"http_requests" yaml:"http_requests"`
}

type Registry struct {
	KeysCreated []string        `json:"keys_created" yaml:"keys_created"`
	ValuesSet   []RegistryValue `json:"values_set" yaml:"values_set"`
	KeysDeleted []string        `json:"keys_deleted" yaml:"keys_deleted"`
}

type Filesystem struct {
	FilesCreated  []string `json:"files_created" yaml:"files_created"`
	FilesDeleted  []string `json:"files_deleted" yaml:"files_deleted"`
	FilesModified []string `json:"files_modified" yaml:"files_modified"`
}

type ProcessActivity struct {
	ProcessesCreated []Process `json:"processes_created" yaml:"processes_created"`
	LibrariesLoaded  []string  `json:"libraries_loaded" yaml:"libraries_loaded"`
}

// Report is a behavior report produced by an external sandbox run.
type Report struct {
	Network    Network         `json:"network" yaml:"network"`
	Registry   Registry        `json:"registry" yaml:"registry"`
	Filesystem Filesystem      `json:"filesystem" yaml:"filesystem"`
	Process    ProcessActivity `json:"process" yaml:"process"`
}

// LoadReport reads a behavior report from a .json, .yaml or .yml file.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behavior report: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON behavior report. Unknown fields are ignored.
func ParseJSON(data []byte) (*Report, error) {
	var r Report
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return nil, fmt.Errorf("invalid behavior report JSON: %w", err)
	}
	return &r, nil
}

// ParseYAML decodes a YAML behavior report.
func ParseYAML(data []byte) (*Report, error) {
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid behavior report YAML: %w", err)
	}
	return &r, nil
}
