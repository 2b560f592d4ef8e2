// Package statusmap translates internal workflow status labels into the
// issue tracker's status vocabulary.
//
// A mapping file, when given and readable, replaces the built-in table
// entirely. Any failure to load it falls back to the built-in table, and a
// status absent from the active table maps to itself. Nothing in this package
// returns an error to callers of MapStatus.
package statusmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/opsnotify/notification-hub/internal/debug"
)

// Map is a flat internal-status to tracker-status table.
type Map map[string]string

// defaultStatuses are the built-in labels; each maps to itself.
var defaultStatuses = [...]string{
	"Creation",
	"To Approve",
	"To Review",
	"Accepted",
	"Changes Required",
	"Scheduled",
	"In Progress",
	"Completed",
	"Rollback",
	"Cancelled",
}

// Default returns a fresh copy of the built-in table.
func Default() Map {
	m := make(Map, len(defaultStatuses))
	for _, s := range defaultStatuses {
		m[s] = s
	}
	return m
}

// Lookup returns the mapped status, or status itself when unmapped.
func (m Map) Lookup(status string) string {
	if mapped, ok := m[status]; ok {
		return mapped
	}
	return status
}

// Load reads a mapping file. The format follows the extension:
// .yaml/.yml and .toml are decoded accordingly, anything else as JSON.
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path) // #nosec G304 - mapping path is caller supplied
	if err != nil {
		return nil, fmt.Errorf("read status map: %w", err)
	}

	var m Map
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	case ".toml":
		err = toml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse status map %s: %w", path, err)
	}
	return m, nil
}

// Resolve returns the active table for path: the loaded file when it parses
// to a non-empty table, otherwise Default().
func Resolve(path string) Map {
	if path == "" {
		return Default()
	}
	m, err := Load(path)
	if err != nil {
		debug.Logger().Debug("using default status map", "path", path, "err", err)
		return Default()
	}
	if len(m) == 0 {
		debug.Logger().Debug("status map is empty, using default", "path", path)
		return Default()
	}
	return m
}

// MapStatus maps an internal status using the table at path (optional).
func MapStatus(status, path string) string {
	return Resolve(path).Lookup(status)
}
