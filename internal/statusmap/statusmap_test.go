package statusmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsIdentity(t *testing.T) {
	m := Default()
	assert.Len(t, m, 10)
	for _, s := range defaultStatuses {
		assert.Equal(t, s, MapStatus(s, ""), "default map must be identity for %q", s)
	}
}

func TestDefaultReturnsCopy(t *testing.T) {
	m := Default()
	m["Creation"] = "Open"
	assert.Equal(t, "Creation", Default()["Creation"])
}

func TestUnknownStatusIsIdentity(t *testing.T) {
	for _, s := range []string{"Unknown", "", "in progress", "Done ✔"} {
		assert.Equal(t, s, MapStatus(s, ""))
	}

	path := writeFile(t, "map.json", `{"Creation": "Open"}`)
	assert.Equal(t, "Whatever", MapStatus("Whatever", path))
}

func TestFileReplacesDefault(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "map.json", `{"In Progress": "Doing", "Completed": "Done"}`},
		{"yaml", "map.yaml", "In Progress: Doing\nCompleted: Done\n"},
		{"yml", "map.yml", "\"In Progress\": Doing\n\"Completed\": Done\n"},
		{"toml", "map.toml", "\"In Progress\" = \"Doing\"\nCompleted = \"Done\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)

			assert.Equal(t, "Doing", MapStatus("In Progress", path))
			assert.Equal(t, "Done", MapStatus("Completed", path))

			// No merge with the default table: an unmapped default key is identity
			// because the file replaced the table, not because of the default.
			active := Resolve(path)
			assert.Len(t, active, 2)
			_, hasCreation := active["Creation"]
			assert.False(t, hasCreation)
		})
	}
}

func TestFallbackToDefault(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.json") }},
		{"malformed json", func(t *testing.T) string { return writeFile(t, "bad.json", "{not json") }},
		{"non-string values", func(t *testing.T) string { return writeFile(t, "nums.json", `{"Creation": 1}`) }},
		{"nested object", func(t *testing.T) string { return writeFile(t, "nested.json", `{"a": {"b": "c"}}`) }},
		{"malformed yaml", func(t *testing.T) string { return writeFile(t, "bad.yaml", "a: [unclosed") }},
		{"malformed toml", func(t *testing.T) string { return writeFile(t, "bad.toml", "= nope") }},
		{"empty object", func(t *testing.T) string { return writeFile(t, "empty.json", "{}") }},
		{"empty yaml", func(t *testing.T) string { return writeFile(t, "empty.yaml", "") }},
		{"directory", func(t *testing.T) string { return t.TempDir() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path(t)
			assert.Equal(t, Default(), Resolve(path))
			assert.Equal(t, "Scheduled", MapStatus("Scheduled", path))
		})
	}
}

func TestLoadReportsErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := writeFile(t, "bad.json", "[1, 2]")
	_, err = Load(path)
	assert.Error(t, err)
}
