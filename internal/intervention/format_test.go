package intervention

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, data string) Record {
	t.Helper()
	r, err := ParseRecord([]byte(data))
	require.NoError(t, err)
	return r
}

func TestFormatDescriptionFullRecord(t *testing.T) {
	r := mustParse(t, `{
		"id": 42,
		"description": "Rotate database credentials",
		"etc_minutes": 30,
		"steps_url": "https://wiki/steps",
		"impact_system": "Read-only for 5 minutes",
		"impact_client": "None",
		"pr_links": [{"url": "https://git/pr/1"}, "https://git/pr/2"],
		"additional_links": ["https://docs/runbook"]
	}`)

	want := "h2. 🔗 Intervention Details\n" +
		"See full details and manage this intervention here: [Open in Intervention Manager|https://im.example.com/#detail/42]\n\n" +
		"h2. ℹ️ General Info\n" +
		"*Description:* Rotate database credentials\n\n" +
		"*Duration:* 30 minutes\n" +
		"*Procedure URL:* [Open Procedures|https://wiki/steps]\n" +
		"\n" +
		"h2. 💥 Impact\n" +
		"|| Type || Description ||\n" +
		"| *System* | Read-only for 5 minutes |\n" +
		"| *Client* | None |\n" +
		"\n" +
		"h2. 🐙 Pull Requests\n" +
		"- [https://git/pr/1|https://git/pr/1]\n" +
		"- [https://git/pr/2|https://git/pr/2]\n" +
		"\n" +
		"h2. 🔗 Additional Info\n" +
		"- [https://docs/runbook|https://docs/runbook]\n"

	assert.Equal(t, want, FormatDescription(r, "https://im.example.com/"))
}

func TestFormatDescriptionEmptyRecord(t *testing.T) {
	got := FormatDescription(mustParse(t, `{}`), "http://localhost")

	want := "h2. 🔗 Intervention Details\n" +
		"See full details and manage this intervention here: [Open in Intervention Manager|http://localhost]\n\n" +
		"h2. ℹ️ General Info\n" +
		"*Duration:* N/A minutes\n" +
		"\n" +
		"h2. 💥 Impact\n" +
		"|| Type || Description ||\n" +
		"| *System* | N/A |\n" +
		"| *Client* | N/A |\n" +
		"\n"
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "Pull Requests")
	assert.NotContains(t, got, "Additional Info")
	assert.NotContains(t, got, "Description:*")
	assert.NotContains(t, got, "Procedure URL")
}

func TestFormatDescriptionStringEncodedLinks(t *testing.T) {
	r := RecordFromMap(map[string]any{
		"pr_links": `[{"url":"http://a"}, "http://b"]`,
	})
	got := FormatDescription(r, "http://localhost")

	assert.Contains(t, got, "h2. 🐙 Pull Requests\n- [http://a|http://a]\n- [http://b|http://b]\n\n")
	assert.NotContains(t, got, "Additional Info")
}

func TestFormatDescriptionTrailingSlash(t *testing.T) {
	r := Record{ID: "7"}
	withSlash := FormatDescription(r, "http://x/")
	withoutSlash := FormatDescription(r, "http://x")

	assert.Equal(t, withSlash, withoutSlash)
	assert.Contains(t, withSlash, "[Open in Intervention Manager|http://x/#detail/7]")
}

func TestFormatDescriptionDeterministic(t *testing.T) {
	r := mustParse(t, `{"id":"9","pr_links":["http://a","http://b"],"additional_links":"[\"http://c\"]","etc_minutes":"15"}`)
	first := FormatDescription(r, "http://localhost")
	for i := 0; i < 20; i++ {
		require.Equal(t, first, FormatDescription(r, "http://localhost"))
	}
}

func TestFormatDescriptionDegradesOnMalformedFields(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"unparsable string list", map[string]any{"pr_links": "[not json", "additional_links": "{{"}},
		{"string decoding to object", map[string]any{"pr_links": `{"url":"http://a"}`}},
		{"string decoding to string", map[string]any{"additional_links": `"http://a"`}},
		{"non-list value", map[string]any{"pr_links": 12.5, "additional_links": true}},
		{"null values", map[string]any{"pr_links": nil, "additional_links": nil, "etc_minutes": nil, "impact_system": nil}},
		{"empty lists", map[string]any{"pr_links": []any{}, "additional_links": ""}},
		{"elements without url", map[string]any{"pr_links": []any{map[string]any{"href": "x"}, 3, nil, ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			require.NotPanics(t, func() {
				got = FormatDescription(RecordFromMap(tt.data), "http://localhost")
			})
			assert.NotContains(t, got, "Pull Requests")
			assert.NotContains(t, got, "Additional Info")
			assert.Contains(t, got, "*Duration:* N/A minutes")
			assert.True(t, strings.HasPrefix(got, "h2. 🔗 Intervention Details\n"))
		})
	}
}

func TestFormatDescriptionSkipsLinklessElements(t *testing.T) {
	r := RecordFromMap(map[string]any{
		"additional_links": []any{map[string]any{"url": ""}, map[string]any{"url": "http://kept"}, 5},
	})
	got := FormatDescription(r, "http://localhost")
	assert.True(t, strings.HasSuffix(got, "h2. 🔗 Additional Info\n- [http://kept|http://kept]\n"))
}
