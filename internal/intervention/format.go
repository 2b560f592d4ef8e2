package intervention

import "strings"

const notAvailable = "N/A"

// FormatDescription renders r as Jira wiki markup.
//
// Sections are emitted in a fixed order: details link, general info, impact
// table, then pull requests and additional links when there are any. The
// output depends only on the inputs.
func FormatDescription(r Record, appURL string) string {
	var b strings.Builder

	link := strings.TrimSuffix(appURL, "/")
	if r.ID != "" {
		link += "/#detail/" + r.ID
	}

	b.WriteString("h2. 🔗 Intervention Details\n")
	b.WriteString("See full details and manage this intervention here: [Open in Intervention Manager|" + link + "]\n\n")

	b.WriteString("h2. ℹ️ General Info\n")
	if r.Description != "" {
		b.WriteString("*Description:* " + r.Description + "\n\n")
	}
	b.WriteString("*Duration:* " + orNA(r.ETCMinutes) + " minutes\n")
	if r.StepsURL != "" {
		b.WriteString("*Procedure URL:* [Open Procedures|" + r.StepsURL + "]\n")
	}
	b.WriteString("\n")

	b.WriteString("h2. 💥 Impact\n")
	b.WriteString("|| Type || Description ||\n")
	b.WriteString("| *System* | " + orNA(r.ImpactSystem) + " |\n")
	b.WriteString("| *Client* | " + orNA(r.ImpactClient) + " |\n")
	b.WriteString("\n")

	if len(r.PRLinks) > 0 {
		b.WriteString("h2. 🐙 Pull Requests\n")
		writeLinks(&b, r.PRLinks)
		b.WriteString("\n")
	}

	if len(r.AdditionalLinks) > 0 {
		b.WriteString("h2. 🔗 Additional Info\n")
		writeLinks(&b, r.AdditionalLinks)
	}

	return b.String()
}

func writeLinks(b *strings.Builder, urls []string) {
	for _, u := range urls {
		b.WriteString("- [" + u + "|" + u + "]\n")
	}
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
