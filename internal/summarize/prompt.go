package summarize

import (
	"strings"

	"github.com/joseph-ayodele/blotter-tracker/constants"
)

const systemPrompt = "You are a journalist writing daily police activity summaries for a public news site. " +
	"Write clearly and factually. Respond with valid JSON only."

type promptInput struct {
	County     string
	Date       string
	AgencyType string
	AgencyName string
	Filename   string
	Lines      []string
}

func agencyLabel(in promptInput) string {
	if in.AgencyName != "" {
		return in.AgencyName
	}
	kind := "Police"
	if in.AgencyType == constants.AgencySheriff {
		kind = "Sheriff"
	}
	return in.County + " County " + kind
}

func buildUserPrompt(in promptInput) string {
	var b strings.Builder
	b.WriteString("Write a daily police activity report for publication.\n\n")
	b.WriteString("Agency: " + agencyLabel(in) + "\n")
	b.WriteString("Agency type: " + in.AgencyType + "\n")
	b.WriteString("Source file: " + in.Filename + "\n")
	b.WriteString("Date: " + in.Date + "\n")
	b.WriteString("County: " + in.County + "\n\n")
	b.WriteString("Incidents (time | type | location | details):\n")
	b.WriteString(strings.Join(in.Lines, "\n"))
	b.WriteString(`

Format the summary exactly like this example: a short intro sentence, then one bullet per notable incident with the time and a plain-English description:

"The [Agency Name] responded to a variety of incidents throughout the day. Below is a summary of notable events:

[HH:MM AM/PM] – [Plain English description of incident and location.]
[HH:MM AM/PM] – [Plain English description of incident and location.]
..."

Skip purely administrative entries (voicemails, callbacks, no-answer checks).
Use natural times like "8:20 AM" not raw timestamps.
Keep each bullet to one sentence.

Return ONLY valid JSON with these keys:
{
  "title": "Daily Police Activity Report – [Agency Name]",
  "summary": "[the full formatted report as described above]",
  "city": "primary city or town if determinable, else empty string",
  "agency_type": "sheriff or police or other",
  "agency_name": "full agency name"
}`)
	return b.String()
}
