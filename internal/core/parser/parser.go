// Package parser turns acquired blotter text into ordered incident records.
//
// ParseDocumentText is a pure function of its input: it keeps no state between
// calls, never fails for content reasons, and returns zero incidents rather
// than guessing when a document matches no known layout.
package parser

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/jurisdiction"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/normalize"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

// Options carries the collaborators a parse may need.
type Options struct {
	// Now supplies the fallback date for documents that carry none.
	// Defaults to time.Now.
	Now func() time.Time
	// Logger receives fallback warnings. Defaults to slog.Default().
	Logger *slog.Logger
	// Source labels log lines (a filename or message id).
	Source string
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// fallbackDate is used when a document names no date of its own. It is wrong
// for backlog reprocessing, hence the warning.
func (o Options) fallbackDate(format constants.Format) string {
	date := o.Now().Format(normalize.WireDateLayout)
	o.Logger.Warn("parser.date.fallback",
		"format", format,
		"source", o.Source,
		"date", date,
	)
	return date
}

// ParseDocumentText detects the jurisdiction of text and runs the matching
// structural parser.
func ParseDocumentText(text string, opts Options) entity.ParseResult {
	opts = opts.withDefaults()

	county := jurisdiction.DetectCounty(text)
	format := jurisdiction.SelectFormat(text)

	var incidents []entity.Incident
	switch format {
	case constants.FormatGCSO:
		incidents = parseGCSO(text)
	case constants.FormatHelena:
		incidents = parseHelena(text, opts)
	case constants.FormatHavre:
		incidents = parseHavre(text, opts)
	default:
		incidents = parseGeneric(text)
	}
	if incidents == nil {
		incidents = []entity.Incident{}
	}

	opts.Logger.Debug("parser.parse.ok",
		"source", opts.Source,
		"format", format,
		"county", county,
		"incidents", len(incidents),
		"text_len", len(text),
	)
	if len(incidents) == 0 && strings.TrimSpace(text) != "" {
		opts.Logger.Info("parser.parse.empty", "source", opts.Source, "format", format)
	}

	return entity.ParseResult{
		County:     county,
		Format:     format,
		Incidents:  incidents,
		TotalCount: len(incidents),
	}
}

// splitLines splits on "\n" without dropping empty lines.
func splitLines(text string) []string {
	return strings.Split(text, "\n")
}
