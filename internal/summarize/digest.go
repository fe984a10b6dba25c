package summarize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Digest is the shape requested from the model.
type Digest struct {
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	City       string `json:"city"`
	AgencyType string `json:"agency_type"`
	AgencyName string `json:"agency_name"`
}

// DigestJSONSchema is sent to providers that accept one and used to validate replies.
func DigestJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       str,
			"summary":     map[string]any{"type": "string", "minLength": 1},
			"city":        str,
			"agency_type": str,
			"agency_name": str,
		},
		"required": []string{"summary"},
	}
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(DigestJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("digest.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("digest.json")
})

// ValidateDigestJSON checks data against DigestJSONSchema.
func ValidateDigestJSON(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

var (
	reFenceOpen  = regexp.MustCompile("^```(?:json)?\\s*")
	reFenceClose = regexp.MustCompile("\\s*```$")
)

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = reFenceOpen.ReplaceAllString(s, "")
	return reFenceClose.ReplaceAllString(s, "")
}

var errEmptyReply = errors.New("empty model reply")

// decodeDigest turns a model reply into a Digest. Code fences are dropped and
// malformed JSON is repaired before schema validation.
func decodeDigest(raw string) (Digest, bool, error) {
	s := stripFences(raw)
	if s == "" {
		return Digest{}, false, errEmptyReply
	}
	repaired := false
	if !json.Valid([]byte(s)) {
		fixed, err := jsonrepair.RepairJSON(s)
		if err != nil {
			return Digest{}, false, fmt.Errorf("repair json: %w", err)
		}
		s, repaired = fixed, true
	}
	if err := ValidateDigestJSON([]byte(s)); err != nil {
		return Digest{}, repaired, err
	}
	var d Digest
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return Digest{}, repaired, fmt.Errorf("unmarshal digest: %w", err)
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Summary = strings.TrimSpace(d.Summary)
	d.City = strings.TrimSpace(d.City)
	d.AgencyName = strings.TrimSpace(d.AgencyName)
	d.AgencyType = strings.TrimSpace(d.AgencyType)
	return d, repaired, nil
}
