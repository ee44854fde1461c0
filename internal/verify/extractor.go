package verify

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Extractor parses a query response into the set of observed value
// tokens. Abstracting this keeps the verification logic independent of
// any one database's output format.
type Extractor interface {
	Extract(output string) []string
}

// PrefixExtractor collects one value per response line that begins with
// Prefix, with the prefix stripped and whitespace trimmed.
type PrefixExtractor struct {
	Prefix string
}

func (e PrefixExtractor) Extract(output string) []string {
	var values []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, e.Prefix) {
			values = append(values, strings.TrimSpace(strings.TrimPrefix(line, e.Prefix)))
		}
	}

	return values
}

// JSONExtractor collects values at a gjson path. Each response line that
// parses as JSON contributes its match; array matches contribute every
// element.
type JSONExtractor struct {
	Path string
}

func (e JSONExtractor) Extract(output string) []string {
	var values []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !gjson.Valid(line) {
			continue
		}

		result := gjson.Get(line, e.Path)
		if !result.Exists() {
			continue
		}

		if result.IsArray() {
			for _, item := range result.Array() {
				values = append(values, item.String())
			}
		} else {
			values = append(values, result.String())
		}
	}

	return values
}
