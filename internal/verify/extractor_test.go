package verify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wkirui/settle/internal/verify"
)

func TestPrefixExtractor(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "Matching Lines",
			output: "val2: abc\nval2: def\n",
			want:   []string{"abc", "def"},
		},
		{
			name:   "Noise Interleaved",
			output: "MongoDB shell version v3.4\nval2: abc\nbye\n",
			want:   []string{"abc"},
		},
		{
			name:   "Leading Whitespace",
			output: "  val2: abc  \n",
			want:   []string{"abc"},
		},
		{
			name:   "No Matches",
			output: "nothing here\n",
			want:   nil,
		},
		{
			name:   "Empty Output",
			output: "",
			want:   nil,
		},
	}

	extractor := verify.PrefixExtractor{Prefix: "val2:"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractor.Extract(tt.output))
		})
	}
}

func TestJSONExtractor(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		output string
		want   []string
	}{
		{
			name:   "Field Per Line",
			path:   "val2",
			output: `{"val1": 1, "val2": "abc"}` + "\n" + `{"val1": 1, "val2": "def"}`,
			want:   []string{"abc", "def"},
		},
		{
			name:   "Array Match",
			path:   "docs.#.val2",
			output: `{"docs": [{"val2": "abc"}, {"val2": "def"}]}`,
			want:   []string{"abc", "def"},
		},
		{
			name:   "Non JSON Lines Skipped",
			path:   "val2",
			output: "MongoDB shell version v3.4\n" + `{"val2": "abc"}`,
			want:   []string{"abc"},
		},
		{
			name:   "Missing Path",
			path:   "val2",
			output: `{"val1": 1}`,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := verify.JSONExtractor{Path: tt.path}
			assert.Equal(t, tt.want, extractor.Extract(tt.output))
		})
	}
}
