package boilerplate

import (
	"strings"
	"testing"
)

func TestFind(t *testing.T) {
	tests := []struct {
		name   string
		groups [][]string
		want   []string
		absent []string
	}{
		{
			name: "half of four groups",
			groups: [][]string{
				{"ACME Quarterly", "intro"},
				{"ACME Quarterly", "more"},
				{"other header", "x"},
				{"different", "y"},
			},
			want: []string{"ACME Quarterly"},
		},
		{
			name: "one of three groups",
			groups: [][]string{
				{"ACME Quarterly"},
				{"something"},
				{"else here"},
			},
			absent: []string{"ACME Quarterly"},
		},
		{
			name:   "single group",
			groups: [][]string{{"ACME Quarterly", "ACME Quarterly"}},
			absent: []string{"ACME Quarterly"},
		},
		{
			name: "short lines ignored",
			groups: [][]string{
				{"abc", "  Report 2024  "},
				{"abc", "Report 2024"},
			},
			want:   []string{"Report 2024"},
			absent: []string{"abc"},
		},
		{
			name: "repeats within one group count once",
			groups: [][]string{
				{"Running Head", "Running Head"},
				{"body"},
				{"body two"},
				{"body three"},
			},
			absent: []string{"Running Head"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Find(tt.groups)
			for _, w := range tt.want {
				if !got.Has(w) {
					t.Errorf("Find() missing %q, got %v", w, got)
				}
			}
			for _, a := range tt.absent {
				if got.Has(a) {
					t.Errorf("Find() unexpectedly contains %q", a)
				}
			}
		})
	}
}

func TestDetectSamplesEdges(t *testing.T) {
	page := func(body string) string {
		return strings.Join([]string{"Annual Report", body + " opening", "middle text", body + " one", body + " two", "Confidential Draft"}, "\n")
	}
	pages := []string{page("alpha"), page("beta"), page("gamma"), "tiny\npage"}

	sets := Detect(pages)
	if !sets.Headers.Has("Annual Report") {
		t.Errorf("Headers = %v, want Annual Report", sets.Headers)
	}
	if !sets.Footers.Has("Confidential Draft") {
		t.Errorf("Footers = %v, want Confidential Draft", sets.Footers)
	}
	if sets.Headers.Has("Confidential Draft") {
		t.Errorf("footer line detected as header")
	}
	if sets.Footers.Has("middle text") {
		t.Errorf("middle line detected as footer")
	}
}

func TestStrip(t *testing.T) {
	sets := Sets{
		Headers: Set{"Annual Report": {}},
		Footers: Set{"Confidential Draft": {}},
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "header and footer removed",
			input: "Annual Report\nReal content line\nConfidential Draft",
			want:  "Real content line",
		},
		{
			name:  "header only at top",
			input: "Real content line\nAnnual Report",
			want:  "Real content line\nAnnual Report",
		},
		{
			name:  "copyright and page labels",
			input: "© 2024 ACME\nBody stays here\nCopyright ACME Corp\nAll Rights Reserved.\nPage 3\nLast page",
			want:  "Body stays here",
		},
		{
			name:  "short lines dropped",
			input: "ok\nkept line\n\n42",
			want:  "kept line",
		},
		{
			name:  "empty input unchanged",
			input: "   ",
			want:  "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Strip(tt.input, sets)
			if got != tt.want {
				t.Errorf("Strip(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
