package assets

import (
	"bufio"
	"embed"
	"strconv"
	"strings"
)

//go:embed sample_terms.tsv
var FS embed.FS

// SampleTerm is one row of the embedded fallback pool.
type SampleTerm struct {
	Category string
	Text     string
	Score    int
}

// SampleTerms parses the embedded pool. Lines are
// "category<TAB>text<TAB>score"; blanks and #-comments are skipped.
func SampleTerms() ([]SampleTerm, error) {
	f, err := FS.Open("sample_terms.tsv")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []SampleTerm
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			continue
		}
		score, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || score < 0 {
			continue
		}
		out = append(out, SampleTerm{
			Category: strings.ToLower(strings.TrimSpace(parts[0])),
			Text:     strings.TrimSpace(parts[1]),
			Score:    score,
		})
	}
	return out, sc.Err()
}
