package fileindex

import "strings"

// CompleteRef returns completions for a line ending in an @prefix token.
// Each returned candidate is the full indexed path re-prefixed with @.
// A line without a trailing @token yields no completions.
func (idx *Index) CompleteRef(line string) []string {
	at := strings.LastIndexByte(line, '@')
	if at < 0 {
		return nil
	}
	prefix := line[at+1:]
	if strings.ContainsAny(prefix, " \t") {
		return nil
	}

	var out []string
	for _, path := range idx.Paths {
		if strings.HasPrefix(path, prefix) {
			out = append(out, "@"+path)
		}
	}
	return out
}
