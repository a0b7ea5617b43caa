package newsroom

import (
	"encoding/json"
	"strings"
)

// extractJSON returns the first balanced JSON object embedded in s. It is
// string-aware so braces inside quoted values do not unbalance the scan.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// parseSearchHits attempts to read a tool output as a list of search results.
// Non-JSON or unexpectedly shaped payloads return nil; the caller keeps the
// raw output either way.
func parseSearchHits(output string) []SearchHit {
	if !strings.Contains(output, "url") {
		return nil
	}

	var entries []struct {
		Title string `json:"title"`
		Name  string `json:"name"`
		URL   string `json:"url"`
		Link  string `json:"link"`
	}
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		return nil
	}

	hits := make([]SearchHit, 0, len(entries))
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.Name
		}
		if title == "" {
			title = "Unknown"
		}
		url := e.URL
		if url == "" {
			url = e.Link
		}
		hits = append(hits, SearchHit{Title: title, URL: url})
	}
	return hits
}

// truncate caps s at n runes. Used for progress previews only; activity
// events always carry full text.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
