package topology

import "strings"

const (
	wordWildcard  = "*"
	multiWildcard = "#"
	separator     = "."
)

// MatchPattern reports whether a topic binding pattern matches a routing key.
//
// Keys and patterns are dot-separated words. "*" matches exactly one word and
// "#" matches zero or more words. A pattern without wildcards matches only itself.
func MatchPattern(pattern, key string) bool {
	if !strings.Contains(pattern, wordWildcard) && !strings.Contains(pattern, multiWildcard) {
		return pattern == key
	}

	return matchWords(strings.Split(pattern, separator), strings.Split(key, separator))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case multiWildcard:
			return matchMulti(pattern, key)
		case wordWildcard:
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}

		pattern, key = pattern[1:], key[1:]
	}

	return len(key) == 0
}

// matchMulti handles a pattern starting with "#". The run of wildcards that follows is
// collapsed: every "*" in it costs one mandatory word, the "#" absorbs any number more.
func matchMulti(pattern, key []string) bool {
	mandatory := 0

	for len(pattern) > 0 && (pattern[0] == multiWildcard || pattern[0] == wordWildcard) {
		if pattern[0] == wordWildcard {
			mandatory++
		}

		pattern = pattern[1:]
	}

	if len(key) < mandatory {
		return false
	}

	if len(pattern) == 0 {
		return true
	}

	anchor, rest := pattern[0], pattern[1:]

	for i := mandatory; i < len(key); i++ {
		if key[i] == anchor && matchWords(rest, key[i+1:]) {
			return true
		}
	}

	return false
}
