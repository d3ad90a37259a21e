package normalization

import (
	"strings"
)

// Title trims a user-supplied topic and collapses internal whitespace,
// preserving case for display.
func Title(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// TopicKey is the lookup key for a topic: Title, lowercased. Topics that
// differ only by case or spacing share a key.
func TopicKey(input string) string {
	return strings.ToLower(Title(input))
}
