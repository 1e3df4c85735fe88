package engine

import (
	"regexp"
	"strings"
)

// IsRelevant reports whether text is in-domain for an agent with the given
// keyword set. Case-insensitive substring match; any keyword suffices.
func IsRelevant(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)>`)

// ParseMentions extracts all addressed user IDs from message text, in
// order, duplicates preserved. Absent mentions yield an empty slice.
func ParseMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}

// mentionOutcome classifies what the mentions in a message mean for this
// agent.
type mentionOutcome int

const (
	mentionNone   mentionOutcome = iota // no mentions at all
	mentionMe                           // only we are addressed
	mentionOthers                       // another identity is addressed, possibly alongside us
)

// classifyMentions decides how the addressed identities in text relate to
// our own ID. Any non-self identity among the mentions suppresses this
// agent entirely, founder or not, even when we are co-mentioned: a message
// naming someone else has a designated owner.
func classifyMentions(text, selfID string) mentionOutcome {
	ids := ParseMentions(text)
	if len(ids) == 0 {
		return mentionNone
	}
	for _, id := range ids {
		if id != selfID {
			return mentionOthers
		}
	}
	return mentionMe
}
