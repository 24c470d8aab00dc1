package policy

import "strings"

// genericPhrases mark a model reply as a brush-off rather than an answer.
var genericPhrases = []string{
	"i'm here to help",
	"could you please ask",
	"please ask about",
	"how can i assist",
	"what would you like",
	"is there anything",
}

// isGeneric reports whether a model reply is too vague or repetitive to
// hand to a caller.
func isGeneric(reply string) bool {
	lower := strings.ToLower(reply)
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	if len(reply) < 15 {
		return true
	}

	words := strings.Fields(reply)
	if len(words) > 3 && uniqueRatio(words) < 0.6 {
		return true
	}
	return false
}

// gateReply trims a raw model completion down to a usable answer, or
// returns false if nothing usable survives. Only the first line is kept;
// repetitive or out-of-band replies are rejected outright.
func gateReply(raw string) (string, bool) {
	reply := strings.TrimSpace(raw)
	if i := strings.IndexByte(reply, '\n'); i >= 0 {
		reply = strings.TrimSpace(reply[:i])
	}

	words := strings.Fields(reply)
	if len(words) > 5 && uniqueRatio(words) < 0.6 {
		return "", false
	}

	if reply == "" || len(reply) < 10 || isGeneric(reply) {
		return "", false
	}

	if len(reply) > 10 && len(reply) < 100 {
		return reply, true
	}
	return "", false
}

func uniqueRatio(words []string) float64 {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}
