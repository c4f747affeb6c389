package court

import (
	"strings"
	"unicode"
)

// Ruling is the judge's decision on the evidence.
type Ruling int

const (
	RulingUnrecognized Ruling = iota
	RulingContinue
	RulingSufficient
)

func (r Ruling) String() string {
	switch r {
	case RulingContinue:
		return "continue"
	case RulingSufficient:
		return "sufficient"
	default:
		return "unrecognized"
	}
}

const rulingPrefix = "RULING:"

// ParseRuling reads the ruling from the first non-empty line of the judge's
// output. Markdown emphasis around the line is ignored and the match is case
// insensitive. The decision is the first word after the prefix; whatever
// follows it on that line starts the analysis, and the remaining lines
// complete it.
func ParseRuling(out string) (Ruling, string) {
	out = strings.TrimSpace(out)
	head, rest, _ := strings.Cut(out, "\n")
	head = strings.Trim(strings.TrimSpace(head), "*_#` ")

	if len(head) < len(rulingPrefix) || !strings.EqualFold(head[:len(rulingPrefix)], rulingPrefix) {
		return RulingUnrecognized, ""
	}
	tail := strings.TrimLeft(head[len(rulingPrefix):], "*_ ")
	end := strings.IndexFunc(tail, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		end = len(tail)
	}

	var ruling Ruling
	switch strings.ToUpper(tail[:end]) {
	case "SUFFICIENT":
		ruling = RulingSufficient
	case "CONTINUE":
		ruling = RulingContinue
	default:
		return RulingUnrecognized, ""
	}

	inline := strings.TrimSpace(strings.TrimLeft(tail[end:], "*_.:;,-\u2013\u2014 "))
	rest = strings.TrimSpace(rest)
	switch {
	case inline == "":
		return ruling, rest
	case rest == "":
		return ruling, inline
	default:
		return ruling, inline + "\n" + rest
	}
}
