package export

import (
	"regexp"
	"strings"
)

var (
	runsOfNewlines = regexp.MustCompile(`\n{3,}`)
	runsOfHSpace   = regexp.MustCompile(`[ \t]+`)
	headerMarker   = regexp.MustCompile(`^#{1,6}\s+`)
	bulletMarker   = regexp.MustCompile(`^[-*+]\s+`)
	numberMarker   = regexp.MustCompile(`^(\d+)[.)]\s+`)
	fenceLine      = regexp.MustCompile("^```")
)

// CompressContent rewrites a message body into a token-minimized form. The
// transformation is lossy on purpose: heading levels collapse to a single
// marker, bullet variants collapse to "-", and whitespace runs are folded.
// Fenced code blocks keep their line structure and language tag when
// preserveCode is set; otherwise they are folded like prose.
func CompressContent(s string, preserveCode bool) string {
	if s == "" {
		return ""
	}
	s = runsOfNewlines.ReplaceAllString(s, "\n\n")

	var out []string
	inFence := false
	for _, line := range strings.Split(s, "\n") {
		if fenceLine.MatchString(strings.TrimSpace(line)) && preserveCode {
			inFence = !inFence
			// keep the fence with its language tag, no surrounding space
			out = append(out, strings.TrimSpace(line))
			continue
		}
		if inFence {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue // blank lines inside code carry no information
			}
			out = append(out, trimmed)
			continue
		}
		out = append(out, compressProseLine(line))
	}

	joined := strings.Join(out, "\n")
	joined = runsOfNewlines.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}

func compressProseLine(line string) string {
	line = strings.TrimLeft(line, " \t")
	line = headerMarker.ReplaceAllString(line, "# ")
	line = bulletMarker.ReplaceAllString(line, "- ")
	line = numberMarker.ReplaceAllString(line, "$1. ")
	line = runsOfHSpace.ReplaceAllString(line, " ")
	return strings.TrimRight(line, " \t")
}
