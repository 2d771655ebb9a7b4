package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numericRE    = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?$`)
	multiSpaceRE = regexp.MustCompile(`\s{2,}`)

	// "N CYCLE" markers emitted by the instrument between sweeps, either on
	// their own line or appended to the last data row of a cycle.
	cycleStandaloneRE = regexp.MustCompile(`(?i)^\s*(\d+)\s*CYCLE\s*$`)
	cycleTailRE       = regexp.MustCompile(`(?i)(\d+)\s*CYCLE\s*$`)
)

func isNumberToken(token string) bool {
	return numericRE.MatchString(strings.TrimSpace(token))
}

// splitTokens splits a data or header line on the first delimiter family it
// finds: tab, comma, semicolon, runs of two or more spaces, then any
// whitespace. Empty tokens are dropped.
func splitTokens(line string) []string {
	var parts []string
	switch {
	case strings.Contains(line, "\t"):
		parts = strings.Split(line, "\t")
	case strings.Contains(line, ","):
		parts = strings.Split(line, ",")
	case strings.Contains(line, ";"):
		parts = strings.Split(line, ";")
	case multiSpaceRE.MatchString(line):
		parts = multiSpaceRE.Split(line, -1)
	default:
		parts = strings.Fields(line)
	}

	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// detectDelimiter names the delimiter splitTokens would use, for metadata.
func detectDelimiter(line string) string {
	switch {
	case strings.Contains(line, "\t"):
		return "tab"
	case strings.Contains(line, ","):
		return "comma"
	case strings.Contains(line, ";"):
		return "semicolon"
	default:
		return "whitespace"
	}
}

// stripCycleMarkerTail removes a trailing "N CYCLE" marker from a line and
// returns the marker value, or -1 when no marker is present.
func stripCycleMarkerTail(line string) (string, int) {
	s := strings.TrimRight(line, " \t\r")
	m := cycleTailRE.FindStringSubmatchIndex(s)
	if m == nil {
		return s, -1
	}
	k, _ := strconv.Atoi(s[m[2]:m[3]])
	return strings.TrimRight(s[:m[0]], " \t"), k
}

func isStandaloneCycleMarker(line string) (int, bool) {
	m := cycleStandaloneRE.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	k, _ := strconv.Atoi(m[1])
	return k, true
}
