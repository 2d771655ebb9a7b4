package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

// Canonical column names shared across formats. Instrument exports vary
// wildly in header spelling and language; headers are normalized into this
// small vocabulary so downstream consumers see stable field names.
const (
	ColTime         = "time"
	ColVoltage      = "voltage"
	ColCurrent      = "current"
	ColCurrentDens  = "current_density"
	ColFreq         = "freq"
	ColZre          = "z_re"
	ColZim          = "z_im"
	ColStep         = "step"
	ColCycle        = "cycle"
	ColChargeCap    = "q_chg"
	ColDischargeCap = "q_dis"
)

var unitSuffixRE = regexp.MustCompile(`[\(\[（【]\s*([^\)\]）】]*)\s*[\)\]）】]`)

// normalizeHeaderToken strips a trailing unit annotation like "(mA/cm2)" and
// lowercases the remaining name, returning (name, unit).
func normalizeHeaderToken(token string) (string, string) {
	token = strings.TrimSpace(token)
	unit := ""
	if m := unitSuffixRE.FindStringSubmatchIndex(token); m != nil {
		unit = strings.TrimSpace(token[m[2]:m[3]])
		token = token[:m[0]] + token[m[1]:]
	}
	name := strings.ToLower(token)
	name = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '_', '-', '/', '\\', '*', '·', '"':
			return -1
		}
		return r
	}, name)
	return name, unit
}

func isDensityUnit(unit string) bool {
	u := strings.ToLower(strings.ReplaceAll(unit, "²", "2"))
	return strings.Contains(u, "/cm2") || strings.Contains(u, "/cm^2") ||
		strings.Contains(u, "/mm2") || strings.Contains(u, "/m2")
}

// mapHeaderColumns maps raw header tokens to canonical column names.
// Unrecognized columns keep a positional name so no data is dropped.
func mapHeaderColumns(tokens []string) ([]string, map[string]string) {
	columns := make([]string, len(tokens))
	units := make(map[string]string)
	seen := make(map[string]bool)

	for i, token := range tokens {
		name, unit := normalizeHeaderToken(token)
		lowerRaw := strings.ToLower(token)

		mapped := ""
		switch {
		case strings.Contains(lowerRaw, "z''") || strings.Contains(name, "zim"):
			mapped = ColZim
		case strings.Contains(lowerRaw, "z'") || strings.Contains(name, "zre"):
			mapped = ColZre
		case strings.Contains(name, "freq") || strings.Contains(name, "频率"):
			mapped = ColFreq
		case strings.Contains(name, "time") || strings.Contains(name, "时间") || name == "t":
			mapped = ColTime
		case strings.Contains(name, "voltage") || strings.Contains(name, "potential") || strings.Contains(name, "电压") || name == "e":
			mapped = ColVoltage
		case strings.Contains(name, "step") || strings.Contains(name, "工步"):
			mapped = ColStep
		case strings.Contains(name, "cycle"):
			mapped = ColCycle
		case strings.Contains(name, "chargecapacity") || name == "qchg":
			mapped = ColChargeCap
		case strings.Contains(name, "dischargecapacity") || name == "qdis":
			mapped = ColDischargeCap
		case strings.Contains(name, "currentdensity") || strings.Contains(name, "电流密度") || name == "j":
			mapped = ColCurrentDens
		case strings.Contains(name, "current") || strings.Contains(name, "电流") || name == "i":
			if isDensityUnit(unit) {
				mapped = ColCurrentDens
			} else {
				mapped = ColCurrent
			}
		}

		if mapped == "" || seen[mapped] {
			columns[i] = positionalName(i)
			continue
		}
		seen[mapped] = true
		columns[i] = mapped
		if unit != "" {
			units[mapped] = unit
		}
	}
	return columns, units
}

func positionalName(i int) string {
	return "col" + strconv.Itoa(i+1)
}
