package namematch

import "strings"

// acronymExpansions maps short institution names the archive source uses to the
// full names the primary feed uses. Keys and values are in normalized form.
var acronymExpansions = map[string]string{
	"byu":      "brigham young",
	"lsu":      "louisiana state",
	"odu":      "old dominion",
	"ole miss": "mississippi",
	"smu":      "southern methodist",
	"tcu":      "texas christian",
	"uab":      "alabama birmingham",
	"ucf":      "central florida",
	"uconn":    "connecticut",
	"umass":    "massachusetts",
	"unc":      "north carolina",
	"uncw":     "north carolina wilmington",
	"unlv":     "nevada las vegas",
	"usc":      "southern california",
	"utep":     "texas el paso",
	"vcu":      "virginia commonwealth",
	"vmi":      "virginia military",
}

// Normalize canonicalizes a free-text team name so that two spellings of the
// same team compare well: lowercase, a trailing "St." token rewritten to
// "State", punctuation stripped, whitespace collapsed, and known short names
// expanded. The "St." rewrite must happen before punctuation stripping or the
// token boundary is lost.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	if strings.HasSuffix(s, " st.") {
		s = strings.TrimSuffix(s, " st.") + " state"
	} else if strings.HasSuffix(s, " st") {
		s = strings.TrimSuffix(s, " st") + " state"
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}

	s = strings.Join(strings.Fields(b.String()), " ")

	if full, ok := acronymExpansions[s]; ok {
		return full
	}

	return s
}
