package locale

import (
	"strings"
)

const (
	DefaultTimezone = "Asia/Jakarta"
	DefaultRegion   = "ID"
)

var (
	// ZoneAbbreviations maps the Indonesian IANA zones to the names used on office wall clocks.
	ZoneAbbreviations = map[string]string{
		"Asia/Jakarta":   "WIB",
		"Asia/Pontianak": "WIB",
		"Asia/Makassar":  "WITA",
		"Asia/Jayapura":  "WIT",
	}
)

func ZoneAbbreviation(tz string) string {
	for zone, abbr := range ZoneAbbreviations {
		if strings.EqualFold(tz, zone) {
			return abbr
		}
	}
	return tz
}
