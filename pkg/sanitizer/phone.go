package sanitizer

import (
	"sicakap/pkg/locale"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone returns phone in E.164. Local numbers ("0812...") are read as Indonesian.
// Unparseable input is returned trimmed so validation can reject it.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	parsedNumber, err := phonenumbers.Parse(phone, locale.DefaultRegion)
	if err != nil {
		return phone
	}
	return phonenumbers.Format(parsedNumber, phonenumbers.E164)
}
