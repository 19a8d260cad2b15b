package broadcast

import (
	"strconv"
	"strings"

	"github.com/wakabadc/clinic-line-admin/internal/profiles"
)

// Fallbacks used when a profile is missing the field a token references.
const (
	FallbackName   = "お客様"
	FallbackTicket = "未設定"
)

// Placeholder tokens recognized in message templates. Nothing else is
// substituted or escaped.
const (
	tokenName       = "{name}"
	tokenStampCount = "{stamp_count}"
	tokenTicket     = "{ticket_number}"
)

// Render substitutes every occurrence of the three placeholder tokens with
// the recipient's field values, falling back per token when absent.
func Render(template string, p *profiles.Profile) string {
	out := strings.ReplaceAll(template, tokenName, firstPresent(p.DisplayName, FallbackName))
	out = strings.ReplaceAll(out, tokenStampCount, strconv.Itoa(p.StampCount))
	out = strings.ReplaceAll(out, tokenTicket, firstPresent(p.TicketNumber, FallbackTicket))
	return out
}

func firstPresent(v *string, fallback string) string {
	if v != nil && *v != "" {
		return *v
	}
	return fallback
}
