// Package merge builds per-recipient variable contexts and substitutes
// {{var}} tokens into template subject and body text.
package merge

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ayodele-o/outreach/internal/store"
)

// Context is the key/value map used to fill template placeholders for one
// recipient.
type Context map[string]string

// Links carries the configured link bases merged into every message.
type Links struct {
	OfferLink          string
	UnsubscribeBaseURL string
}

// BuildContext assembles the merge variables for one recipient and its
// resolved source record.
func BuildContext(r *store.Recipient, src store.SourceRecord, links Links) Context {
	firstName := "there"
	if fields := strings.Fields(r.Name); len(fields) > 0 {
		firstName = fields[0]
	}

	return Context{
		"first_name":       firstName,
		"name":             r.Name,
		"email":            r.Email,
		"phone":            r.Phone,
		"city":             r.City,
		"country":          r.CountryCode,
		"company":          src.Name,
		"website":          src.Website,
		"address":          src.Address,
		"offer_link":       links.OfferLink,
		"unsubscribe_link": fmt.Sprintf("%s?rid=%s", links.UnsubscribeBaseURL, url.QueryEscape(r.ID)),
	}
}

// leftover matches any {{...}} token that survived substitution.
var leftover = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// Render substitutes every known {{key}} occurrence with its value, then
// strips any remaining token so misspelled or unknown variables never leak
// into outgoing content. Token match is exact; whitespace inside the braces
// is not tolerated.
func Render(text string, vars Context) string {
	for key, value := range vars {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return leftover.ReplaceAllString(text, "")
}
