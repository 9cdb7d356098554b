// Package paylink formats payment deep links for third-party payment apps.
// Pure string formatting over a settled amount and a destination handle;
// no payment API is ever called.
package paylink

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cheq-app/cheq-backend/internal/models"
	"github.com/cheq-app/cheq-backend/internal/money"
)

// Link is one rail's payment destination. URL is empty for rails that have
// no deep-link scheme (Zelle), where the handle itself is the destination.
type Link struct {
	Rail   string `json:"rail"`
	Handle string `json:"handle"`
	URL    string `json:"url,omitempty"`
}

// Links builds deep links for every handle the bill carries, for the given
// amount and note. Handles are used as-is minus a leading @/$ sigil.
func Links(handles models.PaymentHandles, amount money.Cents, note string) []Link {
	var links []Link

	if h := normalize(handles.Venmo); h != "" {
		q := url.Values{}
		q.Set("txn", "pay")
		q.Set("amount", amount.String())
		if note != "" {
			q.Set("note", note)
		}
		links = append(links, Link{
			Rail:   "venmo",
			Handle: h,
			URL:    fmt.Sprintf("https://venmo.com/%s?%s", url.PathEscape(h), q.Encode()),
		})
	}

	if h := normalize(handles.CashApp); h != "" {
		links = append(links, Link{
			Rail:   "cashapp",
			Handle: h,
			URL:    fmt.Sprintf("https://cash.app/$%s/%s", url.PathEscape(h), amount),
		})
	}

	if h := strings.TrimSpace(handles.Zelle); h != "" {
		// Zelle has no public deep-link scheme; surface the handle.
		links = append(links, Link{Rail: "zelle", Handle: h})
	}

	return links
}

func normalize(handle string) string {
	return strings.TrimLeft(strings.TrimSpace(handle), "@$")
}
