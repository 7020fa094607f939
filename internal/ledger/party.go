package ledger

import "strings"

// Counter-party sentinels used when no source field yields a name.
const (
	SentinelVendor   = "Manual Vendor"
	SentinelCustomer = "Manual Customer"
)

// ResolveParty resolves the counter-party name with fixed priority: linked
// party record, then the manually supplied name field, then a labelled token
// scraped from free-text notes, then a role-appropriate sentinel. It never
// fails.
func ResolveParty(category Category, linkedName, partyName, notes string) string {
	if name := strings.TrimSpace(linkedName); name != "" {
		return name
	}
	if name := strings.TrimSpace(partyName); name != "" {
		return name
	}
	if name := scrapePartyFromNotes(notes); name != "" {
		return name
	}
	if category == CategoryReceivable {
		return SentinelCustomer
	}
	return SentinelVendor
}

// scrapePartyFromNotes extracts a party name from a "Vendor:" or "Customer:"
// labelled token in free text. The value runs until a hyphen, a newline, or
// the end of the string; names may contain spaces, so no whitespace split.
//
// This is a best-effort workaround for legacy rows that never got a proper
// party foreign key; new records always carry party_id.
func scrapePartyFromNotes(notes string) string {
	for _, label := range []string{"Vendor:", "Customer:"} {
		idx := strings.Index(notes, label)
		if idx < 0 {
			continue
		}
		rest := notes[idx+len(label):]
		if cut := strings.IndexAny(rest, "-\n"); cut >= 0 {
			rest = rest[:cut]
		}
		if name := strings.TrimSpace(rest); name != "" {
			return name
		}
	}
	return ""
}
