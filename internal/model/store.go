package model

import "strings"

// NumberWidth is the canonical zero-padded width of a store number.
const NumberWidth = 4

// TicketPrefix is prepended to helpdesk ticket references when missing.
const TicketPrefix = "HD-"

// Store represents one monitored site.
type Store struct {
	Number string `json:"number"`
	IP     string `json:"ip"`
	ISP    string `json:"isp"`
	Ticket string `json:"helpdesk_ticket"`
}

// Normalize returns a copy with the number in canonical form and the
// ticket prefixed.
func (s Store) Normalize() Store {
	s.Number = NormalizeNumber(s.Number)
	s.Ticket = NormalizeTicket(s.Ticket)
	return s
}

// NormalizeNumber zero-pads a store number to NumberWidth digits. Numbers
// already at or beyond the width are returned trimmed but otherwise as-is.
func NormalizeNumber(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}
	for len(number) < NumberWidth {
		number = "0" + number
	}
	return number
}

// NormalizeTicket ensures a non-empty ticket carries the TicketPrefix.
func NormalizeTicket(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, TicketPrefix) {
		return raw
	}
	return TicketPrefix + raw
}

// HelpdeskURL builds a browsable URL for a normalized ticket. Empty tickets
// yield an empty URL.
func HelpdeskURL(prefix, ticket string) string {
	if ticket == "" {
		return ""
	}
	return prefix + ticket
}
