package domain

import "time"

// DefaultContentTruncationLength bounds how much reply text the ledger
// keeps. The full reply lives in the upstream ticket record; the ledger
// entry only has to drive notification text.
const DefaultContentTruncationLength = 1000

// Update is one reply event recorded against a ticket. Updates for a
// ticket are totally ordered by RepliedAt, ties broken by Seq (insertion
// order). ReadBy only grows; a handle is never removed.
type Update struct {
	ID           string
	TicketID     string
	Seq          int64
	Content      string
	AuthorHandle string
	IsStaffReply bool
	RepliedAt    time.Time
	ReadBy       []string
}

// HasReader reports whether the handle already appears in the read-by set.
func (u *Update) HasReader(handle string) bool {
	for _, h := range u.ReadBy {
		if h == handle {
			return true
		}
	}
	return false
}

// TruncateContent bounds content to limit runes. Byte-based truncation
// could split a UTF-8 sequence mid-rune.
func TruncateContent(content string, limit int) string {
	if limit <= 0 {
		limit = DefaultContentTruncationLength
	}
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}
