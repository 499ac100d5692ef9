package dispatch

import (
	"fmt"
	"html"

	"github.com/spec-kit/ticket-notify/internal/domain"
	"github.com/spec-kit/ticket-notify/internal/transport"
)

// renderNotification builds the outgoing message for one recipient. The
// update content arrives already truncated by the ledger; nothing here
// re-reads ticket state, so rendering stays a pure snapshot operation.
func renderNotification(ticketSubject string, update *domain.Update, recipient domain.Recipient) transport.Notification {
	authorRole := "the player"
	if update.IsStaffReply {
		authorRole = "staff"
	}

	subject := fmt.Sprintf("New reply on ticket %s: %s", update.TicketID, ticketSubject)

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Ticket %s has a new reply</h2>
			<p><strong>%s</strong> (%s) replied on %s:</p>
			<blockquote>%s</blockquote>
			<p>Open the ticket to view the full conversation and respond.</p>
		</body>
		</html>
	`,
		html.EscapeString(update.TicketID),
		html.EscapeString(update.AuthorHandle),
		authorRole,
		update.RepliedAt.Format("2006-01-02 15:04 MST"),
		html.EscapeString(update.Content),
	)

	textBody := fmt.Sprintf(`Ticket %s has a new reply.

%s (%s) replied on %s:

%s

Open the ticket to view the full conversation and respond.
`,
		update.TicketID,
		update.AuthorHandle,
		authorRole,
		update.RepliedAt.Format("2006-01-02 15:04 MST"),
		update.Content,
	)

	return transport.Notification{
		To:       recipient.Address,
		ToName:   recipient.Handle,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}
