package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/domain/model"
)

// Sender is the transport a notification goes out through.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Notifier tells a giver who they are making a gift for.
type Notifier struct {
	sender Sender
	logger *zap.Logger
}

func NewNotifier(sender Sender, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{sender: sender, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, collection model.Collection, giver *model.Participant, assignment *model.Assignment) error {
	if n.sender == nil {
		return fmt.Errorf("notification sender is not configured")
	}
	if giver == nil || assignment == nil || assignment.Recipient() == nil {
		return fmt.Errorf("assignment %d is not resolvable", assignmentID(assignment))
	}

	text := Message(collection, giver, assignment)
	if err := n.sender.SendText(ctx, giver.TelegramChatID, text); err != nil {
		return fmt.Errorf("notify participant %d: %w", giver.ID, err)
	}

	n.logger.Debug("assignment notification sent",
		zap.Int64("collection_id", collection.ID),
		zap.Int64("assignment_id", assignment.ID),
		zap.Int64("participant_id", giver.ID),
	)
	return nil
}

// Message renders the notification text for one assignment.
func Message(collection model.Collection, giver *model.Participant, assignment *model.Assignment) string {
	var b strings.Builder

	name := strings.TrimSpace(collection.Name)
	if name == "" {
		name = fmt.Sprintf("collection #%d", collection.ID)
	}
	fmt.Fprintf(&b, "Hi %s! Assignments for %s have been sent out.\n", giver.Name, name)

	recipient := assignment.Recipient()
	byline := ""
	if recipient.Participant != nil {
		byline = recipient.Participant.Byline()
	}
	if byline == "" {
		byline = fmt.Sprintf("signup #%d", recipient.ID)
	}
	fmt.Fprintf(&b, "You are making a gift for %s.", byline)

	if assignment.OfferSignup == nil || assignment.OfferSignup.Participant != giver {
		b.WriteString("\nYou are stepping in as a pinch hitter. Thank you!")
	}
	return b.String()
}

func assignmentID(a *model.Assignment) int64 {
	if a == nil {
		return 0
	}
	return a.ID
}
