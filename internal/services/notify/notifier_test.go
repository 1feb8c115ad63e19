package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ivankudzin/giftexchange/internal/domain/model"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func pair() (model.Collection, *model.Participant, *model.Assignment) {
	collection := model.Collection{ID: 3, Name: "Yuletide 2026"}
	giver := &model.Participant{ID: 1, Name: "Olga", Login: "olga", TelegramChatID: 501}
	recipient := &model.Participant{ID: 2, Name: "Rita", Login: "ritak"}
	assignment := &model.Assignment{
		ID:            9,
		OfferSignup:   &model.Signup{ID: 11, Participant: giver},
		RequestSignup: &model.Signup{ID: 12, Participant: recipient},
	}
	return collection, giver, assignment
}

func TestNotifySendsToGiverChat(t *testing.T) {
	sender := &fakeSender{}
	collection, giver, assignment := pair()

	if err := NewNotifier(sender, nil).Notify(context.Background(), collection, giver, assignment); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.chatID != 501 {
		t.Fatalf("unexpected chat id %d", msg.chatID)
	}
	if !strings.Contains(msg.text, "Yuletide 2026") || !strings.Contains(msg.text, "Rita (ritak)") {
		t.Fatalf("unexpected text %q", msg.text)
	}
	if strings.Contains(msg.text, "pinch hitter") {
		t.Fatalf("regular giver must not be called a pinch hitter: %q", msg.text)
	}
}

func TestMessageMentionsPinchHitter(t *testing.T) {
	collection, _, assignment := pair()
	pinch := &model.Participant{ID: 4, Name: "Pat"}
	assignment.OfferSignup = nil
	assignment.PinchHitter = pinch

	text := Message(collection, pinch, assignment)
	if !strings.Contains(text, "pinch hitter") {
		t.Fatalf("expected pinch hitter note, got %q", text)
	}
}

func TestMessageFallsBackToPinchRequest(t *testing.T) {
	collection, giver, assignment := pair()
	assignment.RequestSignup = nil
	assignment.PinchRequestSignup = &model.Signup{ID: 20, Participant: &model.Participant{Name: "Sam"}}

	text := Message(collection, giver, assignment)
	if !strings.Contains(text, "gift for Sam.") {
		t.Fatalf("expected pinch request recipient, got %q", text)
	}
}

func TestNotifyWrapsSenderError(t *testing.T) {
	sendErr := errors.New("chat not found")
	collection, giver, assignment := pair()

	err := NewNotifier(&fakeSender{err: sendErr}, nil).Notify(context.Background(), collection, giver, assignment)
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected wrapped sender error, got %v", err)
	}
}

func TestNotifyRejectsUnresolvedAssignment(t *testing.T) {
	collection, giver, assignment := pair()
	assignment.RequestSignup = nil

	if err := NewNotifier(&fakeSender{}, nil).Notify(context.Background(), collection, giver, assignment); err == nil {
		t.Fatalf("expected error for assignment without recipient")
	}
}
