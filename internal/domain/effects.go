package domain

import (
	"fmt"
	"time"
)

// TransitionRecord captures one applied transition: who moved which spa from
// where to where, and why. Ephemeral; only its derived effects are persisted.
type TransitionRecord struct {
	SpaID   string
	Event   Event
	From    Status
	To      Status
	ActorID string
	Reason  string
	At      time.Time
}

// NotificationEffect instructs the caller to notify the spa's primary contact
// about a status change. Dispatch is best-effort and never blocks a transition.
type NotificationEffect struct {
	SpaID     string
	Recipient string
	Subject   string
	Body      string
	At        time.Time
}

// AuditEffect captures a status change for the audit trail.
type AuditEffect struct {
	SpaID   string
	Event   Event
	From    Status
	To      Status
	ActorID string
	Reason  string
	At      time.Time
}

// TransitionEffects derives the notification/audit pair every applied
// transition must emit. Pure; the caller dispatches both through its
// EffectSink after the status write commits.
func TransitionEffects(spa Spa, rec TransitionRecord) (NotificationEffect, AuditEffect) {
	note := NotificationEffect{
		SpaID:     spa.ID,
		Recipient: spa.OwnerEmail,
		Subject:   fmt.Sprintf("Your account status changed to %s", rec.To),
		Body:      notificationBody(rec),
		At:        rec.At,
	}
	audit := AuditEffect{
		SpaID:   spa.ID,
		Event:   rec.Event,
		From:    rec.From,
		To:      rec.To,
		ActorID: rec.ActorID,
		Reason:  rec.Reason,
		At:      rec.At,
	}
	return note, audit
}

func notificationBody(rec TransitionRecord) string {
	if rec.Reason != "" {
		return fmt.Sprintf("Status changed from %s to %s. Reason: %s", rec.From, rec.To, rec.Reason)
	}
	return fmt.Sprintf("Status changed from %s to %s.", rec.From, rec.To)
}
