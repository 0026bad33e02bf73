package flows

import (
	"context"

	"github.com/MrEthical07/authengine/domain"
)

// Event is a countable occurrence inside a flow. The host maps events to
// its metric ids.
type Event uint8

const (
	EventPasswordMismatch Event = iota + 1
	EventMFARequired
	EventTOTPSuccess
	EventTOTPFailure
	EventRecaptchaRequired
	EventRecaptchaFailure
	EventChallengeIssued
	EventChallengeFailure
	EventLockout
	EventAccountDisabled
	EventAccountEnabled
	EventAuthenticated
	EventNewDevice
)

// Observer receives flow events. A nil Observer discards them.
type Observer func(Event)

func (o Observer) emit(e Event) {
	if o != nil {
		o(e)
	}
}

// Notifier sends fire-and-forget email.
type Notifier interface {
	Notify(ctx context.Context, msg domain.EmailMessage)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.EmailMessage) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
