package domain

import (
	"time"

	"github.com/google/uuid"
)

type (
	SubscriberId = uuid.UUID
	UserId       = uuid.UUID
)

type SubscriptionStatus string

const (
	StatusPendingConfirmation SubscriptionStatus = "pending_confirmation"
	StatusConfirmed           SubscriptionStatus = "confirmed"
)

// NewSubscriber is validated input; the only way to build one is through the parsers.
type NewSubscriber struct {
	Email SubscriberEmail
	Name  SubscriberName
}

type Subscriber struct {
	Id           SubscriberId
	Email        SubscriberEmail
	Name         SubscriberName
	Status       SubscriptionStatus
	SubscribedAt time.Time
}

// SubscriberRow is a confirmed subscriber as stored, before re-validation.
type SubscriberRow struct {
	Id    SubscriberId
	Email string
	Name  string
}

// Parse re-validates a stored row into domain values.
func (r SubscriberRow) Parse() (Subscriber, error) {
	email, err := ParseSubscriberEmail(r.Email)
	if err != nil {
		return Subscriber{}, err
	}
	name, err := ParseSubscriberName(r.Name)
	if err != nil {
		return Subscriber{}, err
	}
	return Subscriber{Id: r.Id, Email: email, Name: name, Status: StatusConfirmed}, nil
}
