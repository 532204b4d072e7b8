package model

import "time"

type DeliveryStatus string

const (
	DeliveryStatusPending        DeliveryStatus = "pending"
	DeliveryStatusScheduled      DeliveryStatus = "scheduled"
	DeliveryStatusOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryStatusDelivered      DeliveryStatus = "delivered"
	DeliveryStatusMissed         DeliveryStatus = "missed"
	DeliveryStatusCancelled      DeliveryStatus = "cancelled"
	DeliveryStatusSkipped        DeliveryStatus = "skipped"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusScheduled, DeliveryStatusOutForDelivery,
		DeliveryStatusDelivered, DeliveryStatusMissed, DeliveryStatusCancelled, DeliveryStatusSkipped:
		return true
	}
	return false
}

// Skippable statuses are the ones a customer may still opt out of.
func (s DeliveryStatus) Skippable() bool {
	return s == DeliveryStatusScheduled || s == DeliveryStatusPending
}

// Delivery is one (subscription, calendar day) slot.
type Delivery struct {
	ID             string
	SubscriptionID string
	UserID         string
	PlanID         string
	DeliveryDate   time.Time // civil date
	Status         DeliveryStatus
	AssignedTo     *string
	Notes          string
	ProofImage     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DeliveryFilter narrows admin delivery listings. Zero fields are ignored.
type DeliveryFilter struct {
	Date       *time.Time
	Status     DeliveryStatus
	AssignedTo string
	UserID     string
	Limit      int
	Offset     int
}

// DeliveryPatch is the set of fields an admin may change on a delivery.
type DeliveryPatch struct {
	Status     *DeliveryStatus
	AssignedTo *string
	Notes      *string
	ProofImage *string
}
