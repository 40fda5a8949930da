package models

import (
	"strconv"
	"strings"

	"github.com/sendeeapp/sendee-backend/internal/apperrors"
)

// ParcelStatus is the top-level lifecycle of a parcel.
type ParcelStatus int

const (
	ParcelWaitingForRider ParcelStatus = 1
	ParcelRiderAccepted   ParcelStatus = 2
	ParcelRiderPickedUp   ParcelStatus = 3
	ParcelDelivered       ParcelStatus = 4
)

// DeliveryStatus is the finer-grained status of a delivery job.
type DeliveryStatus int

const (
	DeliveryPending   DeliveryStatus = 0
	DeliveryInTransit DeliveryStatus = 1
	DeliveryDelivered DeliveryStatus = 2
)

// ParcelStatusFor returns the parcel status mirroring a delivery status.
// The two columns are denormalized and must always stay in this correspondence.
func ParcelStatusFor(s DeliveryStatus) (ParcelStatus, bool) {
	switch s {
	case DeliveryPending:
		return ParcelRiderAccepted, true
	case DeliveryInTransit:
		return ParcelRiderPickedUp, true
	case DeliveryDelivered:
		return ParcelDelivered, true
	}
	return 0, false
}

// DeliveryStatusFor is the reverse direction of the mapping. Parcels in
// WAITING_FOR_RIDER have no delivery counterpart yet.
func DeliveryStatusFor(s ParcelStatus) (DeliveryStatus, bool) {
	switch s {
	case ParcelRiderAccepted:
		return DeliveryPending, true
	case ParcelRiderPickedUp:
		return DeliveryInTransit, true
	case ParcelDelivered:
		return DeliveryDelivered, true
	}
	return 0, false
}

// CanTransition reports whether a delivery may move from one status to
// another. Only forward single-step moves are allowed.
func CanTransition(from, to DeliveryStatus) bool {
	switch {
	case from == DeliveryPending && to == DeliveryInTransit:
		return true
	case from == DeliveryInTransit && to == DeliveryDelivered:
		return true
	}
	return false
}

func (s DeliveryStatus) Valid() bool {
	return s >= DeliveryPending && s <= DeliveryDelivered
}

func (s ParcelStatus) Valid() bool {
	return s >= ParcelWaitingForRider && s <= ParcelDelivered
}

func (s DeliveryStatus) Label() string {
	switch s {
	case DeliveryPending:
		return "pending"
	case DeliveryInTransit:
		return "in_transit"
	case DeliveryDelivered:
		return "delivered"
	}
	return "unknown"
}

func (s ParcelStatus) Label() string {
	switch s {
	case ParcelWaitingForRider:
		return "waitingForRider"
	case ParcelRiderAccepted:
		return "riderAccepted"
	case ParcelRiderPickedUp:
		return "riderPickedUp"
	case ParcelDelivered:
		return "delivered"
	}
	return "unknown"
}

// parcelStatusVocabulary maps the legacy textual statuses still sent by
// older clients onto numeric values.
var parcelStatusVocabulary = map[string]ParcelStatus{
	"waitingforrider":   ParcelWaitingForRider,
	"waiting_for_rider": ParcelWaitingForRider,
	"rideraccepted":     ParcelRiderAccepted,
	"rider_accepted":    ParcelRiderAccepted,
	"riderpickedup":     ParcelRiderPickedUp,
	"rider_picked_up":   ParcelRiderPickedUp,
	"delivered":         ParcelDelivered,
}

// ParseParcelStatus accepts either a numeric status ("1".."4") or a textual
// status from the legacy vocabulary, case-insensitively.
func ParseParcelStatus(value string) (ParcelStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return 0, &apperrors.UnknownStatusError{Value: value}
	}

	if n, err := strconv.Atoi(normalized); err == nil {
		status := ParcelStatus(n)
		if !status.Valid() {
			return 0, &apperrors.UnknownStatusError{Value: value}
		}
		return status, nil
	}

	status, ok := parcelStatusVocabulary[normalized]
	if !ok {
		return 0, &apperrors.UnknownStatusError{Value: value}
	}
	return status, nil
}
