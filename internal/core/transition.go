package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sendeeapp/sendee-backend/internal/apperrors"
	"github.com/sendeeapp/sendee-backend/internal/models"
)

const proofUploadTimeout = 30 * time.Second

// Engine applies forward-only status changes to a delivery and mirrors them
// onto the parcel row. The delivery write goes first; a failed parcel write
// afterwards is the one acknowledged inconsistency window and surfaces as a
// PartialSyncError for the reconciler to repair.
type Engine struct {
	parcels    ParcelStore
	deliveries DeliveryStore
	images     ImageUploader
	cache      Cache
}

func NewEngine(parcels ParcelStore, deliveries DeliveryStore, images ImageUploader, cache Cache) *Engine {
	return &Engine{parcels: parcels, deliveries: deliveries, images: images, cache: cache}
}

// Transition moves a delivery to newStatus and syncs the parcel. proofImage
// is an optional base64 payload; it is persisted in the background and its
// failure never reaches the caller, since losing a photo must not block the
// delivery itself.
func (e *Engine) Transition(ctx context.Context, deliveryID uint, newStatus models.DeliveryStatus, proofImage string) (*models.Delivery, *models.Parcel, error) {
	if !newStatus.Valid() {
		return nil, nil, &apperrors.ValidationError{
			Field:  "status",
			Reason: "use: 0 (pending), 1 (in_transit), 2 (delivered)",
		}
	}

	delivery, err := e.deliveries.Get(ctx, deliveryID)
	if err != nil {
		return nil, nil, err
	}

	if !models.CanTransition(delivery.Status, newStatus) {
		return nil, nil, &apperrors.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("cannot move delivery from %s to %s", delivery.Status.Label(), newStatus.Label()),
		}
	}

	parcelStatus, ok := models.ParcelStatusFor(newStatus)
	if !ok {
		return nil, nil, &apperrors.UnknownStatusError{Value: fmt.Sprint(int(newStatus))}
	}

	// Conditional on the status observed above: a concurrent caller that
	// moved the delivery in between wins, and this write becomes a no-op
	// instead of rewinding theirs.
	affected, err := e.deliveries.CompareAndSetStatus(ctx, deliveryID, delivery.Status, newStatus)
	if err != nil {
		return nil, nil, err
	}
	if affected == 0 {
		return nil, nil, &apperrors.StaleTransitionError{
			DeliveryID: deliveryID,
			Expected:   int(delivery.Status),
		}
	}

	if proofImage != "" {
		go e.attachProofImage(deliveryID, newStatus, proofImage)
	}

	if err := e.parcels.SetStatus(ctx, delivery.ParcelID, parcelStatus); err != nil {
		return nil, nil, &apperrors.PartialSyncError{
			DeliveryID: deliveryID,
			ParcelID:   delivery.ParcelID,
			Cause:      err,
		}
	}

	e.cache.InvalidateAll(ctx)

	delivery.Status = newStatus
	parcel, err := e.parcels.Get(ctx, delivery.ParcelID)
	if err != nil {
		return nil, nil, err
	}
	return delivery, parcel, nil
}

// attachProofImage uploads the proof photo and links it to the delivery.
// Runs detached from the request: the transition has already succeeded.
func (e *Engine) attachProofImage(deliveryID uint, status models.DeliveryStatus, image string) {
	ctx, cancel := context.WithTimeout(context.Background(), proofUploadTimeout)
	defer cancel()

	url, err := e.images.UploadBase64(ctx, image, "delivery-status")
	if err != nil {
		log.Printf("proof image upload failed for delivery %d: %v", deliveryID, err)
		return
	}
	if err := e.deliveries.SetProofImage(ctx, deliveryID, status, url); err != nil {
		log.Printf("failed to attach proof image to delivery %d: %v", deliveryID, err)
	}
}
