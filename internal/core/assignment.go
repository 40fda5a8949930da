package core

import (
	"context"
	"log"

	"github.com/sendeeapp/sendee-backend/internal/apperrors"
	"github.com/sendeeapp/sendee-backend/internal/models"
)

// Coordinator runs the claim protocol. Many riders may race for the same
// parcel; the store's conditional writes decide the winner, never an
// in-process lock. Because the parcel and delivery rows are written in two
// separate statements, a lost second write is compensated by reverting the
// first.
type Coordinator struct {
	parcels    ParcelStore
	deliveries DeliveryStore
	cache      Cache
}

func NewCoordinator(parcels ParcelStore, deliveries DeliveryStore, cache Cache) *Coordinator {
	return &Coordinator{parcels: parcels, deliveries: deliveries, cache: cache}
}

// Claim atomically takes ownership of a waiting parcel for a rider.
//
// Preconditions, each its own failure mode:
//  1. the rider holds no pending or in-transit delivery,
//  2. the parcel exists and is WAITING_FOR_RIDER,
//  3. no delivery row for the parcel carries a rider yet.
//
// The checks are advisory; ownership is decided by the conditional writes
// below them.
func (co *Coordinator) Claim(ctx context.Context, parcelID, riderID uint) (*models.Delivery, error) {
	existing, err := co.deliveries.CountUnfinishedByRider(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, &apperrors.RiderBusyError{RiderID: riderID, ExistingJobs: int(existing)}
	}

	parcel, err := co.parcels.Get(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	if parcel.Status != models.ParcelWaitingForRider {
		return nil, &apperrors.ParcelNotClaimableError{ParcelID: parcelID, Status: int(parcel.Status)}
	}

	claimed, err := co.deliveries.ClaimedByAnyRider(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, &apperrors.AlreadyClaimedError{ParcelID: parcelID}
	}

	// First conditional write: parcel 1 -> 2. Zero rows means another
	// claimant transitioned it between the check and the write.
	affected, err := co.parcels.CompareAndSetStatus(ctx, parcelID,
		models.ParcelWaitingForRider, models.ParcelRiderAccepted)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &apperrors.AlreadyClaimedError{ParcelID: parcelID}
	}

	// Second conditional write: take the delivery's rider slot while it is
	// still empty. Losing here after winning the parcel is the narrow race
	// window the compensation exists for.
	affected, assignErr := co.deliveries.AssignRider(ctx, parcelID, riderID)
	if assignErr != nil || affected == 0 {
		if _, revertErr := co.parcels.CompareAndSetStatus(ctx, parcelID,
			models.ParcelRiderAccepted, models.ParcelWaitingForRider); revertErr != nil {
			log.Printf("claim compensation failed for parcel %d: %v", parcelID, revertErr)
			return nil, &apperrors.PartialSyncError{ParcelID: parcelID, Cause: revertErr}
		}
		if assignErr != nil {
			return nil, assignErr
		}
		return nil, &apperrors.AlreadyClaimedError{ParcelID: parcelID}
	}

	// The claim is committed at this point. Invalidate before the read-back
	// so a failed read cannot leave the stale feed serving until TTL.
	co.cache.InvalidateAll(ctx)

	delivery, err := co.deliveries.LatestByParcel(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	return delivery, nil
}
