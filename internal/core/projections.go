package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sendeeapp/sendee-backend/internal/models"
	"github.com/sendeeapp/sendee-backend/pkg/utils"
)

// Cache keys for the three read shapes. Every mutating path invalidates all
// of them eagerly; the TTL only bounds staleness when invalidation is lost.
const (
	availableParcelsKey = "available_parcels"
	riderJobsKeyFmt     = "rider_jobs_%d_%s"
	userParcelsKeyFmt   = "user_parcels_%d"

	projectionTTL = time.Minute
)

// Coordinates is a captured pickup or dropoff point.
type Coordinates struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AddressText string  `json:"address_text"`
}

// Contact is the counterpart info a rider or user sees on a job.
type Contact struct {
	UserID       uint         `json:"user_id"`
	Username     string       `json:"username"`
	Phone        string       `json:"phone"`
	ProfileImage string       `json:"profile_image,omitempty"`
	Pickup       *Coordinates `json:"pickup_coordinates,omitempty"`
	Dropoff      *Coordinates `json:"delivery_coordinates,omitempty"`
}

// AvailableParcelView is one entry of the available-parcels feed.
type AvailableParcelView struct {
	ParcelID    uint                `json:"parcel_id"`
	Description string              `json:"description"`
	ItemImage   string              `json:"item_image,omitempty"`
	Status      models.ParcelStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Sender      Contact             `json:"sender"`
	Receiver    Contact             `json:"receiver"`
	DistanceKm  *float64            `json:"distance_km,omitempty"`
	EtaMinutes  *int                `json:"eta_minutes,omitempty"`
}

// RiderJobView is one entry of a rider's active jobs or history.
type RiderJobView struct {
	DeliveryID    uint                  `json:"delivery_id"`
	ParcelID      uint                  `json:"parcel_id"`
	RiderID       *uint                 `json:"rider_id"`
	Status        models.DeliveryStatus `json:"status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	Pickup        Coordinates           `json:"pickup"`
	Dropoff       Coordinates           `json:"dropoff"`
	PickupImage   string                `json:"pickup_image,omitempty"`
	DeliveryImage string                `json:"delivery_image,omitempty"`
	Description   string                `json:"description"`
	ItemImage     string                `json:"item_image,omitempty"`
	ParcelStatus  models.ParcelStatus   `json:"parcel_status"`
	Sender        Contact               `json:"sender"`
	Receiver      Contact               `json:"receiver"`
}

// UserParcelView is one entry of a user's parcel list, annotated with the
// latest delivery row for the parcel.
type UserParcelView struct {
	ParcelID          uint                   `json:"parcel_id"`
	SenderID          uint                   `json:"sender_id"`
	ReceiverID        uint                   `json:"receiver_id"`
	Description       string                 `json:"description"`
	Status            models.ParcelStatus    `json:"status"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
	RiderID           *uint                  `json:"rider_id"`
	DeliveryStatus    *models.DeliveryStatus `json:"delivery_status"`
	DeliveryCreatedAt *time.Time             `json:"delivery_created_at"`
	DeliveryUpdatedAt *time.Time             `json:"delivery_updated_at"`
	Sender            UserWithAddresses      `json:"sender"`
	Receiver          UserWithAddresses      `json:"receiver"`
}

// UserWithAddresses carries a counterpart's contact plus their saved
// addresses sorted most-recent-first, since without an explicit default
// flag "the" address of a user is ambiguous.
type UserWithAddresses struct {
	UserID       uint                 `json:"user_id"`
	Username     string               `json:"username"`
	Phone        string               `json:"phone"`
	ProfileImage string               `json:"profile_image,omitempty"`
	Addresses    []models.UserAddress `json:"addresses"`
}

// Projections assembles the denormalized read views. All three shapes go
// through the cache; a cache outage falls through to the store.
type Projections struct {
	store ProjectionStore
	cache Cache
}

func NewProjections(store ProjectionStore, cache Cache) *Projections {
	return &Projections{store: store, cache: cache}
}

// AvailableParcels lists parcels waiting for a rider, each with the
// coordinates captured on its delivery row. When the rider's position is
// known, entries are annotated with distance and ETA to the pickup point;
// the annotation happens after the cache so the shared entry stays
// position-free.
func (p *Projections) AvailableParcels(ctx context.Context, riderLat, riderLng *float64) ([]AvailableParcelView, error) {
	var views []AvailableParcelView
	if !p.cache.GetJSON(ctx, availableParcelsKey, &views) {
		parcels, err := p.store.WaitingParcels(ctx)
		if err != nil {
			return nil, err
		}

		parcelIDs := make([]uint, 0, len(parcels))
		for _, parcel := range parcels {
			parcelIDs = append(parcelIDs, parcel.ID)
		}
		deliveries, err := p.store.DeliveriesByParcelIDs(ctx, parcelIDs)
		if err != nil {
			return nil, err
		}
		deliveryByParcel := latestDeliveryPerParcel(deliveries)

		views = make([]AvailableParcelView, 0, len(parcels))
		for _, parcel := range parcels {
			view := AvailableParcelView{
				ParcelID:    parcel.ID,
				Description: parcel.Description,
				ItemImage:   parcel.ItemImage,
				Status:      parcel.Status,
				CreatedAt:   parcel.CreatedAt,
				UpdatedAt:   parcel.UpdatedAt,
				Sender:      contactOf(parcel.Sender),
				Receiver:    contactOf(parcel.Receiver),
			}
			if delivery, ok := deliveryByParcel[parcel.ID]; ok {
				view.Sender.Pickup = &Coordinates{
					Latitude:    delivery.PickupLatitude,
					Longitude:   delivery.PickupLongitude,
					AddressText: delivery.PickupAddress,
				}
				view.Receiver.Dropoff = &Coordinates{
					Latitude:    delivery.DeliveryLatitude,
					Longitude:   delivery.DeliveryLongitude,
					AddressText: delivery.DeliveryAddress,
				}
			}
			views = append(views, view)
		}
		p.cache.SetJSON(ctx, availableParcelsKey, views, projectionTTL)
	}

	if riderLat != nil && riderLng != nil {
		for i := range views {
			if views[i].Sender.Pickup == nil {
				continue
			}
			distance := utils.HaversineDistance(*riderLat, *riderLng,
				views[i].Sender.Pickup.Latitude, views[i].Sender.Pickup.Longitude)
			eta := utils.CalculateETA(distance, 30)
			views[i].DistanceKm = &distance
			views[i].EtaMinutes = &eta
		}
	}
	return views, nil
}

// RiderJobs lists a rider's deliveries: unfinished jobs when history is
// false, completed ones when true.
func (p *Projections) RiderJobs(ctx context.Context, riderID uint, history bool) ([]RiderJobView, error) {
	group := "active"
	statuses := []models.DeliveryStatus{models.DeliveryPending, models.DeliveryInTransit}
	if history {
		group = "history"
		statuses = []models.DeliveryStatus{models.DeliveryDelivered}
	}

	key := fmt.Sprintf(riderJobsKeyFmt, riderID, group)
	var views []RiderJobView
	if p.cache.GetJSON(ctx, key, &views) {
		return views, nil
	}

	deliveries, err := p.store.RiderDeliveries(ctx, riderID, statuses)
	if err != nil {
		return nil, err
	}

	views = make([]RiderJobView, 0, len(deliveries))
	for _, delivery := range deliveries {
		view := RiderJobView{
			DeliveryID:    delivery.ID,
			ParcelID:      delivery.ParcelID,
			RiderID:       delivery.RiderID,
			Status:        delivery.Status,
			CreatedAt:     delivery.CreatedAt,
			UpdatedAt:     delivery.UpdatedAt,
			PickupImage:   delivery.PickupImage,
			DeliveryImage: delivery.DeliveryImage,
			Description:   delivery.Parcel.Description,
			ItemImage:     delivery.Parcel.ItemImage,
			ParcelStatus:  delivery.Parcel.Status,
			Sender:        contactOf(delivery.Parcel.Sender),
			Receiver:      contactOf(delivery.Parcel.Receiver),
			Pickup: Coordinates{
				Latitude:    delivery.PickupLatitude,
				Longitude:   delivery.PickupLongitude,
				AddressText: delivery.PickupAddress,
			},
			Dropoff: Coordinates{
				Latitude:    delivery.DeliveryLatitude,
				Longitude:   delivery.DeliveryLongitude,
				AddressText: delivery.DeliveryAddress,
			},
		}
		views = append(views, view)
	}

	p.cache.SetJSON(ctx, key, views, projectionTTL)
	return views, nil
}

// UserParcels lists parcels the user sent or receives, each annotated with
// its latest delivery row and the counterparts' addresses newest-first.
func (p *Projections) UserParcels(ctx context.Context, userID uint) ([]UserParcelView, error) {
	key := fmt.Sprintf(userParcelsKeyFmt, userID)
	var views []UserParcelView
	if p.cache.GetJSON(ctx, key, &views) {
		return views, nil
	}

	parcels, err := p.store.ParcelsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	parcelIDs := make([]uint, 0, len(parcels))
	for _, parcel := range parcels {
		parcelIDs = append(parcelIDs, parcel.ID)
	}
	deliveries, err := p.store.DeliveriesByParcelIDs(ctx, parcelIDs)
	if err != nil {
		return nil, err
	}
	deliveryByParcel := latestDeliveryPerParcel(deliveries)

	views = make([]UserParcelView, 0, len(parcels))
	for _, parcel := range parcels {
		view := UserParcelView{
			ParcelID:    parcel.ID,
			SenderID:    parcel.SenderID,
			ReceiverID:  parcel.ReceiverID,
			Description: parcel.Description,
			Status:      parcel.Status,
			CreatedAt:   parcel.CreatedAt,
			UpdatedAt:   parcel.UpdatedAt,
			Sender:      userWithSortedAddresses(parcel.Sender),
			Receiver:    userWithSortedAddresses(parcel.Receiver),
		}
		if delivery, ok := deliveryByParcel[parcel.ID]; ok {
			view.RiderID = delivery.RiderID
			status := delivery.Status
			view.DeliveryStatus = &status
			created := delivery.CreatedAt
			updated := delivery.UpdatedAt
			view.DeliveryCreatedAt = &created
			view.DeliveryUpdatedAt = &updated
		}
		views = append(views, view)
	}

	p.cache.SetJSON(ctx, key, views, projectionTTL)
	return views, nil
}

func contactOf(user models.User) Contact {
	return Contact{
		UserID:       user.ID,
		Username:     user.Username,
		Phone:        user.Phone,
		ProfileImage: user.ProfileImage,
	}
}

func userWithSortedAddresses(user models.User) UserWithAddresses {
	addresses := make([]models.UserAddress, len(user.Addresses))
	copy(addresses, user.Addresses)
	sort.SliceStable(addresses, func(i, j int) bool {
		return addresses[i].CreatedAt.After(addresses[j].CreatedAt)
	})
	return UserWithAddresses{
		UserID:       user.ID,
		Username:     user.Username,
		Phone:        user.Phone,
		ProfileImage: user.ProfileImage,
		Addresses:    addresses,
	}
}

// latestDeliveryPerParcel resolves duplicate delivery rows: the one with
// the highest created_at wins.
func latestDeliveryPerParcel(deliveries []models.Delivery) map[uint]models.Delivery {
	byParcel := make(map[uint]models.Delivery, len(deliveries))
	for _, delivery := range deliveries {
		current, ok := byParcel[delivery.ParcelID]
		if !ok || delivery.CreatedAt.After(current.CreatedAt) {
			byParcel[delivery.ParcelID] = delivery
		}
	}
	return byParcel
}
