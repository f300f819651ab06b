package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// Store is the persistence the services need: transactional writes plus
// plain reads.  *repository.Ledger implements it.
type Store interface {
	InTx(ctx context.Context, fn func(repository.Tx) error) error
	GetAccommodation(ctx context.Context, id uint64) (*model.Accommodation, error)
	ListAccommodations(ctx context.Context, f model.AccommodationFilter) ([]model.Accommodation, error)
	GetBooking(ctx context.Context, id uint64) (*model.BookingView, error)
	ListBookingsByUser(ctx context.Context, userID uint64) ([]model.BookingView, error)
	ListBookings(ctx context.Context, email string) ([]model.BookingView, error)
}

// Publisher delivers booking events after commit.  *queue.Publisher
// implements it.
type Publisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Logger is satisfied by echo's gommon logger.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// DefaultMaxStayDays is used when no positive limit is configured.
const DefaultMaxStayDays = 3

// BookingService runs the booking lifecycle: create, edit, cancel and the
// administrator delete.  Rooms are held by confirmed and pending bookings;
// only cancellation or deletion gives them back.
type BookingService struct {
	store       Store
	events      Publisher
	log         Logger
	maxStayDays int
}

// NewBookingService wires the service.  events may be nil to disable
// publishing.
func NewBookingService(store Store, events Publisher, log Logger, maxStayDays int) *BookingService {
	if maxStayDays <= 0 {
		maxStayDays = DefaultMaxStayDays
	}
	return &BookingService{store: store, events: events, log: log, maxStayDays: maxStayDays}
}

// MaxStayDays returns the longest stay a single booking may cover.
func (s *BookingService) MaxStayDays() int { return s.maxStayDays }

// CreateBookingInput is the request to book rooms.
type CreateBookingInput struct {
	AccommodationID uint64
	StartDate       string
	Days            int
	Adults          int
	Kids            int
	Rooms           int
}

// BookingPatch lists the fields an edit may change.  Nil fields are kept.
// Status and AccommodationID are reserved for administrators.
type BookingPatch struct {
	StartDate       *string
	Days            *int
	Adults          *int
	Kids            *int
	Rooms           *int
	Status          *string
	AccommodationID *uint64
}

func (s *BookingService) validateStay(startDate string, days, adults, kids, rooms int) error {
	if _, err := availability.ParseDate(startDate); err != nil {
		return invalid("start_date", "must be a date in YYYY-MM-DD format")
	}
	if days < 1 || days > s.maxStayDays {
		return invalid("days", fmt.Sprintf("must be between 1 and %d", s.maxStayDays))
	}
	if adults < 1 {
		return invalid("adults", "at least one adult is required")
	}
	if kids < 0 {
		return invalid("kids", "cannot be negative")
	}
	if rooms == 0 {
		return invalid("rooms", "cannot be 0")
	}
	if rooms < 0 {
		return invalid("rooms", "must be positive")
	}
	return nil
}

// Create books in.Rooms rooms on every night of the stay.  The caller's
// identity becomes the owner.  On insufficient availability nothing is
// written and the returned error wraps ErrInsufficientAvailability.
func (s *BookingService) Create(ctx context.Context, id model.Identity, in CreateBookingInput) (*model.Booking, error) {
	if id.UserID == 0 {
		return nil, repository.ErrForbidden
	}
	if in.AccommodationID == 0 {
		return nil, invalid("accommodation_id", "is required")
	}
	if err := s.validateStay(in.StartDate, in.Days, in.Adults, in.Kids, in.Rooms); err != nil {
		return nil, err
	}
	dates, err := availability.ExpandDates(in.StartDate, in.Days)
	if err != nil {
		return nil, invalid("start_date", err.Error())
	}

	b := &model.Booking{
		UserID:          id.UserID,
		AccommodationID: in.AccommodationID,
		StartDate:       in.StartDate,
		Days:            in.Days,
		Adults:          in.Adults,
		Kids:            in.Kids,
		Rooms:           in.Rooms,
		Status:          model.StatusConfirmed,
	}
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.AccommodationExists(ctx, in.AccommodationID); err != nil {
			return err
		}
		snap, err := tx.LockAvailability(ctx, in.AccommodationID, dates)
		if err != nil {
			return err
		}
		if err := checkRooms(snap, dates, in.Rooms); err != nil {
			return err
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		return reserve(ctx, tx, in.AccommodationID, dates, in.Rooms)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("booking %d confirmed: user=%d accommodation=%d start=%s days=%d rooms=%d",
		b.ID, b.UserID, b.AccommodationID, b.StartDate, b.Days, b.Rooms)
	s.publish(ctx, queue.BookingConfirmed, b, id)
	return b, nil
}

// Edit applies patch to a booking.  Inside one transaction the old rooms
// are given back on a fresh snapshot, the new range is checked, and only
// then are the writes made; any failure leaves the booking and the
// availability exactly as they were.
func (s *BookingService) Edit(ctx context.Context, id model.Identity, bookingID uint64, patch BookingPatch) (*model.Booking, error) {
	if id.UserID == 0 {
		return nil, repository.ErrForbidden
	}
	if err := s.validatePatch(patch); err != nil {
		return nil, err
	}

	var next model.Booking
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		old, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !id.IsAdmin {
			if old.UserID != id.UserID {
				return repository.ErrForbidden
			}
			if patch.Status != nil && *patch.Status != old.Status {
				return fmt.Errorf("%w: only administrators can change the status", repository.ErrForbidden)
			}
			if patch.AccommodationID != nil && *patch.AccommodationID != old.AccommodationID {
				return fmt.Errorf("%w: only administrators can move a booking", repository.ErrForbidden)
			}
			if old.Status == model.StatusCanceled {
				return fmt.Errorf("%w: booking is canceled", repository.ErrConflict)
			}
		}

		next = *old
		applyPatch(&next, patch)
		if err := s.validateStay(next.StartDate, next.Days, next.Adults, next.Kids, next.Rooms); err != nil {
			return err
		}
		oldDates, err := availability.ExpandDates(old.StartDate, old.Days)
		if err != nil {
			return err
		}
		newDates, err := availability.ExpandDates(next.StartDate, next.Days)
		if err != nil {
			return invalid("start_date", err.Error())
		}

		sameAccommodation := next.AccommodationID == old.AccommodationID
		if !sameAccommodation {
			if err := tx.AccommodationExists(ctx, next.AccommodationID); err != nil {
				return err
			}
		}

		if next.HoldsRooms() {
			var snap availability.Map
			if sameAccommodation {
				snap, err = tx.LockAvailability(ctx, next.AccommodationID, availability.Union(oldDates, newDates))
				if err != nil {
					return err
				}
				if old.HoldsRooms() {
					availability.Reverse(snap, oldDates, old.Rooms)
				}
			} else {
				snap, err = tx.LockAvailability(ctx, next.AccommodationID, newDates)
				if err != nil {
					return err
				}
			}
			if err := checkRooms(snap, newDates, next.Rooms); err != nil {
				return err
			}
		}

		if old.HoldsRooms() {
			if err := tx.Release(ctx, old.AccommodationID, oldDates, old.Rooms); err != nil {
				return err
			}
		}
		if next.HoldsRooms() {
			if err := reserve(ctx, tx, next.AccommodationID, newDates, next.Rooms); err != nil {
				return err
			}
		}
		return tx.UpdateBooking(ctx, &next)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("booking %d updated by user %d: accommodation=%d start=%s days=%d rooms=%d status=%s",
		next.ID, id.UserID, next.AccommodationID, next.StartDate, next.Days, next.Rooms, next.Status)
	kind := queue.BookingUpdated
	if next.Status == model.StatusCanceled {
		kind = queue.BookingCanceled
	}
	s.publish(ctx, kind, &next, id)
	return &next, nil
}

func (s *BookingService) validatePatch(p BookingPatch) error {
	if p.StartDate != nil {
		if _, err := availability.ParseDate(*p.StartDate); err != nil {
			return invalid("start_date", "must be a date in YYYY-MM-DD format")
		}
	}
	if p.Days != nil && (*p.Days < 1 || *p.Days > s.maxStayDays) {
		return invalid("days", fmt.Sprintf("must be between 1 and %d", s.maxStayDays))
	}
	if p.Adults != nil && *p.Adults < 1 {
		return invalid("adults", "at least one adult is required")
	}
	if p.Kids != nil && *p.Kids < 0 {
		return invalid("kids", "cannot be negative")
	}
	if p.Rooms != nil {
		if *p.Rooms == 0 {
			return invalid("rooms", "cannot be 0")
		}
		if *p.Rooms < 0 {
			return invalid("rooms", "must be positive")
		}
	}
	if p.Status != nil && !model.ValidStatus(*p.Status) {
		return invalid("status", "must be confirmed, pending or canceled")
	}
	if p.AccommodationID != nil && *p.AccommodationID == 0 {
		return invalid("accommodation_id", "is required")
	}
	return nil
}

func applyPatch(b *model.Booking, p BookingPatch) {
	if p.StartDate != nil {
		b.StartDate = *p.StartDate
	}
	if p.Days != nil {
		b.Days = *p.Days
	}
	if p.Adults != nil {
		b.Adults = *p.Adults
	}
	if p.Kids != nil {
		b.Kids = *p.Kids
	}
	if p.Rooms != nil {
		b.Rooms = *p.Rooms
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.AccommodationID != nil {
		b.AccommodationID = *p.AccommodationID
	}
}

// Cancel gives the booking's rooms back and marks it canceled.  Canceling
// an already canceled booking returns it unchanged.
func (s *BookingService) Cancel(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error) {
	if id.UserID == 0 {
		return nil, repository.ErrForbidden
	}
	var (
		b       *model.Booking
		changed bool
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		b, err = tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !id.IsAdmin && b.UserID != id.UserID {
			return repository.ErrForbidden
		}
		if b.Status == model.StatusCanceled {
			return nil
		}
		if b.HoldsRooms() {
			dates, err := availability.ExpandDates(b.StartDate, b.Days)
			if err != nil {
				return err
			}
			if err := tx.Release(ctx, b.AccommodationID, dates, b.Rooms); err != nil {
				return err
			}
		}
		b.Status = model.StatusCanceled
		changed = true
		return tx.UpdateBooking(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Infof("booking %d canceled by user %d", b.ID, id.UserID)
		s.publish(ctx, queue.BookingCanceled, b, id)
	}
	return b, nil
}

// Delete removes a booking record, giving its rooms back first when it
// still holds them.  Administrators only.
func (s *BookingService) Delete(ctx context.Context, id model.Identity, bookingID uint64) error {
	if !id.IsAdmin {
		return repository.ErrForbidden
	}
	var b *model.Booking
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		b, err = tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.HoldsRooms() {
			dates, err := availability.ExpandDates(b.StartDate, b.Days)
			if err != nil {
				return err
			}
			if err := tx.Release(ctx, b.AccommodationID, dates, b.Rooms); err != nil {
				return err
			}
		}
		return tx.DeleteBooking(ctx, bookingID)
	})
	if err != nil {
		return err
	}
	s.log.Infof("booking %d deleted by admin %d", bookingID, id.UserID)
	held := *b
	held.Status = "deleted"
	s.publish(ctx, queue.BookingCanceled, &held, id)
	return nil
}

// Get returns one booking visible to the caller.
func (s *BookingService) Get(ctx context.Context, id model.Identity, bookingID uint64) (*model.BookingView, error) {
	v, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin && v.UserID != id.UserID {
		return nil, repository.ErrForbidden
	}
	return v, nil
}

// ListMine returns the caller's bookings.
func (s *BookingService) ListMine(ctx context.Context, id model.Identity) ([]model.BookingView, error) {
	if id.UserID == 0 {
		return nil, repository.ErrForbidden
	}
	return s.store.ListBookingsByUser(ctx, id.UserID)
}

// ListAll returns every booking, optionally only those of the user with
// the given email.  Administrators only.
func (s *BookingService) ListAll(ctx context.Context, id model.Identity, email string) ([]model.BookingView, error) {
	if !id.IsAdmin {
		return nil, repository.ErrForbidden
	}
	return s.store.ListBookings(ctx, email)
}

func (s *BookingService) publish(ctx context.Context, kind string, b *model.Booking, actor model.Identity) {
	if s.events == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:            kind,
		BookingID:       b.ID,
		UserID:          b.UserID,
		AccommodationID: b.AccommodationID,
		StartDate:       b.StartDate,
		Days:            b.Days,
		Rooms:           b.Rooms,
		Status:          b.Status,
		ActorID:         actor.UserID,
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.Warnf("publish %s for booking %d failed: %v", kind, b.ID, err)
	}
}

// checkRooms runs the availability check on a locked snapshot.
func checkRooms(snap availability.Map, dates []string, rooms int) error {
	if ok, short := availability.Check(snap, dates, rooms); !ok {
		return &AvailabilityError{Date: short, Requested: rooms, Left: snap[short]}
	}
	return nil
}

// reserve applies the guarded decrement and reports an exhausted date as
// an availability error.
func reserve(ctx context.Context, tx repository.Tx, accommodationID uint64, dates []string, rooms int) error {
	err := tx.Reserve(ctx, accommodationID, dates, rooms)
	var exhausted *repository.RoomsExhaustedError
	if errors.As(err, &exhausted) {
		return &AvailabilityError{Date: exhausted.Date, Requested: rooms}
	}
	return err
}
