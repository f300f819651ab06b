package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

var validate = validator.New()

// AccommodationService manages listings and their per-date room calendar.
// Writes are restricted to administrators.
type AccommodationService struct {
	store Store
	log   Logger
}

func NewAccommodationService(store Store, log Logger) *AccommodationService {
	return &AccommodationService{store: store, log: log}
}

// AccommodationInput describes a new listing.  Availability maps dates to
// the number of rooms offered.
type AccommodationInput struct {
	Name         string
	Location     string
	Category     string
	ImageURL     string
	Availability map[string]int
}

// AccommodationPatch is a partial update.  A non-nil Availability replaces
// the whole calendar.
type AccommodationPatch struct {
	Name         *string
	Location     *string
	Category     *string
	ImageURL     *string
	Availability map[string]int
}

// DateCorrection is one date fixed by Reconcile.
type DateCorrection struct {
	Date string `json:"date"`
	Was  int    `json:"was"`
	Now  int    `json:"now"`
}

// ReconcileReport lists the dates whose remaining rooms were recomputed.
type ReconcileReport struct {
	AccommodationID uint64           `json:"accommodation_id"`
	Corrected       []DateCorrection `json:"corrected"`
}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func checkImageURL(v string) error {
	if err := validate.Var(v, "required,url"); err != nil {
		return invalid("image_url", "must be a valid URL")
	}
	return nil
}

func checkCalendar(m map[string]int, allowZero bool) error {
	for d, n := range m {
		if _, err := availability.ParseDate(d); err != nil {
			return invalid("availability", fmt.Sprintf("bad date %q", d))
		}
		if n < 0 {
			return invalid("availability", fmt.Sprintf("%s: rooms cannot be negative", d))
		}
		if n == 0 && !allowZero {
			return invalid("availability", fmt.Sprintf("%s: rooms cannot be 0", d))
		}
	}
	return nil
}

// Create adds a listing; every date starts with all its rooms free.
func (s *AccommodationService) Create(ctx context.Context, id model.Identity, in AccommodationInput) (*model.Accommodation, error) {
	if !id.IsAdmin {
		return nil, repository.ErrForbidden
	}
	for _, f := range []struct{ name, v string }{
		{"name", in.Name}, {"location", in.Location}, {"category", in.Category},
	} {
		if err := requireText(f.name, f.v); err != nil {
			return nil, err
		}
	}
	if err := checkImageURL(in.ImageURL); err != nil {
		return nil, err
	}
	if err := checkCalendar(in.Availability, true); err != nil {
		return nil, err
	}
	a := &model.Accommodation{
		Name:         strings.TrimSpace(in.Name),
		Location:     strings.TrimSpace(in.Location),
		Category:     strings.TrimSpace(in.Category),
		ImageURL:     strings.TrimSpace(in.ImageURL),
		Availability: availability.Map(in.Availability).Clone(),
	}
	if err := s.store.InTx(ctx, func(tx repository.Tx) error {
		return tx.CreateAccommodation(ctx, a)
	}); err != nil {
		return nil, err
	}
	s.log.Infof("accommodation %d created by admin %d with %d dates", a.ID, id.UserID, len(a.Availability))
	return s.store.GetAccommodation(ctx, a.ID)
}

// Update merges patch into the listing.  A changed date capacity moves the
// remaining rooms by the same delta; it is refused when rooms already
// booked on that date would no longer fit.  Dates dropped from the
// calendar must have no booked rooms.
func (s *AccommodationService) Update(ctx context.Context, id model.Identity, accID uint64, p AccommodationPatch) (*model.Accommodation, error) {
	if !id.IsAdmin {
		return nil, repository.ErrForbidden
	}
	for _, f := range []struct {
		name string
		v    *string
	}{{"name", p.Name}, {"location", p.Location}, {"category", p.Category}} {
		if f.v != nil {
			if err := requireText(f.name, *f.v); err != nil {
				return nil, err
			}
		}
	}
	if p.ImageURL != nil {
		if err := checkImageURL(*p.ImageURL); err != nil {
			return nil, err
		}
	}
	if p.Availability != nil {
		if err := checkCalendar(p.Availability, false); err != nil {
			return nil, err
		}
	}

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		a, err := tx.LockAccommodation(ctx, accID)
		if err != nil {
			return err
		}
		if p.Name != nil {
			a.Name = strings.TrimSpace(*p.Name)
		}
		if p.Location != nil {
			a.Location = strings.TrimSpace(*p.Location)
		}
		if p.Category != nil {
			a.Category = strings.TrimSpace(*p.Category)
		}
		if p.ImageURL != nil {
			a.ImageURL = strings.TrimSpace(*p.ImageURL)
		}
		if err := tx.UpdateAccommodation(ctx, a); err != nil {
			return err
		}
		if p.Availability == nil {
			return nil
		}
		return replaceCalendar(ctx, tx, accID, p.Availability)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("accommodation %d updated by admin %d", accID, id.UserID)
	return s.store.GetAccommodation(ctx, accID)
}

func replaceCalendar(ctx context.Context, tx repository.Tx, accID uint64, next map[string]int) error {
	capacity, remaining, err := tx.LockCalendar(ctx, accID)
	if err != nil {
		return err
	}
	for _, d := range sortedDates(next) {
		newCap := next[d]
		oldCap, ok := capacity[d]
		if !ok {
			if err := tx.UpsertDate(ctx, accID, d, newCap, newCap); err != nil {
				return err
			}
			continue
		}
		if oldCap == newCap {
			continue
		}
		left := remaining[d] + (newCap - oldCap)
		if left < 0 {
			return fmt.Errorf("%w: %s has %d rooms booked, capacity %d is too low",
				repository.ErrConflict, d, oldCap-remaining[d], newCap)
		}
		if err := tx.UpsertDate(ctx, accID, d, newCap, left); err != nil {
			return err
		}
	}
	for _, d := range sortedDates(capacity) {
		if _, keep := next[d]; keep {
			continue
		}
		if booked := capacity[d] - remaining[d]; booked > 0 {
			return fmt.Errorf("%w: %s has %d rooms booked and cannot be removed",
				repository.ErrConflict, d, booked)
		}
		if err := tx.DeleteDate(ctx, accID, d); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a listing that has no active bookings.
func (s *AccommodationService) Delete(ctx context.Context, id model.Identity, accID uint64) error {
	if !id.IsAdmin {
		return repository.ErrForbidden
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockAccommodation(ctx, accID); err != nil {
			return err
		}
		n, err := tx.CountActiveBookings(ctx, accID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: accommodation has %d active bookings", repository.ErrConflict, n)
		}
		return tx.DeleteAccommodation(ctx, accID)
	})
	if err != nil {
		return err
	}
	s.log.Infof("accommodation %d deleted by admin %d", accID, id.UserID)
	return nil
}

// List returns listings matching the filter.
func (s *AccommodationService) List(ctx context.Context, f model.AccommodationFilter) ([]model.Accommodation, error) {
	f.Category = strings.TrimSpace(f.Category)
	f.Location = strings.TrimSpace(f.Location)
	list, err := s.store.ListAccommodations(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Capacity = nil
	}
	return list, nil
}

// Get returns one listing with its remaining rooms per date.
func (s *AccommodationService) Get(ctx context.Context, accID uint64) (*model.Accommodation, error) {
	a, err := s.store.GetAccommodation(ctx, accID)
	if err != nil {
		return nil, err
	}
	a.Capacity = nil
	return a, nil
}

// Reconcile recomputes remaining rooms as capacity minus the rooms held by
// active bookings and writes back every date that drifted.
func (s *AccommodationService) Reconcile(ctx context.Context, id model.Identity, accID uint64) (*ReconcileReport, error) {
	if !id.IsAdmin {
		return nil, repository.ErrForbidden
	}
	report := &ReconcileReport{AccommodationID: accID, Corrected: []DateCorrection{}}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockAccommodation(ctx, accID); err != nil {
			return err
		}
		capacity, remaining, err := tx.LockCalendar(ctx, accID)
		if err != nil {
			return err
		}
		holds, err := tx.ActiveHolds(ctx, accID)
		if err != nil {
			return err
		}
		derived, err := availability.Derive(capacity, holds)
		if err != nil {
			return err
		}
		for _, d := range availability.Diff(remaining, derived) {
			n := derived[d]
			if n < 0 {
				s.log.Warnf("accommodation %d is overbooked on %s by %d rooms", accID, d, -n)
				n = 0
			}
			if n == remaining[d] {
				continue
			}
			if err := tx.SetRemaining(ctx, accID, d, n); err != nil {
				return err
			}
			report.Corrected = append(report.Corrected, DateCorrection{Date: d, Was: remaining[d], Now: n})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(report.Corrected) > 0 {
		s.log.Warnf("accommodation %d reconciled: %d dates corrected", accID, len(report.Corrected))
	}
	return report, nil
}

func sortedDates(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for d := range m {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
