package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// Tx is the set of writes a booking or inventory operation can perform
// atomically.  Every method runs on the same database transaction;
// returning an error from the InTx callback rolls all of them back.
type Tx interface {
	AccommodationExists(ctx context.Context, id uint64) error
	LockAccommodation(ctx context.Context, id uint64) (*model.Accommodation, error)
	CreateAccommodation(ctx context.Context, a *model.Accommodation) error
	UpdateAccommodation(ctx context.Context, a *model.Accommodation) error
	DeleteAccommodation(ctx context.Context, id uint64) error

	LockAvailability(ctx context.Context, accommodationID uint64, dates []string) (availability.Map, error)
	LockCalendar(ctx context.Context, accommodationID uint64) (capacity, remaining availability.Map, err error)
	Reserve(ctx context.Context, accommodationID uint64, dates []string, rooms int) error
	Release(ctx context.Context, accommodationID uint64, dates []string, rooms int) error
	UpsertDate(ctx context.Context, accommodationID uint64, date string, capacity, roomsLeft int) error
	SetRemaining(ctx context.Context, accommodationID uint64, date string, roomsLeft int) error
	DeleteDate(ctx context.Context, accommodationID uint64, date string) error

	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error)
	UpdateBooking(ctx context.Context, b *model.Booking) error
	DeleteBooking(ctx context.Context, id uint64) error
	ActiveHolds(ctx context.Context, accommodationID uint64) ([]availability.Hold, error)
	CountActiveBookings(ctx context.Context, accommodationID uint64) (int, error)
}

// Ledger ties the accommodation and booking repositories together so
// services can run a whole lifecycle operation in one transaction.
type Ledger struct {
	db             *sql.DB
	Accommodations *AccommodationRepo
	Bookings       *BookingRepo
}

// NewLedger builds a Ledger over db.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{
		db:             db,
		Accommodations: NewAccommodationRepo(db),
		Bookings:       NewBookingRepo(db),
	}
}

// InTx begins a transaction, hands it to fn and commits when fn returns
// nil.  Any error from fn or from commit leaves the database untouched.
func (l *Ledger) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&ledgerTx{tx: tx, acc: l.Accommodations, book: l.Bookings}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Read-side helpers; these run outside any transaction.

func (l *Ledger) GetAccommodation(ctx context.Context, id uint64) (*model.Accommodation, error) {
	return l.Accommodations.GetByID(ctx, id)
}

func (l *Ledger) ListAccommodations(ctx context.Context, f model.AccommodationFilter) ([]model.Accommodation, error) {
	return l.Accommodations.List(ctx, f)
}

func (l *Ledger) GetBooking(ctx context.Context, id uint64) (*model.BookingView, error) {
	return l.Bookings.GetByID(ctx, id)
}

func (l *Ledger) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.BookingView, error) {
	return l.Bookings.ListByUser(ctx, userID)
}

func (l *Ledger) ListBookings(ctx context.Context, email string) ([]model.BookingView, error) {
	return l.Bookings.List(ctx, email)
}

type ledgerTx struct {
	tx   *sql.Tx
	acc  *AccommodationRepo
	book *BookingRepo
}

func (t *ledgerTx) AccommodationExists(ctx context.Context, id uint64) error {
	return t.acc.ExistsTx(ctx, t.tx, id)
}

func (t *ledgerTx) LockAccommodation(ctx context.Context, id uint64) (*model.Accommodation, error) {
	return t.acc.GetForUpdateTx(ctx, t.tx, id)
}

func (t *ledgerTx) CreateAccommodation(ctx context.Context, a *model.Accommodation) error {
	return t.acc.CreateTx(ctx, t.tx, a)
}

func (t *ledgerTx) UpdateAccommodation(ctx context.Context, a *model.Accommodation) error {
	return t.acc.UpdateDetailsTx(ctx, t.tx, a)
}

func (t *ledgerTx) DeleteAccommodation(ctx context.Context, id uint64) error {
	return t.acc.DeleteTx(ctx, t.tx, id)
}

func (t *ledgerTx) LockAvailability(ctx context.Context, id uint64, dates []string) (availability.Map, error) {
	return t.acc.LockAvailabilityTx(ctx, t.tx, id, dates)
}

func (t *ledgerTx) LockCalendar(ctx context.Context, id uint64) (availability.Map, availability.Map, error) {
	return t.acc.LockCalendarTx(ctx, t.tx, id)
}

func (t *ledgerTx) Reserve(ctx context.Context, id uint64, dates []string, rooms int) error {
	return t.acc.ReserveTx(ctx, t.tx, id, dates, rooms)
}

func (t *ledgerTx) Release(ctx context.Context, id uint64, dates []string, rooms int) error {
	return t.acc.ReleaseTx(ctx, t.tx, id, dates, rooms)
}

func (t *ledgerTx) UpsertDate(ctx context.Context, id uint64, date string, capacity, roomsLeft int) error {
	return t.acc.UpsertDateTx(ctx, t.tx, id, date, capacity, roomsLeft)
}

func (t *ledgerTx) SetRemaining(ctx context.Context, id uint64, date string, roomsLeft int) error {
	return t.acc.SetRemainingTx(ctx, t.tx, id, date, roomsLeft)
}

func (t *ledgerTx) DeleteDate(ctx context.Context, id uint64, date string) error {
	return t.acc.DeleteDateTx(ctx, t.tx, id, date)
}

func (t *ledgerTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return t.book.CreateTx(ctx, t.tx, b)
}

func (t *ledgerTx) GetBookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.book.GetForUpdateTx(ctx, t.tx, id)
}

func (t *ledgerTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	return t.book.UpdateTx(ctx, t.tx, b)
}

func (t *ledgerTx) DeleteBooking(ctx context.Context, id uint64) error {
	return t.book.DeleteTx(ctx, t.tx, id)
}

func (t *ledgerTx) ActiveHolds(ctx context.Context, id uint64) ([]availability.Hold, error) {
	return t.book.ActiveHoldsTx(ctx, t.tx, id)
}

func (t *ledgerTx) CountActiveBookings(ctx context.Context, id uint64) (int, error) {
	return t.book.CountActiveTx(ctx, t.tx, id)
}
