package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// BookingRepo provides CRUD operations for bookings.  Room accounting is
// not done here; callers pair these methods with AccommodationRepo's
// ReserveTx/ReleaseTx inside one transaction.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingCols = `b.id, b.user_id, b.accommodation_id, DATE_FORMAT(b.start_date, '%Y-%m-%d'),
	b.days, b.adults, b.kids, b.rooms, b.status, b.created_at, b.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(s rowScanner, b *model.Booking, extra ...interface{}) error {
	dest := []interface{}{
		&b.ID, &b.UserID, &b.AccommodationID, &b.StartDate,
		&b.Days, &b.Adults, &b.Kids, &b.Rooms, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	}
	return s.Scan(append(dest, extra...)...)
}

// CreateTx inserts a booking within the caller's transaction and writes the
// generated ID back onto b.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, accommodation_id, start_date, days, adults, kids, rooms, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.AccommodationID, b.StartDate, b.Days, b.Adults, b.Kids, b.Rooms, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetForUpdateTx reads a booking and locks its row until the transaction
// ends.  ErrBookingNotFound is returned when it does not exist.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingCols + ` FROM bookings b WHERE b.id = ? FOR UPDATE`
	var b model.Booking
	if err := scanBooking(tx.QueryRowContext(ctx, q, id), &b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetByID returns a booking joined with its accommodation and owner.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.BookingView, error) {
	q := `SELECT ` + bookingCols + `, a.name, a.category, u.first_name, u.email
	      FROM bookings b
	      JOIN accommodations a ON a.id = b.accommodation_id
	      JOIN users u ON u.id = b.user_id
	      WHERE b.id = ?`
	var v model.BookingView
	err := scanBooking(r.db.QueryRowContext(ctx, q, id), &v.Booking,
		&v.AccommodationName, &v.Category, &v.UserFirstName, &v.UserEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &v, nil
}

// UpdateTx overwrites the mutable columns of a booking.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `UPDATE bookings
	           SET start_date = ?, days = ?, adults = ?, kids = ?, rooms = ?, status = ?, accommodation_id = ?
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, b.StartDate, b.Days, b.Adults, b.Kids, b.Rooms, b.Status, b.AccommodationID, b.ID)
	return err
}

// DeleteTx removes a booking row.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListByUser returns the caller's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingView, error) {
	q := `SELECT ` + bookingCols + `, a.name, a.category, u.first_name, u.email
	      FROM bookings b
	      JOIN accommodations a ON a.id = b.accommodation_id
	      JOIN users u ON u.id = b.user_id
	      WHERE b.user_id = ?
	      ORDER BY b.created_at DESC, b.id DESC`
	return r.list(ctx, q, userID)
}

// List returns all bookings, optionally restricted to the user with the
// given email.  Used by administrators.
func (r *BookingRepo) List(ctx context.Context, email string) ([]model.BookingView, error) {
	q := `SELECT ` + bookingCols + `, a.name, a.category, u.first_name, u.email
	      FROM bookings b
	      JOIN accommodations a ON a.id = b.accommodation_id
	      JOIN users u ON u.id = b.user_id`
	args := []interface{}{}
	if e := strings.ToLower(strings.TrimSpace(email)); e != "" {
		q += ` WHERE u.email = ?`
		args = append(args, e)
	}
	q += ` ORDER BY b.created_at DESC, b.id DESC`
	return r.list(ctx, q, args...)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.BookingView, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BookingView, 0)
	for rows.Next() {
		var v model.BookingView
		if err := scanBooking(rows, &v.Booking, &v.AccommodationName, &v.Category, &v.UserFirstName, &v.UserEmail); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ActiveHoldsTx returns the footprint of every booking on the
// accommodation that still holds rooms.
func (r *BookingRepo) ActiveHoldsTx(ctx context.Context, tx *sql.Tx, accommodationID uint64) ([]availability.Hold, error) {
	const q = `SELECT DATE_FORMAT(start_date, '%Y-%m-%d'), days, rooms
	           FROM bookings
	           WHERE accommodation_id = ? AND status IN ('confirmed', 'pending')`
	rows, err := tx.QueryContext(ctx, q, accommodationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []availability.Hold
	for rows.Next() {
		var h availability.Hold
		if err := rows.Scan(&h.StartDate, &h.Days, &h.Rooms); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// CountActiveTx counts bookings on the accommodation that still hold rooms.
func (r *BookingRepo) CountActiveTx(ctx context.Context, tx *sql.Tx, accommodationID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE accommodation_id = ? AND status IN ('confirmed', 'pending')`
	var n int
	err := tx.QueryRowContext(ctx, q, accommodationID).Scan(&n)
	return n, err
}
