package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// AccommodationRepo manages the accommodations table and the per-date
// accommodation_availability rows.  Each availability row stores the
// nominal capacity for the date and the rooms still left; bookings only
// ever move rooms_left.
type AccommodationRepo struct {
	db *sql.DB
}

// NewAccommodationRepo constructs an AccommodationRepo given a DB handle.
func NewAccommodationRepo(db *sql.DB) *AccommodationRepo { return &AccommodationRepo{db: db} }

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *AccommodationRepo) DB() *sql.DB { return r.db }

const accommodationCols = `id, name, location, category, image_url, created_at, updated_at`

// CreateTx inserts the accommodation and one availability row per date
// with rooms_left equal to capacity.  The generated ID is written back.
func (r *AccommodationRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Accommodation) error {
	const q = `INSERT INTO accommodations (name, location, category, image_url) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, a.Name, a.Location, a.Category, a.ImageURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	if len(a.Availability) == 0 {
		return nil
	}
	query := `INSERT INTO accommodation_availability (accommodation_id, stay_date, capacity, rooms_left) VALUES `
	args := make([]interface{}, 0, len(a.Availability)*4)
	i := 0
	for date, rooms := range a.Availability {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, a.ID, date, rooms, rooms)
		i++
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID loads an accommodation with its remaining and nominal room
// counts.  ErrAccommodationNotFound is returned when the row is missing.
func (r *AccommodationRepo) GetByID(ctx context.Context, id uint64) (*model.Accommodation, error) {
	var a model.Accommodation
	err := r.db.QueryRowContext(ctx, `SELECT `+accommodationCols+` FROM accommodations WHERE id = ?`, id).Scan(
		&a.ID, &a.Name, &a.Location, &a.Category, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccommodationNotFound
		}
		return nil, err
	}
	list := []model.Accommodation{a}
	if err := r.attachAvailability(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns accommodations matching the equality filter ordered by
// name.  An empty slice is returned when nothing matches.
func (r *AccommodationRepo) List(ctx context.Context, f model.AccommodationFilter) ([]model.Accommodation, error) {
	where := []string{}
	args := []interface{}{}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Location != "" {
		where = append(where, "location = ?")
		args = append(args, f.Location)
	}
	q := `SELECT ` + accommodationCols + ` FROM accommodations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Accommodation, 0)
	for rows.Next() {
		var a model.Accommodation
		if err := rows.Scan(&a.ID, &a.Name, &a.Location, &a.Category, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := r.attachAvailability(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachAvailability fills Availability and Capacity for all given
// accommodations with a single query.
func (r *AccommodationRepo) attachAvailability(ctx context.Context, list []model.Accommodation) error {
	index := make(map[uint64]int, len(list))
	ids := make([]interface{}, 0, len(list))
	placeholders := make([]string, 0, len(list))
	for i := range list {
		list[i].Availability = map[string]int{}
		list[i].Capacity = map[string]int{}
		index[list[i].ID] = i
		ids = append(ids, list[i].ID)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT accommodation_id, DATE_FORMAT(stay_date, '%Y-%m-%d'), capacity, rooms_left
	      FROM accommodation_availability
	      WHERE accommodation_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY accommodation_id, stay_date`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			accID     uint64
			date      string
			capacity  int
			roomsLeft int
		)
		if err := rows.Scan(&accID, &date, &capacity, &roomsLeft); err != nil {
			return err
		}
		idx, ok := index[accID]
		if !ok {
			continue
		}
		list[idx].Availability[date] = roomsLeft
		list[idx].Capacity[date] = capacity
	}
	return rows.Err()
}

// ExistsTx returns ErrAccommodationNotFound when the accommodation does not
// exist.  The row is read with a shared lock so a concurrent delete waits
// for the caller's transaction.
func (r *AccommodationRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM accommodations WHERE id = ? LOCK IN SHARE MODE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccommodationNotFound
	}
	return err
}

// GetForUpdateTx reads the accommodation's descriptive columns and locks
// the row until the transaction ends.
func (r *AccommodationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Accommodation, error) {
	var a model.Accommodation
	err := tx.QueryRowContext(ctx, `SELECT `+accommodationCols+` FROM accommodations WHERE id = ? FOR UPDATE`, id).Scan(
		&a.ID, &a.Name, &a.Location, &a.Category, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccommodationNotFound
		}
		return nil, err
	}
	return &a, nil
}

// UpdateDetailsTx overwrites the descriptive columns of an accommodation.
func (r *AccommodationRepo) UpdateDetailsTx(ctx context.Context, tx *sql.Tx, a *model.Accommodation) error {
	const q = `UPDATE accommodations SET name = ?, location = ?, category = ?, image_url = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, a.Name, a.Location, a.Category, a.ImageURL, a.ID)
	return err
}

// LockAvailabilityTx reads rooms_left for the given dates with row locks
// held until the transaction ends.  Dates without a row are absent from
// the returned map, which callers treat as zero availability.
func (r *AccommodationRepo) LockAvailabilityTx(ctx context.Context, tx *sql.Tx, id uint64, dates []string) (availability.Map, error) {
	out := availability.Map{}
	if len(dates) == 0 {
		return out, nil
	}
	args := make([]interface{}, 0, len(dates)+1)
	args = append(args, id)
	placeholders := make([]string, 0, len(dates))
	for _, d := range dates {
		args = append(args, d)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT DATE_FORMAT(stay_date, '%Y-%m-%d'), rooms_left
	      FROM accommodation_availability
	      WHERE accommodation_id = ? AND stay_date IN (` + strings.Join(placeholders, ",") + `)
	      FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var date string
		var left int
		if err := rows.Scan(&date, &left); err != nil {
			return nil, err
		}
		out[date] = left
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LockCalendarTx reads capacity and rooms_left for every date of an
// accommodation with row locks held until the transaction ends.
func (r *AccommodationRepo) LockCalendarTx(ctx context.Context, tx *sql.Tx, id uint64) (capacity, remaining availability.Map, err error) {
	const q = `SELECT DATE_FORMAT(stay_date, '%Y-%m-%d'), capacity, rooms_left
	           FROM accommodation_availability
	           WHERE accommodation_id = ?
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	capacity, remaining = availability.Map{}, availability.Map{}
	for rows.Next() {
		var date string
		var c, left int
		if err := rows.Scan(&date, &c, &left); err != nil {
			return nil, nil, err
		}
		capacity[date] = c
		remaining[date] = left
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return capacity, remaining, nil
}

// ReserveTx takes rooms on every date with a conditional decrement.  The
// WHERE clause only matches while rooms_left >= rooms, so two concurrent
// transactions can never drive a date below zero.  A
// *RoomsExhaustedError is returned for the first date that does not
// match.
func (r *AccommodationRepo) ReserveTx(ctx context.Context, tx *sql.Tx, id uint64, dates []string, rooms int) error {
	const q = `UPDATE accommodation_availability
	           SET rooms_left = rooms_left - ?
	           WHERE accommodation_id = ? AND stay_date = ? AND rooms_left >= ?`
	for _, d := range dates {
		res, err := tx.ExecContext(ctx, q, rooms, id, d, rooms)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return &RoomsExhaustedError{Date: d}
		}
	}
	return nil
}

// ReleaseTx gives rooms back on every date.  Dates no longer in the
// calendar are skipped.
func (r *AccommodationRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id uint64, dates []string, rooms int) error {
	const q = `UPDATE accommodation_availability
	           SET rooms_left = rooms_left + ?
	           WHERE accommodation_id = ? AND stay_date = ?`
	for _, d := range dates {
		if _, err := tx.ExecContext(ctx, q, rooms, id, d); err != nil {
			return err
		}
	}
	return nil
}

// UpsertDateTx writes capacity and rooms_left for a single date,
// inserting the row when it does not exist yet.
func (r *AccommodationRepo) UpsertDateTx(ctx context.Context, tx *sql.Tx, id uint64, date string, capacity, roomsLeft int) error {
	const q = `INSERT INTO accommodation_availability (accommodation_id, stay_date, capacity, rooms_left)
	           VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE capacity = VALUES(capacity), rooms_left = VALUES(rooms_left)`
	_, err := tx.ExecContext(ctx, q, id, date, capacity, roomsLeft)
	return err
}

// SetRemainingTx overwrites rooms_left for a single date.
func (r *AccommodationRepo) SetRemainingTx(ctx context.Context, tx *sql.Tx, id uint64, date string, roomsLeft int) error {
	const q = `UPDATE accommodation_availability SET rooms_left = ? WHERE accommodation_id = ? AND stay_date = ?`
	_, err := tx.ExecContext(ctx, q, roomsLeft, id, date)
	return err
}

// DeleteDateTx removes a date from the accommodation's calendar.
func (r *AccommodationRepo) DeleteDateTx(ctx context.Context, tx *sql.Tx, id uint64, date string) error {
	const q = `DELETE FROM accommodation_availability WHERE accommodation_id = ? AND stay_date = ?`
	_, err := tx.ExecContext(ctx, q, id, date)
	return err
}

// DeleteTx removes the accommodation; availability rows cascade.  It
// returns ErrAccommodationNotFound when nothing was deleted.
func (r *AccommodationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM accommodations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccommodationNotFound
	}
	return nil
}
