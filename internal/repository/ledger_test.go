package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/hotel-booking/internal/model"
)

func newMock(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewLedger(db), mock
}

func TestReserveStopsOnExhaustedDate(t *testing.T) {
	l, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accommodation_availability").
		WithArgs(2, 7, "2024-06-01", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accommodation_availability").
		WithArgs(2, 7, "2024-06-02", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := l.InTx(context.Background(), func(tx Tx) error {
		return tx.Reserve(context.Background(), 7, []string{"2024-06-01", "2024-06-02", "2024-06-03"}, 2)
	})
	var exhausted *RoomsExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RoomsExhaustedError, got %v", err)
	}
	if exhausted.Date != "2024-06-02" {
		t.Fatalf("exhausted date = %q", exhausted.Date)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInTxCommitsBookingAndDecrement(t *testing.T) {
	l, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM accommodations").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery("FROM accommodation_availability").WithArgs(3, "2024-05-01").
		WillReturnRows(sqlmock.NewRows([]string{"stay_date", "rooms_left"}).AddRow("2024-05-01", 2))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(11, 3, "2024-05-01", 1, 2, 0, 2, model.StatusConfirmed).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("UPDATE accommodation_availability").
		WithArgs(2, 3, "2024-05-01", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := &model.Booking{UserID: 11, AccommodationID: 3, StartDate: "2024-05-01", Days: 1, Adults: 2, Rooms: 2, Status: model.StatusConfirmed}
	err := l.InTx(context.Background(), func(tx Tx) error {
		ctx := context.Background()
		if err := tx.AccommodationExists(ctx, 3); err != nil {
			return err
		}
		snap, err := tx.LockAvailability(ctx, 3, []string{"2024-05-01"})
		if err != nil {
			return err
		}
		if snap["2024-05-01"] != 2 {
			t.Fatalf("snapshot = %v", snap)
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		return tx.Reserve(ctx, 3, []string{"2024-05-01"}, 2)
	})
	if err != nil {
		t.Fatalf("in tx: %v", err)
	}
	if b.ID != 42 {
		t.Fatalf("booking id = %d", b.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccommodationExistsNotFound(t *testing.T) {
	l, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM accommodations").WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := l.InTx(context.Background(), func(tx Tx) error {
		return tx.AccommodationExists(context.Background(), 9)
	})
	if !errors.Is(err, ErrAccommodationNotFound) {
		t.Fatalf("expected ErrAccommodationNotFound, got %v", err)
	}
}

func TestGetBookingForUpdateNotFound(t *testing.T) {
	l, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings b WHERE b.id = \\? FOR UPDATE").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := l.InTx(context.Background(), func(tx Tx) error {
		_, err := tx.GetBookingForUpdate(context.Background(), 5)
		return err
	})
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestListAccommodationsAttachesCalendar(t *testing.T) {
	l, mock := newMock(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM accommodations WHERE category = \\? AND location = \\?").
		WithArgs("hotel", "Rome").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "category", "image_url", "created_at", "updated_at"}).
			AddRow(1, "Aurora", "Rome", "hotel", "https://img/1.jpg", now, now).
			AddRow(2, "Borgo", "Rome", "hotel", "https://img/2.jpg", now, now))
	mock.ExpectQuery("FROM accommodation_availability").WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"accommodation_id", "stay_date", "capacity", "rooms_left"}).
			AddRow(1, "2024-05-01", 3, 1).
			AddRow(1, "2024-05-02", 3, 3).
			AddRow(2, "2024-05-01", 2, 0))

	list, err := l.ListAccommodations(context.Background(), model.AccommodationFilter{Category: "hotel", Location: "Rome"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d", len(list))
	}
	if !reflect.DeepEqual(list[0].Availability, map[string]int{"2024-05-01": 1, "2024-05-02": 3}) {
		t.Fatalf("availability[0] = %v", list[0].Availability)
	}
	if list[1].Availability["2024-05-01"] != 0 || list[1].Capacity["2024-05-01"] != 2 {
		t.Fatalf("calendar[1] = %v / %v", list[1].Availability, list[1].Capacity)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListAccommodationsEmpty(t *testing.T) {
	l, mock := newMock(t)
	mock.ExpectQuery("FROM accommodations ORDER BY name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "category", "image_url", "created_at", "updated_at"}))

	list, err := l.ListAccommodations(context.Background(), model.AccommodationFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", list)
	}
}

func TestDeleteBookingMissing(t *testing.T) {
	l, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM bookings").WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := l.InTx(context.Background(), func(tx Tx) error {
		return tx.DeleteBooking(context.Background(), 8)
	})
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}
