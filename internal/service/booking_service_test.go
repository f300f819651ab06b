package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

var (
	alice = model.Identity{UserID: 1}
	bob   = model.Identity{UserID: 2}
	admin = model.Identity{UserID: 99, IsAdmin: true}
)

func newBookingFixture() (*BookingService, *memStore, *recordingPublisher) {
	store := newMemStore()
	pub := &recordingPublisher{}
	return NewBookingService(store, pub, nopLogger{}, 3), store, pub
}

func intp(n int) *int { return &n }
func strp(s string) *string { return &s }
func u64p(n uint64) *uint64 { return &n }

func TestCreateLastRoomsThenReject(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 2})
	ctx := context.Background()

	b, err := svc.Create(ctx, alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 2, Rooms: 2})
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if b.Status != model.StatusConfirmed {
		t.Fatalf("status = %q", b.Status)
	}
	if got := store.remaining(acc)["2024-05-01"]; got != 0 {
		t.Fatalf("remaining after first booking = %d", got)
	}

	_, err = svc.Create(ctx, bob, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 1})
	if !errors.Is(err, ErrInsufficientAvailability) {
		t.Fatalf("expected ErrInsufficientAvailability, got %v", err)
	}
	var ae *AvailabilityError
	if !errors.As(err, &ae) || ae.Date != "2024-05-01" {
		t.Fatalf("expected availability error on 2024-05-01, got %v", err)
	}
	if got := store.remaining(acc)["2024-05-01"]; got != 0 {
		t.Fatalf("remaining after rejected booking = %d", got)
	}
	if len(store.bookings) != 1 {
		t.Fatalf("bookings = %d", len(store.bookings))
	}
}

func TestCreateShortLastNightLeavesMapUntouched(t *testing.T) {
	svc, store, pub := newBookingFixture()
	cal := map[string]int{"2024-06-01": 3, "2024-06-02": 3, "2024-06-03": 1}
	acc := store.seed("Borgo", cal)

	_, err := svc.Create(context.Background(), alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-06-01", Days: 3, Adults: 2, Rooms: 2})
	var ae *AvailabilityError
	if !errors.As(err, &ae) || ae.Date != "2024-06-03" || ae.Left != 1 {
		t.Fatalf("expected short date 2024-06-03 with 1 left, got %v", err)
	}
	if got := store.remaining(acc); !reflect.DeepEqual(got, availability.Map(cal)) {
		t.Fatalf("map changed: %v", got)
	}
	if len(pub.types()) != 0 {
		t.Fatalf("events published for a rejected booking: %v", pub.types())
	}
}

func TestCreateValidatesBeforeTouchingStore(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 5})
	cases := []struct {
		name  string
		in    CreateBookingInput
		field string
	}{
		{"zero rooms", CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 0}, "rooms"},
		{"too long", CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 4, Adults: 1, Rooms: 1}, "days"},
		{"no days", CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 0, Adults: 1, Rooms: 1}, "days"},
		{"no adults", CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 0, Rooms: 1}, "adults"},
		{"negative kids", CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Kids: -1, Rooms: 1}, "kids"},
		{"bad date", CreateBookingInput{AccommodationID: acc, StartDate: "01/05/2024", Days: 1, Adults: 1, Rooms: 1}, "start_date"},
		{"no accommodation", CreateBookingInput{StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 1}, "accommodation_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), alice, tc.in)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
	if store.txCalls != 0 {
		t.Fatalf("store touched %d times", store.txCalls)
	}
}

func TestCreateUnknownAccommodation(t *testing.T) {
	svc, _, _ := newBookingFixture()
	_, err := svc.Create(context.Background(), alice, CreateBookingInput{AccommodationID: 42, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 1})
	if !errors.Is(err, repository.ErrAccommodationNotFound) {
		t.Fatalf("expected ErrAccommodationNotFound, got %v", err)
	}
}

func TestCreateMissingDateIsUnavailable(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 5})
	_, err := svc.Create(context.Background(), alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 2, Adults: 1, Rooms: 1})
	var ae *AvailabilityError
	if !errors.As(err, &ae) || ae.Date != "2024-05-02" {
		t.Fatalf("expected availability error on 2024-05-02, got %v", err)
	}
}

func TestCancelGivesRoomsBack(t *testing.T) {
	svc, store, pub := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-07-01": 2})
	ctx := context.Background()
	b, err := svc.Create(ctx, alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-07-01", Days: 1, Adults: 1, Rooms: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.remaining(acc)["2024-07-01"] != 0 {
		t.Fatalf("expected sold out before cancel")
	}

	got, err := svc.Cancel(ctx, alice, b.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != model.StatusCanceled {
		t.Fatalf("status = %q", got.Status)
	}
	if n := store.remaining(acc)["2024-07-01"]; n != 2 {
		t.Fatalf("remaining after cancel = %d", n)
	}

	if _, err := svc.Cancel(ctx, alice, b.ID); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if n := store.remaining(acc)["2024-07-01"]; n != 2 {
		t.Fatalf("second cancel released rooms again: %d", n)
	}
	if want := []string{queue.BookingConfirmed, queue.BookingCanceled}; !reflect.DeepEqual(pub.types(), want) {
		t.Fatalf("events = %v want %v", pub.types(), want)
	}
}

func TestCancelOtherUsersBookingForbidden(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-07-01": 2})
	b, _ := svc.Create(context.Background(), alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-07-01", Days: 1, Adults: 1, Rooms: 1})
	if _, err := svc.Cancel(context.Background(), bob, b.ID); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Cancel(context.Background(), admin, b.ID); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestEditMovesDates(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 1, "2024-05-02": 1, "2024-05-03": 1})
	ctx := context.Background()
	b, err := svc.Create(ctx, alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Edit(ctx, alice, b.ID, BookingPatch{StartDate: strp("2024-05-02"), Days: intp(2)})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got.StartDate != "2024-05-02" || got.Days != 2 {
		t.Fatalf("edited booking = %+v", got)
	}
	want := availability.Map{"2024-05-01": 1, "2024-05-02": 0, "2024-05-03": 0}
	if m := store.remaining(acc); !reflect.DeepEqual(m, want) {
		t.Fatalf("remaining = %v want %v", m, want)
	}
}

func TestEditCountsOwnRoomsAsFree(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 2})
	ctx := context.Background()
	b, _ := svc.Create(ctx, alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 2})

	if _, err := svc.Edit(ctx, alice, b.ID, BookingPatch{Adults: intp(3), Rooms: intp(2)}); err != nil {
		t.Fatalf("edit keeping rooms: %v", err)
	}
	if n := store.remaining(acc)["2024-05-01"]; n != 0 {
		t.Fatalf("remaining = %d", n)
	}

	_, err := svc.Edit(ctx, alice, b.ID, BookingPatch{Rooms: intp(3)})
	if !errors.Is(err, ErrInsufficientAvailability) {
		t.Fatalf("expected ErrInsufficientAvailability, got %v", err)
	}
	if n := store.remaining(acc)["2024-05-01"]; n != 0 {
		t.Fatalf("failed edit changed remaining to %d", n)
	}
	if got := store.booking(b.ID); got.Rooms != 2 || got.Adults != 3 {
		t.Fatalf("failed edit changed booking: %+v", got)
	}
}

func TestEditRollsBackWhenDecrementLosesRace(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 3, "2024-05-02": 3})
	ctx := context.Background()
	b, _ := svc.Create(ctx, alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 1})
	before := store.remaining(acc)

	store.failOn = "2024-05-02"
	_, err := svc.Edit(ctx, alice, b.ID, BookingPatch{Days: intp(2)})
	var ae *AvailabilityError
	if !errors.As(err, &ae) || ae.Date != "2024-05-02" {
		t.Fatalf("expected availability error on 2024-05-02, got %v", err)
	}
	if after := store.remaining(acc); !reflect.DeepEqual(after, before) {
		t.Fatalf("rollback failed: before %v after %v", before, after)
	}
	if got := store.booking(b.ID); got.Days != 1 {
		t.Fatalf("booking changed: %+v", got)
	}
}

func TestEditPermissions(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 3})
	other := store.seed("Borgo", map[string]int{"2024-05-01": 3})
	ctx := context.Background()
	b, _ := svc.Create(ctx, alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 1})

	if _, err := svc.Edit(ctx, bob, b.ID, BookingPatch{Rooms: intp(2)}); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("other user: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Edit(ctx, alice, b.ID, BookingPatch{Status: strp(model.StatusPending)}); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("status change: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Edit(ctx, alice, b.ID, BookingPatch{AccommodationID: u64p(other)}); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("move: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Edit(ctx, alice, b.ID, BookingPatch{Rooms: intp(0)}); err == nil {
		t.Fatalf("rooms 0 accepted")
	}
}

func TestAdminStatusTransitions(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 3})
	other := store.seed("Borgo", map[string]int{"2024-05-01": 1})
	ctx := context.Background()
	b, _ := svc.Create(ctx, alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 1})

	if _, err := svc.Edit(ctx, admin, b.ID, BookingPatch{Status: strp(model.StatusPending)}); err != nil {
		t.Fatalf("pending: %v", err)
	}
	if n := store.remaining(acc)["2024-05-01"]; n != 2 {
		t.Fatalf("pending must keep its rooms, remaining = %d", n)
	}

	if _, err := svc.Edit(ctx, admin, b.ID, BookingPatch{AccommodationID: u64p(other)}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if store.remaining(acc)["2024-05-01"] != 3 || store.remaining(other)["2024-05-01"] != 0 {
		t.Fatalf("move did not transfer rooms: %v %v", store.remaining(acc), store.remaining(other))
	}

	if _, err := svc.Edit(ctx, admin, b.ID, BookingPatch{Status: strp(model.StatusCanceled)}); err != nil {
		t.Fatalf("cancel via edit: %v", err)
	}
	if n := store.remaining(other)["2024-05-01"]; n != 1 {
		t.Fatalf("canceled booking kept rooms, remaining = %d", n)
	}

	if _, err := svc.Edit(ctx, alice, b.ID, BookingPatch{Adults: intp(2)}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("owner edit of canceled booking: expected ErrConflict, got %v", err)
	}

	if _, err := svc.Edit(ctx, admin, b.ID, BookingPatch{Status: strp(model.StatusConfirmed)}); err != nil {
		t.Fatalf("reconfirm: %v", err)
	}
	if n := store.remaining(other)["2024-05-01"]; n != 0 {
		t.Fatalf("reconfirmed booking did not take rooms, remaining = %d", n)
	}
}

func TestDeleteRestoresRooms(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 2, "2024-05-02": 2})
	ctx := context.Background()
	b, _ := svc.Create(ctx, alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 2, Adults: 1, Rooms: 2})

	if err := svc.Delete(ctx, alice, b.ID); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("non-admin delete: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, admin, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if m := store.remaining(acc); m["2024-05-01"] != 2 || m["2024-05-02"] != 2 {
		t.Fatalf("rooms not restored: %v", m)
	}
	if err := svc.Delete(ctx, admin, b.ID); !errors.Is(err, repository.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestListsAndGet(t *testing.T) {
	svc, store, _ := newBookingFixture()
	store.users[1] = model.User{ID: 1, FirstName: "Alice", Email: "alice@example.com"}
	store.users[2] = model.User{ID: 2, FirstName: "Bob", Email: "bob@example.com"}
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 5})
	ctx := context.Background()
	a1, _ := svc.Create(ctx, alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 1})
	_, _ = svc.Create(ctx, bob, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 1})

	mine, err := svc.ListMine(ctx, alice)
	if err != nil || len(mine) != 1 || mine[0].AccommodationName != "Aurora" {
		t.Fatalf("list mine = %+v, %v", mine, err)
	}
	if _, err := svc.ListAll(ctx, alice, ""); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	all, err := svc.ListAll(ctx, admin, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("list all = %d, %v", len(all), err)
	}
	filtered, err := svc.ListAll(ctx, admin, "Bob@example.com")
	if err != nil || len(filtered) != 1 || filtered[0].UserFirstName != "Bob" {
		t.Fatalf("filtered = %+v, %v", filtered, err)
	}
	if _, err := svc.Get(ctx, bob, a1.ID); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if v, err := svc.Get(ctx, admin, a1.ID); err != nil || v.UserEmail != "alice@example.com" {
		t.Fatalf("admin get = %+v, %v", v, err)
	}
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	svc, store, pub := newBookingFixture()
	pub.err = errors.New("broker down")
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 1})
	if _, err := svc.Create(context.Background(), alice, CreateBookingInput{AccommodationID: acc, StartDate: "2024-05-01", Days: 1, Adults: 1, Rooms: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.remaining(acc)["2024-05-01"] != 0 {
		t.Fatalf("booking not applied")
	}
}

func TestConcurrentCreatesNeverOversell(t *testing.T) {
	svc, store, _ := newBookingFixture()
	acc := store.seed("Aurora", map[string]int{"2024-05-01": 5, "2024-05-02": 5})
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), model.Identity{UserID: uid}, CreateBookingInput{
				AccommodationID: acc, StartDate: "2024-05-01", Days: 2, Adults: 1, Rooms: 1,
			})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(uint64(i + 1))
	}
	wg.Wait()
	if ok != 5 {
		t.Fatalf("successful bookings = %d, want 5", ok)
	}
	if m := store.remaining(acc); m["2024-05-01"] != 0 || m["2024-05-02"] != 0 {
		t.Fatalf("remaining = %v", m)
	}
}

func TestDefaultMaxStay(t *testing.T) {
	if got := NewBookingService(newMemStore(), nil, nopLogger{}, 0).MaxStayDays(); got != DefaultMaxStayDays {
		t.Fatalf("max stay = %d", got)
	}
}
