package service

import (
	"context"
	"strings"
	"sync"

	"github.com/iliyamo/hotel-booking/internal/availability"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// memStore is an in-memory Store.  InTx holds the lock for the whole
// callback and restores a snapshot when the callback fails, which gives the
// same all-or-nothing behaviour as a database transaction.
type memStore struct {
	mu        sync.Mutex
	nextAcc   uint64
	nextBook  uint64
	accs      map[uint64]*model.Accommodation
	bookings  map[uint64]*model.Booking
	users     map[uint64]model.User
	txCalls   int
	failOn    string // Reserve reports this date as exhausted
	lastError error
}

func newMemStore() *memStore {
	return &memStore{
		accs:     map[uint64]*model.Accommodation{},
		bookings: map[uint64]*model.Booking{},
		users:    map[uint64]model.User{},
	}
}

func cloneAcc(a *model.Accommodation) *model.Accommodation {
	c := *a
	c.Availability = availability.Map(a.Availability).Clone()
	c.Capacity = availability.Map(a.Capacity).Clone()
	return &c
}

// seed adds an accommodation whose remaining rooms equal its capacity.
func (s *memStore) seed(name string, cal map[string]int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAcc++
	s.accs[s.nextAcc] = &model.Accommodation{
		ID: s.nextAcc, Name: name, Location: "Rome", Category: "hotel", ImageURL: "https://img.example/1.jpg",
		Availability: availability.Map(cal).Clone(), Capacity: availability.Map(cal).Clone(),
	}
	return s.nextAcc
}

func (s *memStore) remaining(accID uint64) availability.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return availability.Map(s.accs[accID].Availability).Clone()
}

func (s *memStore) booking(id uint64) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.bookings[id]
}

func (s *memStore) InTx(ctx context.Context, fn func(repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCalls++
	accs := make(map[uint64]*model.Accommodation, len(s.accs))
	for id, a := range s.accs {
		accs[id] = cloneAcc(a)
	}
	bookings := make(map[uint64]*model.Booking, len(s.bookings))
	for id, b := range s.bookings {
		c := *b
		bookings[id] = &c
	}
	nextAcc, nextBook := s.nextAcc, s.nextBook
	if err := fn(memTx{s}); err != nil {
		s.accs, s.bookings, s.nextAcc, s.nextBook = accs, bookings, nextAcc, nextBook
		s.lastError = err
		return err
	}
	return nil
}

func (s *memStore) GetAccommodation(ctx context.Context, id uint64) (*model.Accommodation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accs[id]
	if !ok {
		return nil, repository.ErrAccommodationNotFound
	}
	return cloneAcc(a), nil
}

func (s *memStore) ListAccommodations(ctx context.Context, f model.AccommodationFilter) ([]model.Accommodation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Accommodation{}
	for id := uint64(1); id <= s.nextAcc; id++ {
		a, ok := s.accs[id]
		if !ok {
			continue
		}
		if (f.Category == "" || a.Category == f.Category) && (f.Location == "" || a.Location == f.Location) {
			out = append(out, *cloneAcc(a))
		}
	}
	return out, nil
}

func (s *memStore) view(b *model.Booking) model.BookingView {
	v := model.BookingView{Booking: *b}
	if a, ok := s.accs[b.AccommodationID]; ok {
		v.AccommodationName, v.Category = a.Name, a.Category
	}
	if u, ok := s.users[b.UserID]; ok {
		v.UserFirstName, v.UserEmail = u.FirstName, u.Email
	}
	return v
}

func (s *memStore) GetBooking(ctx context.Context, id uint64) (*model.BookingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	v := s.view(b)
	return &v, nil
}

func (s *memStore) listWhere(keep func(*model.Booking) bool) []model.BookingView {
	out := []model.BookingView{}
	for id := s.nextBook; id >= 1; id-- {
		if b, ok := s.bookings[id]; ok && keep(b) {
			out = append(out, s.view(b))
		}
	}
	return out
}

func (s *memStore) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.BookingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listWhere(func(b *model.Booking) bool { return b.UserID == userID }), nil
}

func (s *memStore) ListBookings(ctx context.Context, email string) ([]model.BookingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	return s.listWhere(func(b *model.Booking) bool {
		return email == "" || s.users[b.UserID].Email == email
	}), nil
}

// memTx runs with memStore.mu held.
type memTx struct{ s *memStore }

func (t memTx) acc(id uint64) (*model.Accommodation, error) {
	a, ok := t.s.accs[id]
	if !ok {
		return nil, repository.ErrAccommodationNotFound
	}
	return a, nil
}

func (t memTx) AccommodationExists(ctx context.Context, id uint64) error {
	_, err := t.acc(id)
	return err
}

func (t memTx) LockAccommodation(ctx context.Context, id uint64) (*model.Accommodation, error) {
	a, err := t.acc(id)
	if err != nil {
		return nil, err
	}
	c := *a
	c.Availability, c.Capacity = nil, nil
	return &c, nil
}

func (t memTx) CreateAccommodation(ctx context.Context, a *model.Accommodation) error {
	t.s.nextAcc++
	a.ID = t.s.nextAcc
	c := cloneAcc(a)
	c.Capacity = availability.Map(a.Availability).Clone()
	t.s.accs[a.ID] = c
	return nil
}

func (t memTx) UpdateAccommodation(ctx context.Context, a *model.Accommodation) error {
	cur, err := t.acc(a.ID)
	if err != nil {
		return err
	}
	cur.Name, cur.Location, cur.Category, cur.ImageURL = a.Name, a.Location, a.Category, a.ImageURL
	return nil
}

func (t memTx) DeleteAccommodation(ctx context.Context, id uint64) error {
	if _, err := t.acc(id); err != nil {
		return err
	}
	delete(t.s.accs, id)
	for bid, b := range t.s.bookings {
		if b.AccommodationID == id {
			delete(t.s.bookings, bid)
		}
	}
	return nil
}

func (t memTx) LockAvailability(ctx context.Context, id uint64, dates []string) (availability.Map, error) {
	a, err := t.acc(id)
	if err != nil {
		return nil, err
	}
	out := availability.Map{}
	for _, d := range dates {
		if n, ok := a.Availability[d]; ok {
			out[d] = n
		}
	}
	return out, nil
}

func (t memTx) LockCalendar(ctx context.Context, id uint64) (availability.Map, availability.Map, error) {
	a, err := t.acc(id)
	if err != nil {
		return nil, nil, err
	}
	return availability.Map(a.Capacity).Clone(), availability.Map(a.Availability).Clone(), nil
}

func (t memTx) Reserve(ctx context.Context, id uint64, dates []string, rooms int) error {
	a, err := t.acc(id)
	if err != nil {
		return err
	}
	for _, d := range dates {
		n, ok := a.Availability[d]
		if !ok || n < rooms || d == t.s.failOn {
			return &repository.RoomsExhaustedError{Date: d}
		}
		a.Availability[d] = n - rooms
	}
	return nil
}

func (t memTx) Release(ctx context.Context, id uint64, dates []string, rooms int) error {
	a, err := t.acc(id)
	if err != nil {
		return err
	}
	for _, d := range dates {
		if _, ok := a.Availability[d]; ok {
			a.Availability[d] += rooms
		}
	}
	return nil
}

func (t memTx) UpsertDate(ctx context.Context, id uint64, date string, capacity, roomsLeft int) error {
	a, err := t.acc(id)
	if err != nil {
		return err
	}
	a.Capacity[date], a.Availability[date] = capacity, roomsLeft
	return nil
}

func (t memTx) SetRemaining(ctx context.Context, id uint64, date string, roomsLeft int) error {
	a, err := t.acc(id)
	if err != nil {
		return err
	}
	a.Availability[date] = roomsLeft
	return nil
}

func (t memTx) DeleteDate(ctx context.Context, id uint64, date string) error {
	a, err := t.acc(id)
	if err != nil {
		return err
	}
	delete(a.Availability, date)
	delete(a.Capacity, date)
	return nil
}

func (t memTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	t.s.nextBook++
	b.ID = t.s.nextBook
	c := *b
	t.s.bookings[b.ID] = &c
	return nil
}

func (t memTx) GetBookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	c := *b
	return &c, nil
}

func (t memTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	if _, ok := t.s.bookings[b.ID]; !ok {
		return repository.ErrBookingNotFound
	}
	c := *b
	t.s.bookings[b.ID] = &c
	return nil
}

func (t memTx) DeleteBooking(ctx context.Context, id uint64) error {
	if _, ok := t.s.bookings[id]; !ok {
		return repository.ErrBookingNotFound
	}
	delete(t.s.bookings, id)
	return nil
}

func (t memTx) ActiveHolds(ctx context.Context, id uint64) ([]availability.Hold, error) {
	var out []availability.Hold
	for _, b := range t.s.bookings {
		if b.AccommodationID == id && b.HoldsRooms() {
			out = append(out, availability.Hold{StartDate: b.StartDate, Days: b.Days, Rooms: b.Rooms})
		}
	}
	return out, nil
}

func (t memTx) CountActiveBookings(ctx context.Context, id uint64) (int, error) {
	n := 0
	for _, b := range t.s.bookings {
		if b.AccommodationID == id && b.HoldsRooms() {
			n++
		}
	}
	return n, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{}) {}
