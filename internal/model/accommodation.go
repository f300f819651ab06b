package model

import "time"

// Accommodation is a bookable property listed by an administrator.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name.
//  Location     – city or area, used as an equality filter.
//  Category     – property type (hotel, hostel, ...), used as an equality filter.
//  ImageURL     – link to the listing image.
//  Availability – remaining rooms per date ("YYYY-MM-DD").
//  Capacity     – nominal rooms offered per date; never changed by bookings.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Accommodation struct {
	ID           uint64         `json:"id"`
	Name         string         `json:"name"`
	Location     string         `json:"location"`
	Category     string         `json:"category"`
	ImageURL     string         `json:"image_url"`
	Availability map[string]int `json:"availability"`
	Capacity     map[string]int `json:"capacity,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// AccommodationFilter narrows a listing by exact category and/or location.
// Empty fields are ignored.
type AccommodationFilter struct {
	Category string
	Location string
}
