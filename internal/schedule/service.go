package schedule

import "time"

// Service is a bookable offering of a business.
type Service struct {
	ID              string `json:"id"`
	BusinessID      string `json:"business_id"`
	Name            string `json:"name"`
	BasePriceCents  int64  `json:"base_price_cents"`
	DurationMinutes int    `json:"duration_minutes"`
	// Capacity is the number of concurrent bookings allowed per slot; 0 means unlimited.
	Capacity int `json:"capacity"`
	// Schedule overrides business hours per weekday. A weekday absent from the
	// map falls back to the business; a weekday present with an empty list is
	// not offered at all.
	Schedule        map[string][]string `json:"schedule,omitempty"`
	PricesByWeekday map[string]int64    `json:"prices_by_weekday,omitempty"`
	Active          bool                `json:"active"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// ScheduleFor returns the override labels for a weekday and whether an override exists.
func (s *Service) ScheduleFor(weekday string) ([]string, bool) {
	if s == nil || s.Schedule == nil {
		return nil, false
	}
	labels, ok := s.Schedule[weekday]
	return labels, ok
}

// Unlimited reports whether the service accepts any number of bookings per slot.
func (s *Service) Unlimited() bool {
	return s.Capacity <= 0
}

// PriceFor returns the weekday price override, or the base price.
func PriceFor(service *Service, weekday string) int64 {
	if service == nil {
		return 0
	}
	if price, ok := service.PricesByWeekday[weekday]; ok {
		return price
	}
	return service.BasePriceCents
}
