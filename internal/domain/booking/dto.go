package booking

// ReservationRequest is the tenant-admin direct reservation body.
type ReservationRequest struct {
	Kind           Kind   `json:"kind"`
	CheckIn        string `json:"check_in" binding:"required"`
	CheckOut       string `json:"check_out"`
	GuestFirstName string `json:"guest_first_name" binding:"required"`
	GuestLastName  string `json:"guest_last_name" binding:"required"`
	GuestEmail     string `json:"guest_email" binding:"required,email"`
	GuestPhone     string `json:"guest_phone"`
	Locale         string `json:"locale"`
	Adults         int    `json:"adults" binding:"omitempty,min=1"`
	Children       int    `json:"children" binding:"omitempty,min=0"`
	AddonsMinor    int64  `json:"addons_minor" binding:"omitempty,min=0"`
}

type AvailabilityResponse struct {
	ResourceID int64  `json:"resource_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Available  bool   `json:"available"`
}

type OccupancyResponse struct {
	ResourceID int64  `json:"resource_id"`
	AsOf       string `json:"as_of"`
	Free       bool   `json:"free"`
}
