package domain

// Address is a delivery address in the customer's address book.
type Address struct {
	ID           string   `json:"id"`
	Label        string   `json:"label" validate:"required"`
	Street       string   `json:"street" validate:"required"`
	City         string   `json:"city" validate:"required"`
	PostalCode   string   `json:"postalCode"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	Instructions string   `json:"instructions,omitempty"`
	IsDefault    bool     `json:"isDefault"`
}

// Coordinates returns the geocoded position if the address has one.
func (a Address) Coordinates() (Coordinates, bool) {
	if a.Latitude == nil || a.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *a.Latitude, Longitude: *a.Longitude}, true
}

// Clone returns a copy that shares no pointers with a.
func (a Address) Clone() Address {
	if a.Latitude != nil {
		lat := *a.Latitude
		a.Latitude = &lat
	}
	if a.Longitude != nil {
		lng := *a.Longitude
		a.Longitude = &lng
	}
	return a
}

// AddressPatch carries the fields of an in-place address update. Nil fields are left untouched.
type AddressPatch struct {
	Label        *string  `json:"label,omitempty"`
	Street       *string  `json:"street,omitempty"`
	City         *string  `json:"city,omitempty"`
	PostalCode   *string  `json:"postalCode,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Instructions *string  `json:"instructions,omitempty"`
}

// Apply merges the patch into a.
func (p AddressPatch) Apply(a *Address) {
	if p.Label != nil {
		a.Label = *p.Label
	}
	if p.Street != nil {
		a.Street = *p.Street
	}
	if p.City != nil {
		a.City = *p.City
	}
	if p.PostalCode != nil {
		a.PostalCode = *p.PostalCode
	}
	if p.Latitude != nil {
		lat := *p.Latitude
		a.Latitude = &lat
	}
	if p.Longitude != nil {
		lng := *p.Longitude
		a.Longitude = &lng
	}
	if p.Instructions != nil {
		a.Instructions = *p.Instructions
	}
}
