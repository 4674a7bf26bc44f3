package models

import "time"

// Party types. A "both" party can list rice and search for it.
const (
	PartyBuyer  = "buyer"
	PartySeller = "seller"
	PartyBoth   = "both"
)

// Party is a registered buyer or seller. Latitude and Longitude are nil when
// the location could not be geocoded; distance features are disabled then.
type Party struct {
	ID        int64     `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Mobile    string    `db:"mobile" json:"mobile"`
	Location  string    `db:"location" json:"location"`
	Latitude  *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64  `db:"longitude" json:"longitude,omitempty"`
	UserType  string    `db:"user_type" json:"user_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasCoordinates reports whether both coordinates are known.
func (p *Party) HasCoordinates() bool {
	return p != nil && p.Latitude != nil && p.Longitude != nil
}

// IsSeller reports whether the party may own listings.
func (p *Party) IsSeller() bool {
	return p != nil && (p.UserType == PartySeller || p.UserType == PartyBoth)
}

// Contact is what a buyer gets to reach a seller.
type Contact struct {
	PartyID  int64  `json:"party_id"`
	FullName string `json:"full_name"`
	Mobile   string `json:"mobile"`
	Location string `json:"location,omitempty"`
}
