package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingType is the kind of property offered.
type ListingType string

const (
	ListingApartment ListingType = "apartment"
	ListingHouse     ListingType = "house"
	ListingRoom      ListingType = "room"
	ListingHotel     ListingType = "hotel"
)

// ListingTypes lists every accepted ListingType in input order.
var ListingTypes = []ListingType{ListingApartment, ListingHouse, ListingRoom, ListingHotel}

// OwnerType distinguishes regular hosts from professional ones.
type OwnerType string

const (
	OwnerRegular OwnerType = "regular"
	OwnerPro     OwnerType = "pro"
)

// OwnerTypes lists every accepted OwnerType.
var OwnerTypes = []OwnerType{OwnerRegular, OwnerPro}

// Feature is an amenity from a closed vocabulary.
type Feature string

const (
	FeatureBreakfast       Feature = "Breakfast"
	FeatureAirConditioning Feature = "Air conditioning"
	FeatureWorkspace       Feature = "Laptop friendly workspace"
	FeatureBabySeat        Feature = "Baby seat"
	FeatureWasher          Feature = "Washer"
	FeatureTowels          Feature = "Towels"
	FeatureFridge          Feature = "Fridge"
)

// Features lists the full amenity vocabulary in input order.
var Features = []Feature{
	FeatureBreakfast,
	FeatureAirConditioning,
	FeatureWorkspace,
	FeatureBabySeat,
	FeatureWasher,
	FeatureTowels,
	FeatureFridge,
}

// PhotoCount is the number of gallery photos every listing carries.
const PhotoCount = 6

type Coordinates struct {
	Latitude  float64 `validate:"min=-90,max=90"`
	Longitude float64 `validate:"min=-180,max=180"`
}

// OwnerProfile is the owner data embedded in an input record. Owners are
// identified by exact, case-sensitive email.
type OwnerProfile struct {
	Name   string    `validate:"min=1,max=15"`
	Email  string    `validate:"required,email"`
	Avatar string    `validate:"omitempty,max=256"`
	Type   OwnerType `validate:"required"`
}

// ListingRecord is one parsed input line. It is produced by the parser and
// consumed once by the importer.
type ListingRecord struct {
	Name         string   `validate:"min=10,max=100"`
	Description  string   `validate:"min=20,max=1024"`
	City         string   `validate:"required"`
	PreviewPhoto string   `validate:"required"`
	Photos       []string `validate:"len=6,dive,required"`
	Premium      bool
	Type         ListingType `validate:"required"`
	Rooms        int         `validate:"min=1,max=8"`
	Guests       int         `validate:"min=1,max=10"`
	Price        float64     `validate:"min=100,max=100000"`
	Features     []Feature   `validate:"min=1,unique"`
	Location     Coordinates
	Owner        OwnerProfile
}

// Owner is a persisted owner account.
type Owner struct {
	ID uuid.UUID
	OwnerProfile
	PasswordHash string
	CreatedAt    time.Time
}

// Listing is a persisted rental offer.
type Listing struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Name         string
	Description  string
	City         string
	PreviewPhoto string
	Photos       []string
	Premium      bool
	Type         ListingType
	Rooms        int
	Guests       int
	Price        float64
	Features     []Feature
	Location     Coordinates
	CreatedAt    time.Time
}

// NewListing builds the listing to persist for rec under ownerID.
func NewListing(rec *ListingRecord, ownerID uuid.UUID) *Listing {
	return &Listing{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Name:         rec.Name,
		Description:  rec.Description,
		City:         rec.City,
		PreviewPhoto: rec.PreviewPhoto,
		Photos:       append([]string(nil), rec.Photos...),
		Premium:      rec.Premium,
		Type:         rec.Type,
		Rooms:        rec.Rooms,
		Guests:       rec.Guests,
		Price:        rec.Price,
		Features:     append([]Feature(nil), rec.Features...),
		Location:     rec.Location,
		CreatedAt:    time.Now(),
	}
}

// FeatureStrings returns the features as plain strings for storage.
func (l *Listing) FeatureStrings() []string {
	out := make([]string, len(l.Features))
	for i, f := range l.Features {
		out[i] = string(f)
	}
	return out
}
