package models

import (
	"fmt"
	"time"
)

// MinCoordinateX is the exclusive lower bound for Coordinates.X.
const MinCoordinateX = -349

// Coordinates is the 2D position attached to every product.
type Coordinates struct {
	X int64   `json:"x"` // must be strictly greater than MinCoordinateX
	Y float32 `json:"y"`
}

// Product is the core aggregate of the catalog. ID and CreationDate are
// assigned by the persistence layer on create and never change afterwards;
// CreatorID never changes either and decides mutation rights.
type Product struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Coordinates     Coordinates   `json:"coordinates"`
	CreationDate    time.Time     `json:"creation_date"`
	Price           *int64        `json:"price,omitempty"`            // nil or > 0
	PartNumber      string        `json:"part_number"`                // unique, non-empty
	ManufactureCost *float32      `json:"manufacture_cost,omitempty"` // optional; the ordering key
	Unit            UnitOfMeasure `json:"unit_of_measure"`
	Manufacturer    *Organization `json:"manufacturer,omitempty"`
	CreatorID       int64         `json:"creator_id"`
}

// NewProduct constructs an unpersisted Product (zero ID, zero CreationDate)
// and enforces the structural field constraints.
func NewProduct(
	name string,
	coords Coordinates,
	price *int64,
	partNumber string,
	manufactureCost *float32,
	unit UnitOfMeasure,
	manufacturer *Organization,
	creatorID int64,
) (*Product, error) {
	if name == "" {
		return nil, fmt.Errorf("product name must not be empty")
	}
	if coords.X <= MinCoordinateX {
		return nil, fmt.Errorf("coordinate x must be greater than %d", MinCoordinateX)
	}
	if price != nil && *price <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}
	if partNumber == "" {
		return nil, fmt.Errorf("part number must not be empty")
	}
	if _, err := ParseUnit(string(unit)); err != nil {
		return nil, err
	}
	if creatorID <= 0 {
		return nil, fmt.Errorf("creator id must be positive")
	}
	return &Product{
		Name:            name,
		Coordinates:     coords,
		Price:           price,
		PartNumber:      partNumber,
		ManufactureCost: manufactureCost,
		Unit:            unit,
		Manufacturer:    manufacturer,
		CreatorID:       creatorID,
	}, nil
}

// Compare orders products by manufacture cost ascending. A product without a
// cost sorts before every product with one; two absent costs compare equal.
func (p *Product) Compare(other *Product) int {
	switch {
	case p.ManufactureCost == nil && other.ManufactureCost == nil:
		return 0
	case p.ManufactureCost == nil:
		return -1
	case other.ManufactureCost == nil:
		return 1
	case *p.ManufactureCost < *other.ManufactureCost:
		return -1
	case *p.ManufactureCost > *other.ManufactureCost:
		return 1
	default:
		return 0
	}
}

// Less reports whether p sorts strictly before other.
func (p *Product) Less(other *Product) bool {
	return p.Compare(other) < 0
}

// Clone returns a deep copy so snapshot readers can never alias store state.
func (p *Product) Clone() *Product {
	c := *p
	if p.Price != nil {
		v := *p.Price
		c.Price = &v
	}
	if p.ManufactureCost != nil {
		v := *p.ManufactureCost
		c.ManufactureCost = &v
	}
	if p.Manufacturer != nil {
		org := *p.Manufacturer
		c.Manufacturer = &org
	}
	return &c
}

func (p *Product) String() string {
	price := "-"
	if p.Price != nil {
		price = fmt.Sprintf("%d", *p.Price)
	}
	cost := "-"
	if p.ManufactureCost != nil {
		cost = fmt.Sprintf("%g", *p.ManufactureCost)
	}
	manufacturer := "-"
	if p.Manufacturer != nil {
		manufacturer = p.Manufacturer.Name
	}
	return fmt.Sprintf(
		"Product[id=%d name=%q coords=(%d, %g) created=%s price=%s part=%q cost=%s unit=%s manufacturer=%s creator=%d]",
		p.ID, p.Name, p.Coordinates.X, p.Coordinates.Y, p.CreationDate.Format(time.RFC3339),
		price, p.PartNumber, cost, p.Unit, manufacturer, p.CreatorID,
	)
}
