package models

import (
	"testing"
)

func int64Ptr(v int64) *int64       { return &v }
func float32Ptr(v float32) *float32 { return &v }

func validProduct(t *testing.T, cost *float32) *Product {
	t.Helper()
	p, err := NewProduct(
		"widget",
		Coordinates{X: 10, Y: 2.5},
		int64Ptr(100),
		"PN-1",
		cost,
		UnitCentimeters,
		nil,
		1,
	)
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	return p
}

func TestNewProduct(t *testing.T) {
	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProduct("", Coordinates{X: 0}, nil, "PN", nil, UnitGrams, nil, 1)
		if err == nil {
			t.Fatal("expected error for empty name")
		}
	})

	t.Run("rejects x at the boundary", func(t *testing.T) {
		_, err := NewProduct("w", Coordinates{X: MinCoordinateX}, nil, "PN", nil, UnitGrams, nil, 1)
		if err == nil {
			t.Fatalf("expected error for x = %d", MinCoordinateX)
		}
	})

	t.Run("accepts x just above the boundary", func(t *testing.T) {
		_, err := NewProduct("w", Coordinates{X: MinCoordinateX + 1}, nil, "PN", nil, UnitGrams, nil, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		_, err := NewProduct("w", Coordinates{X: 0}, int64Ptr(0), "PN", nil, UnitGrams, nil, 1)
		if err == nil {
			t.Fatal("expected error for zero price")
		}
	})

	t.Run("allows absent price", func(t *testing.T) {
		p, err := NewProduct("w", Coordinates{X: 0}, nil, "PN", nil, UnitGrams, nil, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Price != nil {
			t.Fatal("price should stay nil")
		}
	})

	t.Run("rejects unknown unit", func(t *testing.T) {
		_, err := NewProduct("w", Coordinates{X: 0}, nil, "PN", nil, UnitOfMeasure("FURLONGS"), nil, 1)
		if err == nil {
			t.Fatal("expected error for unknown unit")
		}
	})
}

func TestProductCompare(t *testing.T) {
	cases := []struct {
		name string
		a, b *float32
		want int
	}{
		{"both absent compare equal", nil, nil, 0},
		{"absent sorts before present", nil, float32Ptr(1), -1},
		{"present sorts after absent", float32Ptr(1), nil, 1},
		{"smaller cost first", float32Ptr(1), float32Ptr(2), -1},
		{"larger cost last", float32Ptr(2), float32Ptr(1), 1},
		{"equal costs compare equal", float32Ptr(3), float32Ptr(3), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := validProduct(t, tc.a)
			b := validProduct(t, tc.b)
			if got := a.Compare(b); got != tc.want {
				t.Errorf("Compare() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestProductClone(t *testing.T) {
	p := validProduct(t, float32Ptr(5))
	p.Manufacturer = &Organization{ID: 1, Name: "acme", FullName: "Acme Corp", EmployeesCount: 10, CreatorID: 1}

	c := p.Clone()
	*c.Price = 999
	*c.ManufactureCost = 999
	c.Manufacturer.Name = "changed"

	if *p.Price == 999 || *p.ManufactureCost == 999 {
		t.Error("clone aliases pointer fields")
	}
	if p.Manufacturer.Name == "changed" {
		t.Error("clone aliases manufacturer")
	}
}

func TestParseUnit(t *testing.T) {
	t.Run("case insensitive", func(t *testing.T) {
		u, err := ParseUnit("liters")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u != UnitLiters {
			t.Errorf("got %s, want %s", u, UnitLiters)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseUnit("GALLONS"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestHashPassword(t *testing.T) {
	h1 := HashPassword("secret")
	h2 := HashPassword("secret")
	if h1 != h2 {
		t.Error("hash must be deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("got %d hex chars, want 64", len(h1))
	}
	if h1 == HashPassword("other") {
		t.Error("different passwords must hash differently")
	}
}
