package models

import (
	"fmt"
	"strings"
)

// UnitOfMeasure enumerates the fixed measurement units a product may carry.
type UnitOfMeasure string

const (
	UnitCentimeters UnitOfMeasure = "CENTIMETERS"
	UnitLiters      UnitOfMeasure = "LITERS"
	UnitGrams       UnitOfMeasure = "GRAMS"
)

// Units lists all valid units in declaration order.
func Units() []UnitOfMeasure {
	return []UnitOfMeasure{UnitCentimeters, UnitLiters, UnitGrams}
}

// UnitNames returns the valid unit names joined for error messages.
func UnitNames() string {
	units := Units()
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = string(u)
	}
	return strings.Join(names, ", ")
}

// ParseUnit converts s (case-insensitive) into a UnitOfMeasure.
func ParseUnit(s string) (UnitOfMeasure, error) {
	u := UnitOfMeasure(strings.ToUpper(strings.TrimSpace(s)))
	switch u {
	case UnitCentimeters, UnitLiters, UnitGrams:
		return u, nil
	}
	return "", fmt.Errorf("invalid unit of measure %q, valid values: %s", s, UnitNames())
}

// String returns the canonical name.
func (u UnitOfMeasure) String() string {
	return string(u)
}
