// Package services contains stateless domain services for the catalog
// bounded context. Domain services enforce business rules that operate purely
// on domain types and have zero external dependencies beyond stdlib and the
// domain layer.
package services

import (
	"fmt"
	"unicode"

	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

// ValidateProductForWrite performs cross-field validation on a
// fully-constructed Product before it is persisted. It assumes the Product
// was built via models.NewProduct (so structural constraints are already
// satisfied) and adds checks that span multiple fields or nested entities.
func ValidateProductForWrite(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("product cannot be nil")
	}

	if err := validateText("product name", p.Name); err != nil {
		return err
	}
	if err := validateText("part number", p.PartNumber); err != nil {
		return err
	}

	if p.Manufacturer != nil {
		m := p.Manufacturer
		if err := validateText("organization name", m.Name); err != nil {
			return err
		}
		if err := validateText("organization full name", m.FullName); err != nil {
			return err
		}
		if m.CreatorID != p.CreatorID {
			return fmt.Errorf("manufacturer creator must match product creator")
		}
	}

	return nil
}

// validateText rejects control characters that would corrupt line-oriented
// script files and table output.
func validateText(field, s string) error {
	if s == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return fmt.Errorf("%s must not contain control characters", field)
		}
	}
	return nil
}
