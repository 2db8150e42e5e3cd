package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ghuser/prodvault/pkg/validator"
	"github.com/ghuser/prodvault/services/catalog/domain"
	"github.com/ghuser/prodvault/services/catalog/domain/models"
	domainservices "github.com/ghuser/prodvault/services/catalog/domain/services"
)

// productArity is the number of positional arguments describing one product:
// name, x, y, price, part_number, manufacture_cost, unit, org_name,
// org_full_name, org_employees_count. Optional arguments use "-" (or an empty
// string) to mean absent.
const productArity = 10

// productArgs is the decoded positional argument set. Validator tags carry
// the range constraints so failures come back with field names.
type productArgs struct {
	Name            string   `json:"name" validate:"required"`
	X               int64    `json:"x" validate:"gt=-349"`
	Y               float32  `json:"y"`
	Price           *int64   `json:"price" validate:"omitempty,gt=0"`
	PartNumber      string   `json:"part_number" validate:"required"`
	ManufactureCost *float32 `json:"manufacture_cost"`
	Unit            string   `json:"unit_of_measure" validate:"required"`
	OrgName         string   `json:"org_name"`
	OrgFullName     string   `json:"org_full_name"`
	OrgEmployees    *int64   `json:"org_employees_count" validate:"omitempty,gt=0"`
}

// absent reports whether a positional token marks an omitted optional value.
func absent(tok string) bool {
	return tok == "" || tok == "-"
}

// parseProductArgs decodes the 10 positional product arguments. The caller
// has already checked the argument count.
func parseProductArgs(args []string) (*productArgs, error) {
	pa := &productArgs{
		Name:        strings.TrimSpace(args[0]),
		PartNumber:  strings.TrimSpace(args[4]),
		Unit:        strings.TrimSpace(args[6]),
		OrgName:     strings.TrimSpace(args[7]),
		OrgFullName: strings.TrimSpace(args[8]),
	}

	var err error
	if pa.X, err = strconv.ParseInt(args[1], 10, 64); err != nil {
		return nil, fmt.Errorf("%w: x: not an integer", domain.ErrValidation)
	}
	y, err := strconv.ParseFloat(args[2], 32)
	if err != nil {
		return nil, fmt.Errorf("%w: y: not a number", domain.ErrValidation)
	}
	pa.Y = float32(y)

	if !absent(args[3]) {
		v, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: price: not an integer", domain.ErrValidation)
		}
		pa.Price = &v
	}
	if !absent(args[5]) {
		v, err := strconv.ParseFloat(args[5], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: manufacture_cost: not a number", domain.ErrValidation)
		}
		c := float32(v)
		pa.ManufactureCost = &c
	}
	if !absent(args[9]) {
		v, err := strconv.ParseInt(args[9], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: org_employees_count: not an integer", domain.ErrValidation)
		}
		pa.OrgEmployees = &v
	}
	if absent(pa.OrgName) {
		pa.OrgName = ""
	}
	if absent(pa.OrgFullName) {
		pa.OrgFullName = ""
	}

	if err := validator.Validate(pa); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, validator.FormatValidationErrors(err))
	}
	return pa, nil
}

// buildProduct turns the decoded arguments into a validated domain Product
// for creatorID. The three organization arguments must be given together or
// not at all; all absent means no manufacturer.
func buildProduct(pa *productArgs, creatorID int64) (*models.Product, error) {
	unit, err := models.ParseUnit(pa.Unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var manufacturer *models.Organization
	orgGiven := 0
	if pa.OrgName != "" {
		orgGiven++
	}
	if pa.OrgFullName != "" {
		orgGiven++
	}
	if pa.OrgEmployees != nil {
		orgGiven++
	}
	switch orgGiven {
	case 0:
		// no manufacturer
	case 3:
		manufacturer, err = models.NewOrganization(pa.OrgName, pa.OrgFullName, *pa.OrgEmployees, creatorID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	default:
		return nil, fmt.Errorf("%w: organization requires name, full name and employees count together", domain.ErrValidation)
	}

	p, err := models.NewProduct(
		pa.Name,
		models.Coordinates{X: pa.X, Y: pa.Y},
		pa.Price,
		pa.PartNumber,
		pa.ManufactureCost,
		unit,
		manufacturer,
		creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := domainservices.ValidateProductForWrite(p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return p, nil
}

// parsePositive decodes a positional argument that must be a positive integer.
func parsePositive(field, tok string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrValidation, field)
	}
	return v, nil
}
