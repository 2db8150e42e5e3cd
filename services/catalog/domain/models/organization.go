package models

import "fmt"

// Organization is the secondary entity optionally owned by a product. At the
// persistence layer it lives exactly as long as products reference it: when
// the last referencing product is deleted the organization goes with it.
type Organization struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	FullName       string `json:"full_name"` // unique across the store
	EmployeesCount int64  `json:"employees_count"`
	CreatorID      int64  `json:"creator_id"`
}

// NewOrganization constructs an unpersisted Organization (zero ID) and
// enforces the structural field constraints.
func NewOrganization(name, fullName string, employeesCount, creatorID int64) (*Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("organization name must not be empty")
	}
	if fullName == "" {
		return nil, fmt.Errorf("organization full name must not be empty")
	}
	if employeesCount <= 0 {
		return nil, fmt.Errorf("employees count must be positive")
	}
	if creatorID <= 0 {
		return nil, fmt.Errorf("creator id must be positive")
	}
	return &Organization{
		Name:           name,
		FullName:       fullName,
		EmployeesCount: employeesCount,
		CreatorID:      creatorID,
	}, nil
}
