package domain

import (
	"strings"
	"time"
)

// Customer is the externally sourced customer record. The queue only reads
// customers; every mutation happens through the remote CRM.
type Customer struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	StageID   string
	LeadScore int
	Source    Source
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCustomer validates the minimal fields a fetched customer must carry.
func NewCustomer(id, name string, now time.Time) (Customer, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Customer{}, ErrInvalidID
	}
	if name == "" {
		return Customer{}, ErrInvalidName
	}
	ts := now.UTC()
	return Customer{
		ID:        id,
		Name:      name,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// Stage is one named step of the sales pipeline.
type Stage struct {
	ID       string
	Name     string
	Position int
}

// Employee is one assignable CRM user.
type Employee struct {
	ID    string
	Name  string
	Email string
	Role  string
}
