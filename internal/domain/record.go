// Package domain holds core types shared across staffdex use cases.
package domain

import "time"

// Record is a tenant-scoped, read-only snapshot of a person record as
// supplied by the record source. The engine never mutates it.
type Record struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Title      string    `json:"title"`
	Department string    `json:"department"`
	Skills     []string  `json:"skills"`
	Bio        string    `json:"bio"`
	IsActive   bool      `json:"isActive"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
