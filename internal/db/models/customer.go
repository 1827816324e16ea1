// Package models - customer.go defines the tenant-scoped Customer record and its
// JSONB certification list.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Certification is one diving qualification held by a customer.
type Certification struct {
	Agency   string     `json:"agency"`
	Level    string     `json:"level"`
	Number   string     `json:"number,omitempty"`
	IssuedAt *time.Time `json:"issuedAt,omitempty"`
}

// Certifications is stored as a JSONB array.
type Certifications []Certification

// Value implements driver.Valuer.
func (c Certifications) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *Certifications) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = Certifications{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported certifications type %T", src)
	}
	if len(data) == 0 {
		*c = Certifications{}
		return nil
	}
	return json.Unmarshal(data, c)
}

// Customer is a person who books trips with the organization.
type Customer struct {
	ID                    string         `db:"id" json:"id"`
	Email                 string         `db:"email" json:"email"`
	FirstName             string         `db:"first_name" json:"firstName"`
	LastName              string         `db:"last_name" json:"lastName"`
	Phone                 *string        `db:"phone" json:"phone,omitempty"`
	Certifications        Certifications `db:"certifications" json:"certifications"`
	EmergencyContactName  *string        `db:"emergency_contact_name" json:"emergencyContactName,omitempty"`
	EmergencyContactPhone *string        `db:"emergency_contact_phone" json:"emergencyContactPhone,omitempty"`
	MedicalNotes          *string        `db:"medical_notes" json:"medicalNotes,omitempty"`
	CreatedAt             time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name.
func (c *Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
