package domain

import "time"

// Program is configuration-owned; the VAAC only reads its flags.
type Program struct {
	ID                 string    `db:"program_id" json:"id"`
	Name               string    `db:"name" json:"name"`
	AllocatesSeats     bool      `db:"allocates_seats" json:"allocates_seats"`
	RequiresEntryIndex bool      `db:"requires_entry_index" json:"requires_entry_index"`
	Active             bool      `db:"active" json:"active"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// ResponsibleAgent is an entry of the configured catalog of intervention responsibles.
type ResponsibleAgent struct {
	Code   string `db:"code" json:"code"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}
