package models

import "github.com/google/uuid"

// ensureID assigns a fresh uuid when the primary key is unset. Ids are
// generated in Go so the models behave the same on every dialect.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
