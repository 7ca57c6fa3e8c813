package models

import (
	"github.com/google/uuid"
)

// ensureID assigns an application-side UUID so inserts behave the same on
// Postgres and on the SQLite databases used in tests.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
