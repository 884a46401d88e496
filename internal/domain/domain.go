package domain

import (
	"github.com/google/uuid"
)

// MainBranch is the name of the branch every article is created with. An article always has exactly one
// branch with this name.
const MainBranch = "main"

// ID identifies every entity stored by the wiki API.
type ID = uuid.UUID

// NilID is the zero ID, used to mean "not set" in optional fields.
var NilID = uuid.Nil

func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// Page selects a window of a collection.
type Page struct {
	Skip  int
	Limit int
}
