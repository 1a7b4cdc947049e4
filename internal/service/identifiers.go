package service

import "github.com/google/uuid"

// validID accepts only the canonical 36 character form the store hands out.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
