package models

import "github.com/google/uuid"

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Contest{},
		&Participation{},
		&Payment{},
	}
}

// NewID returns a fresh primary key.
func NewID() string { return uuid.NewString() }
