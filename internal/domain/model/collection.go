package model

import "time"

// Collection is one gift-exchange run.
type Collection struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
