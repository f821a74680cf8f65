package domain

import "time"

type Product struct {
	ID          int64
	Title       string
	Description string
	Price       float64
	ImageURL    string
	CreatedAt   time.Time
}
