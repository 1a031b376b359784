package models

import "time"

type Restaurant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RestaurantTable struct {
	ID           int64 `json:"id"`
	RestaurantID int64 `json:"restaurant_id"`
	Number       int   `json:"number"` // sequential within the restaurant, gaps reused
	Seats        int   `json:"seats"`
}
