package domain

import "time"

type Vehicle struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Plate     string    `json:"plate"`
	CreatedOn time.Time `json:"created_on"`
}
