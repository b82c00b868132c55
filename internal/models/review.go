package models

import "github.com/google/uuid"

type Review struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
}
