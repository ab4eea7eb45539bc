package models

import "time"

// Feedback is a message left through the contact form.
type Feedback struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null" validate:"required,email"`
	Subject   string    `json:"subject" gorm:"type:varchar(200)" validate:"omitempty,max=200"`
	Message   string    `json:"message" gorm:"type:text;not null" validate:"required,max=5000"`
	CreatedAt time.Time `json:"created_at"`
}
