package models

import "time"

// Message is stored under messages/{employerId}/{freelancerId}/{id}.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}
