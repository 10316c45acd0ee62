package models

// UserProfile carries the subset of profile data the game engine renders.
// Profile storage itself is owned by the main app; we only read it.
type UserProfile struct {
	UserID string   `dynamodbav:"userId" json:"userId"`
	Name   string   `dynamodbav:"name" json:"name"`
	Photos []string `dynamodbav:"photos,omitempty" json:"photos,omitempty"`
}
