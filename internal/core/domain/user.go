package domain

import "errors"

var ErrUserNotFound = errors.New("user not found")

// User is a person who books appointments. Profile fields are immutable from
// the scheduling core's perspective.
type User struct {
	UserID   string `json:"user_id" bson:"user_id"`
	Name     string `json:"name" bson:"name"`
	Email    string `json:"email" bson:"email"`
	Phone    string `json:"phone" bson:"phone"`
	Timezone string `json:"timezone" bson:"timezone"`
}
