package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID   `json:"_id" bson:"_id"`
	Username     string               `json:"username" bson:"username"`
	Email        string               `json:"email" bson:"email"`
	Password     string               `json:"-" bson:"password"`
	ProfileImage string               `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	Address      string               `json:"address,omitempty" bson:"address,omitempty"`
	Phone        string               `json:"phone,omitempty" bson:"phone,omitempty"`
	Country      string               `json:"country,omitempty" bson:"country,omitempty"`
	Events       []primitive.ObjectID `json:"events" bson:"events"`
	CreatedAt    time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt" bson:"updatedAt"`
}

func (u User) Clone() User {
	u.Events = slices.Clone(u.Events)
	return u
}
