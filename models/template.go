package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Template struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	TemplateName string             `json:"templateName" bson:"templateName"`
	Description  string             `json:"description" bson:"description"`
	PreviewImage string             `json:"previewImage" bson:"previewImage"`
	Sections     []Section          `json:"sections" bson:"sections"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (t Template) Clone() Template {
	t.Sections = CloneSections(t.Sections)
	return t
}
