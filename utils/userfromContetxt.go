package utils

import (
	"net/http"

	"eventweb/apperr"
	"eventweb/globals"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func GetUserIDFromRequest(r *http.Request) string {
	ctx := r.Context()
	requestingUserID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

// ActorID returns the authenticated user's id.
func ActorID(r *http.Request) (primitive.ObjectID, error) {
	raw := GetUserIDFromRequest(r)
	if raw == "" {
		return primitive.NilObjectID, apperr.Unauthorized("Not authenticated")
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Unauthorized("Not authenticated")
	}
	return id, nil
}
