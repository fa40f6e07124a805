package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"eventweb/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxJSONBody caps JSON request bodies.
const MaxJSONBody = 1 << 20

// ParseObjectID parses a path or body id; what names the thing for the error.
func ParseObjectID(raw, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Newf(apperr.KindValidation, "Invalid %s", what)
	}
	return id, nil
}

// DecodeJSON reads one JSON document from the request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, MaxJSONBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return apperr.Validation("Request body too large")
		case errors.Is(err, io.EOF):
			return apperr.Validation("Request body is empty")
		default:
			return apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
		}
	}
	return nil
}
