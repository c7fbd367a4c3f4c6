package utils

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewToyID returns a fresh ObjectID in hex form. Every store uses this format so that
// creation time can always be read back from the id.
func NewToyID() string {
	return bson.NewObjectID().Hex()
}

func IsToyID(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}

// CreatedAtFromID returns the creation time embedded in an ObjectID hex string.
func CreatedAtFromID(id string) (time.Time, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return time.Time{}, false
	}
	return oid.Timestamp(), true
}
