package domain

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID генерирует идентификатор в формате ObjectId.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID проверяет, что строка является корректным ObjectId.
func ValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

// ParseID возвращает ObjectId или ErrInvalidInput.
func ParseID(field, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s must be a valid id", ErrInvalidInput, field)
	}
	return oid, nil
}
