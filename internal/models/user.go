package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

type User struct {
	ID           primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Role         Role               `json:"role" bson:"role"`
	FirstName    string             `json:"firstName" bson:"firstName"`
	LastName     string             `json:"lastName" bson:"lastName"`
	Email        string             `json:"email" bson:"email"`
	Mobile       string             `json:"mobile" bson:"mobile"`
	Password     string             `json:"-" bson:"password"`
	Active       bool               `json:"active" bson:"active"`
	SessionToken *string            `json:"-" bson:"jwtTokens"`
	DeviceTokens []string           `json:"fcmtokens" bson:"fcmtokens"`
	CreatedOn    time.Time          `json:"createdOn" bson:"createdOn"`
	CreatedBy    string             `json:"createdBy" bson:"createdBy"`
	UpdatedOn    time.Time          `json:"updatedOn" bson:"updatedOn"`
	UpdatedBy    string             `json:"updatedBy" bson:"updatedBy"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserUpdate lists the user fields an update may set. Nil pointers are left alone.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Mobile    *string
	Password  *string
	Active    *bool
	UpdatedBy string
	UpdatedOn time.Time
}
