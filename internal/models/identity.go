package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Identity is the authenticated caller of a request, as carried by its token.
type Identity struct {
	ID        primitive.ObjectID
	Role      Role
	Email     string
	FirstName string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func (i Identity) IsAgent() bool { return i.Role == RoleAgent }

// Holds reports whether the caller is the agent holding account.
func (i Identity) Holds(account *Account) bool {
	return i.IsAgent() && account.AgentHolderID == i.ID
}
