package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MobileAlarmRetention is how long toggle history is kept before the TTL index drops it.
const MobileAlarmRetention = 14 * 24 * time.Hour

type MobileAlarmLog struct {
	ID                primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	AccountID         primitive.ObjectID `json:"accountId" bson:"accountId"`
	AccountLoginID    string             `json:"accountLoginId" bson:"accountLoginId"`
	AgentHolderID     primitive.ObjectID `json:"agentHolderId" bson:"agentHolderId"`
	PreviousStatus    bool               `json:"previousStatus" bson:"previousStatus"`
	MobileAlertStatus bool               `json:"mobileAlertStatus" bson:"mobileAlertStatus"`
	ChangedOn         time.Time          `json:"changedOn" bson:"changedOn"`
}

type MobileAlarmQuery struct {
	Page      int64
	Limit     int64
	Search    string
	Status    *bool
	StartDate *time.Time
	EndDate   *time.Time
}
