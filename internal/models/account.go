package models

import (
	"time"

	"github.com/mehrbod2002/equitywatch/internal/limits"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is a trading account watched for equity thresholds. Field names match
// the documents read by the external alert job.
type Account struct {
	ID                        primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	AccountLoginID            string             `json:"AccountLoginId" bson:"AccountLoginId"`
	AccountPassword           string             `json:"-" bson:"AccountPassword"`
	ServerName                string             `json:"ServerName" bson:"ServerName"`
	EquityType                *limits.EquityType `json:"EquityType" bson:"EquityType"`
	EquityThreshold           *float64           `json:"EquityThreshhold" bson:"EquityThreshhold"`
	UpperLimitEquityType      *limits.EquityType `json:"UpperLimitEquityType" bson:"UpperLimitEquityType"`
	UpperLimitEquityThreshold *float64           `json:"UpperLimitEquityThreshhold" bson:"UpperLimitEquityThreshhold"`
	MessageCheck              bool               `json:"messageCheck" bson:"messageCheck"`
	EmailCheck                bool               `json:"emailCheck" bson:"emailCheck"`
	UpperLimitMessageCheck    bool               `json:"UpperLimitMessageCheck" bson:"UpperLimitMessageCheck"`
	UpperLimitEmailCheck      bool               `json:"UpperLimitEmailCheck" bson:"UpperLimitEmailCheck"`
	MobileAlert               bool               `json:"mobileAlert" bson:"mobileAlert"`
	AgentHolderID             primitive.ObjectID `json:"agentHolderId" bson:"agentHolderId"`
	AgentHolderName           string             `json:"agentHolderName" bson:"agentHolderName"`
	Active                    bool               `json:"active" bson:"active"`
	DeviceTokens              []string           `json:"-" bson:"fcmtokens"`
	CreatedOn                 time.Time          `json:"createdOn" bson:"createdOn"`
	CreatedBy                 string             `json:"createdBy" bson:"createdBy"`
	UpdatedOn                 time.Time          `json:"updatedOn" bson:"updatedOn"`
	UpdatedBy                 string             `json:"updatedBy" bson:"updatedBy"`
}

func (a *Account) Limits() limits.Pair {
	return limits.Pair{
		Lower: limits.Limit{Type: a.EquityType, Threshold: a.EquityThreshold},
		Upper: limits.Limit{Type: a.UpperLimitEquityType, Threshold: a.UpperLimitEquityThreshold},
	}
}

func (a *Account) SetLower(l limits.Limit) {
	a.EquityType = l.Type
	a.EquityThreshold = l.Threshold
}

func (a *Account) SetUpper(l limits.Limit) {
	a.UpperLimitEquityType = l.Type
	a.UpperLimitEquityThreshold = l.Threshold
}

// AccountUpdate lists the account fields an update may set. Nil pointers and a
// nil DeviceTokens slice are left alone.
type AccountUpdate struct {
	AccountLoginID         *string
	AccountPassword        *string
	ServerName             *string
	Lower                  *limits.Limit
	Upper                  *limits.Limit
	MessageCheck           *bool
	EmailCheck             *bool
	UpperLimitMessageCheck *bool
	UpperLimitEmailCheck   *bool
	MobileAlert            *bool
	Active                 *bool
	AgentHolderID          *primitive.ObjectID
	AgentHolderName        *string
	DeviceTokens           []string
	UpdatedBy              string
	UpdatedOn              time.Time
}

// AccountFilter narrows account listings. A nil AgentHolderID matches every account.
type AccountFilter struct {
	AgentHolderID *primitive.ObjectID
}
