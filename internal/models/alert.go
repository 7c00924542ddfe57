package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountAlert is written by the external threshold evaluator, one per account.
type AccountAlert struct {
	ID             primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	AccountLoginID string             `json:"AccountLoginId" bson:"AccountLoginId"`
	AlertFlag      bool               `json:"alertFlag" bson:"alertFlag"`
	AlertOff       time.Time          `json:"alertOff" bson:"alertOff"`
	AlertOn        time.Time          `json:"alertOn" bson:"alertOn"`
	LastChecked    time.Time          `json:"lastChecked" bson:"lastChecked"`
}

// TradeAccountInfo is the latest balance and equity snapshot of an account.
type TradeAccountInfo struct {
	ID              primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	AccountLoginID  string             `json:"AccountLoginId" bson:"AccountLoginId"`
	LastUpdatedTime time.Time          `json:"LastUpdatedTime" bson:"LastUpdatedTime"`
	MT5Balance      float64            `json:"MT5Balance" bson:"MT5Balance"`
	MT5Equity       float64            `json:"MT5Equity" bson:"MT5Equity"`
}
