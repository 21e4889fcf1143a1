package models

import "time"

// UserAction is one operator action, e.g. a capture policy change.
type UserAction struct {
	UserID  int64       `bson:"user_id"`
	Action  string      `bson:"action"`
	Details interface{} `bson:"details,omitempty"`
	Time    time.Time   `bson:"time"`
}
