package models

import "time"

// BusinessConnection is a business account the bot has been connected to.
type BusinessConnection struct {
	ConnectionID  string    `bson:"connection_id"`
	OwnerID       int64     `bson:"owner_id"`
	OwnerUsername string    `bson:"owner_username,omitempty"`
	OwnerChatID   int64     `bson:"owner_chat_id"`
	Enabled       bool      `bson:"enabled"`
	FirstSeen     time.Time `bson:"first_seen"`
	LastSeen      time.Time `bson:"last_seen"`
}
