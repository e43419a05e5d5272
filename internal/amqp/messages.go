package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// CollectionSavedMessage announces that an owner's collection snapshot was
// persisted. The consumer loads the snapshot itself.
type CollectionSavedMessage struct {
	OwnerID    string    `json:"ownerId"`
	Collection string    `json:"collection"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewCollectionSavedMessage(ownerID, collection string) *CollectionSavedMessage {
	return &CollectionSavedMessage{
		OwnerID:    ownerID,
		Collection: collection,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CollectionSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CollectionSavedMessageFromJSON decodes and checks a message body.
func CollectionSavedMessageFromJSON(data []byte) (*CollectionSavedMessage, error) {
	var msg CollectionSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" || msg.Collection == "" {
		return nil, errors.New("message requires ownerId and collection")
	}
	return &msg, nil
}
