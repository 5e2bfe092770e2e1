package amqp

import (
	"encoding/json"
	"time"
)

// AllocationChangedMessage announces that one allocation was created or
// moved to a new status. It carries only identifiers; consumers reload
// whatever they need from the database.
type AllocationChangedMessage struct {
	AllocationID int64     `json:"allocation_id"`
	CycleID      int64     `json:"cycle_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewAllocationChangedMessage(allocationID, cycleID int64) *AllocationChangedMessage {
	return &AllocationChangedMessage{
		AllocationID: allocationID,
		CycleID:      cycleID,
		Timestamp:    time.Now(),
	}
}

func (m *AllocationChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AllocationChangedMessageFromJSON(data []byte) (*AllocationChangedMessage, error) {
	var msg AllocationChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
