package model

import "time"

// ActivityEntry is one recorded account event, newest first when listed.
type ActivityEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurredAt"`
}

type ActivityList struct {
	Items []ActivityEntry `json:"items"`
}
