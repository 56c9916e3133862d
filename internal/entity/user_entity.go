package entity

import "time"

// User is owned by the auth collaborator; the pipeline only reads display
// data from it when building delivery payloads.
type User struct {
	Id           int64
	Username     string
	DisplayName  string
	ProfileImage string
	CreatedAt    time.Time
}
