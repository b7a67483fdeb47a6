package domain

import "time"

// OTPRecord is a one-time verification code issued to an email address.
// PK: email, SK: record_id (ULID, sortable by issue time).
// Only the keyed hash of the code is stored.
type OTPRecord struct {
	Email     string    `json:"email" dynamodbav:"email"`
	RecordID  string    `json:"id" dynamodbav:"record_id"`
	CodeHash  string    `json:"-" dynamodbav:"code_hash"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at,unixtime"` // TTL (Unix seconds)
}
