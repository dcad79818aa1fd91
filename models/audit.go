package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit actions recorded for admin requests.
const (
	AuditCreate = "CREATE"
	AuditUpdate = "UPDATE"
	AuditDelete = "DELETE"
	AuditLogin  = "LOGIN"
	AuditLogout = "LOGOUT"
)

// AuditEvent is an append-only record of one admin write. Events form a hash
// chain: each CurrentHash covers the event and the PreviousHash before it.
type AuditEvent struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
	Admin        string             `bson:"admin" json:"admin"`
	Action       string             `bson:"action" json:"action"`
	Resource     string             `bson:"resource" json:"resource"`
	ResourceID   string             `bson:"resource_id,omitempty" json:"resourceId,omitempty"`
	Status       int                `bson:"status" json:"status"`
	Success      bool               `bson:"success" json:"success"`
	IPAddress    string             `bson:"ip_address" json:"ipAddress"`
	UserAgent    string             `bson:"user_agent" json:"userAgent"`
	RequestID    string             `bson:"request_id" json:"requestId"`
	Changes      map[string]any     `bson:"changes,omitempty" json:"changes,omitempty"`
	PreviousHash string             `bson:"previous_hash" json:"previousHash"`
	CurrentHash  string             `bson:"current_hash" json:"currentHash"`
}

// ComputeHash hashes the chained fields. Timestamp must already be truncated
// to milliseconds, the precision MongoDB keeps.
func (e *AuditEvent) ComputeHash() string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%t|%s|%s",
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Admin,
		e.Action,
		e.Resource,
		e.ResourceID,
		e.Status,
		e.Success,
		e.RequestID,
		e.PreviousHash,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

type AuditQuery struct {
	Admin    string
	Action   string
	Resource string
	Page     int
	PageSize int
}

type AuditPage struct {
	Events   []AuditEvent `json:"events"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

type AuditVerification struct {
	Valid  bool   `json:"valid"`
	Events int    `json:"events"`
	Broken string `json:"brokenAt,omitempty"`
}
