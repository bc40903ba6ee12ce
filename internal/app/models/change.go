package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChangeType is the kind of row change delivered by the change feed
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent is one row change scoped to a group
type ChangeEvent struct {
	Table      string          `json:"table"`
	Type       ChangeType      `json:"type"`
	GroupID    uuid.UUID       `json:"group_id"`
	Old        json.RawMessage `json:"old,omitempty"`
	New        json.RawMessage `json:"new,omitempty"`
	CommitTime time.Time       `json:"commit_timestamp"`
}

// DecodeOld unmarshals the previous row image into v. It reports false when
// the event carries no previous image.
func (e *ChangeEvent) DecodeOld(v interface{}) (bool, error) {
	return decodeImage(e.Old, v)
}

// DecodeNew unmarshals the new row image into v. It reports false when the
// event carries no new image.
func (e *ChangeEvent) DecodeNew(v interface{}) (bool, error) {
	return decodeImage(e.New, v)
}

func decodeImage(raw json.RawMessage, v interface{}) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}
