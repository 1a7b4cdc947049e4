package models

import (
	"bytes"
	"encoding/json"
	"time"
)

const unknownCount = "unknown"

// Count is a collection size that may be unknown when the store could not answer.
type Count struct {
	Value int
	Known bool
}

// KnownCount wraps a successfully read count.
func KnownCount(v int) Count {
	return Count{Value: v, Known: true}
}

// MarshalJSON renders a number or the string "unknown".
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Known {
		return json.Marshal(unknownCount)
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts a number or any string, the latter meaning unknown.
func (c *Count) UnmarshalJSON(data []byte) error {
	if (len(data) > 0 && data[0] == '"') || bytes.Equal(data, []byte("null")) {
		*c = Count{}
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = KnownCount(v)
	return nil
}

// Health is the payload of the health endpoint.
type Health struct {
	Status   string    `json:"status"`
	Uploads  Count     `json:"uploads"`
	Students Count     `json:"students"`
	Time     time.Time `json:"time"`
}
