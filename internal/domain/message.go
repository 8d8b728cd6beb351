package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// TaskID identifies a task across the page, the push channels and the store.
// The page carries it as a string attribute; the server emits integer keys.
type TaskID string

func TaskIDFromUint(id uint) TaskID {
	return TaskID(strconv.FormatUint(uint64(id), 10))
}

func (id TaskID) String() string {
	return string(id)
}

// Uint parses the identifier as a database primary key.
func (id TaskID) Uint() (uint, error) {
	n, err := strconv.ParseUint(string(id), 10, 0)
	if err != nil {
		return 0, fmt.Errorf("task id %q is not numeric: %w", string(id), err)
	}
	return uint(n), nil
}

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TaskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id must be a string or a number: %w", err)
	}
	*id = TaskID(n.String())
	return nil
}

// Progress is an optional completion percentage.
type Progress struct {
	Percent int
	Valid   bool
}

func NewProgress(percent int) Progress {
	return Progress{Percent: percent, Valid: true}
}

// MarshalJSON writes an absent progress as an empty string.
func (p Progress) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte(`""`), nil
	}
	return []byte(strconv.Itoa(p.Percent)), nil
}

// UnmarshalJSON accepts numbers, numeric strings, "" and null.
func (p *Progress) UnmarshalJSON(data []byte) error {
	*p = Progress{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("progress %s is not numeric", string(data))
	}
	*p = NewProgress(int(f))
	return nil
}

// StatusUpdate is one entry of a status channel batch.
type StatusUpdate struct {
	PK       TaskID     `json:"pk"`
	Status   TaskStatus `json:"status"`
	Progress Progress   `json:"progress"`
}

// StatusUpdateMessage is a batch pushed on the status channel.
type StatusUpdateMessage struct {
	Tasks []StatusUpdate `json:"tasks"`
}

// PKListPayload subscribes to the status channel and acknowledges on the
// seen channel. Both carry the client's full tracked set.
type PKListPayload struct {
	PKList []TaskID `json:"pk_list"`
}

var (
	ErrMalformedMessage = errors.New("message: malformed status batch")
	ErrMalformedUpdate  = errors.New("message: malformed task update")
)

// DecodeStatusMessage parses a status channel frame. Entries that fail to
// decode or miss pk/status are dropped and reported in skipped; the returned
// error is only set when the frame as a whole is unusable.
func DecodeStatusMessage(data []byte) (updates []StatusUpdate, skipped []error, err error) {
	var envelope struct {
		Tasks []json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if envelope.Tasks == nil {
		return nil, nil, fmt.Errorf("%w: missing tasks", ErrMalformedMessage)
	}

	updates = make([]StatusUpdate, 0, len(envelope.Tasks))
	for i, raw := range envelope.Tasks {
		var u StatusUpdate
		if err := json.Unmarshal(raw, &u); err != nil {
			skipped = append(skipped, fmt.Errorf("%w: entry %d: %v", ErrMalformedUpdate, i, err))
			continue
		}
		if u.PK == "" || u.Status == "" {
			skipped = append(skipped, fmt.Errorf("%w: entry %d: pk and status are required", ErrMalformedUpdate, i))
			continue
		}
		updates = append(updates, u)
	}
	return updates, skipped, nil
}

// DecodePKList parses a pk_list payload. A bare string or number is taken as
// a one-element list.
func DecodePKList(data []byte) ([]TaskID, error) {
	var envelope struct {
		PKList json.RawMessage `json:"pk_list"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(envelope.PKList) == 0 || bytes.Equal(envelope.PKList, []byte("null")) {
		return nil, fmt.Errorf("%w: missing pk_list", ErrMalformedMessage)
	}

	var list []TaskID
	if err := json.Unmarshal(envelope.PKList, &list); err == nil {
		return list, nil
	}
	var single TaskID
	if err := json.Unmarshal(envelope.PKList, &single); err != nil {
		return nil, fmt.Errorf("%w: pk_list: %v", ErrMalformedMessage, err)
	}
	return []TaskID{single}, nil
}
