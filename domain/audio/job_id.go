package audio

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// JobID identifies one processing run. It is a random UUID rendered as
// 32 lowercase hex characters and is embedded in the artifact name.
type JobID struct {
	value string
}

// NewJobID creates a new random JobID
func NewJobID() JobID {
	id := uuid.New()
	return JobID{value: hex.EncodeToString(id[:])}
}

// ParseJobID creates a JobID from its hex form
func ParseJobID(s string) (JobID, error) {
	if s == "" {
		return JobID{}, errors.New("job ID cannot be empty")
	}
	if len(s) != 32 || strings.ToLower(s) != s {
		return JobID{}, errors.New("job ID must be 32 lowercase hex characters")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return JobID{}, errors.New("job ID must be 32 lowercase hex characters")
	}
	return JobID{value: s}, nil
}

// String returns the hex representation of the JobID
func (id JobID) String() string {
	return id.value
}

// IsZero checks if the JobID is the zero value
func (id JobID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id JobID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *JobID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("JobID must be a string")
	}
	parsed, err := ParseJobID(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
