package scheduler

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// JobID keeps a HyperQueue job id exactly as it appeared on the wire.
//
// hq emits ids as JSON numbers, older or wrapped outputs may quote them.
// Both layouts are accepted; the digits are kept verbatim so that "0" or
// "007" round-trip without passing through a numeric type.
type JobID string

func (id *JobID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("job id is null")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return fmt.Errorf("job id is empty")
		}
		*id = JobID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unable to parse '%s' as a job id: %w", string(data), err)
	}
	for _, c := range n.String() {
		if c < '0' || c > '9' {
			return fmt.Errorf("job id %s is not a non-negative integer", n.String())
		}
	}
	*id = JobID(n.String())
	return nil
}

func (id JobID) String() string { return string(id) }

// ValidJobID reports whether s can name a job: non-empty, made of letters,
// digits, '.', '_' or '-', and not a dot path element.
func ValidJobID(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// CompareJobIDs orders numeric ids by value and everything else bytewise,
// numeric ids first.
func CompareJobIDs(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
