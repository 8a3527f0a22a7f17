package utils

import (
	"encoding/json"
	"fmt"
)

// EncodeInts stores a number list as a JSON array column.
func EncodeInts(values []int) (string, error) {
	if values == nil {
		values = []int{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode numbers: %w", err)
	}
	return string(b), nil
}

// DecodeInts reads a JSON array column written by EncodeInts.
func DecodeInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var values []int
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil, fmt.Errorf("failed to decode numbers %q: %w", s, err)
	}
	return values, nil
}
