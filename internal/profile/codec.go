// File: internal/profile/codec.go
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidProfile is returned when imported profile data cannot be parsed.
var ErrInvalidProfile = errors.New("invalid library profile")

// Marshal serializes a profile to indented JSON suitable for hand-editing.
func Marshal(p *LibraryProfile) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize profile: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal parses profile JSON. A parse failure leaves no partial result;
// the stored profile is never touched by a failed import.
func Unmarshal(data []byte) (*LibraryProfile, error) {
	var p LibraryProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if p.LibraryName == "" && p.ProxyBaseURL == "" && len(p.Strategies) == 0 {
		return nil, fmt.Errorf("%w: no recognizable profile fields", ErrInvalidProfile)
	}
	return &p, nil
}

// ExportFile writes a profile to the given path as JSON.
func ExportFile(p *LibraryProfile, path string) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}
	return nil
}

// ImportFile reads and parses a profile from the given path.
func ImportFile(path string) (*LibraryProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	return Unmarshal(data)
}
