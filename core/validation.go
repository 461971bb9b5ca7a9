package core

import (
	"encoding/json"
	"fmt"
)

// ArtifactMetaKey is the metadata key under which vector entries carry their
// serialized artifact.
const ArtifactMetaKey = "artifact"

// ValidateMetadata validates a vector-entry metadata map.
//
// Validation rules:
//   - keys must not be empty
//   - values must be JSON encodable
//   - the reserved ArtifactMetaKey, when present, must hold a string
//
// A nil map is valid.
func ValidateMetadata(meta map[string]any) error {
	for k, v := range meta {
		if k == "" {
			return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyMetadataKey)
		}
		if k == ArtifactMetaKey {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%w: %w: %q is %T", ErrValidation, ErrReservedMetadataKey, k, v)
			}
			continue
		}
		if _, err := json.Marshal(v); err != nil {
			return fmt.Errorf("%w: %w: %q: %w", ErrValidation, ErrInvalidMetadataValue, k, err)
		}
	}
	return nil
}
