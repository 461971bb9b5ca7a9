package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMetadata(t *testing.T) {
	tests := []struct {
		name    string
		meta    map[string]any
		wantErr error
	}{
		{
			name: "nil metadata",
			meta: nil,
		},
		{
			name: "plain values",
			meta: map[string]any{"source": "a.txt", "page": 3, "tags": []string{"x"}},
		},
		{
			name: "artifact string",
			meta: map[string]any{ArtifactMetaKey: `{"type":"TextArtifact","value":"hi"}`},
		},
		{
			name:    "empty key",
			meta:    map[string]any{"": "x"},
			wantErr: ErrEmptyMetadataKey,
		},
		{
			name:    "artifact not a string",
			meta:    map[string]any{ArtifactMetaKey: 12},
			wantErr: ErrReservedMetadataKey,
		},
		{
			name:    "unencodable value",
			meta:    map[string]any{"ch": make(chan int)},
			wantErr: ErrInvalidMetadataValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMetadata(tt.meta)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
