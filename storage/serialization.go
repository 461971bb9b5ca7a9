package storage

import (
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Stored values start with a one byte header naming the payload encoding.
const (
	encodingRaw  byte = 0
	encodingZstd byte = 1
)

// minCompressSize is the smallest payload worth compressing.
const minCompressSize = 256

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	// Deterministic encoding keeps identical entries byte-identical.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}

	// Metadata is map[string]any; nested maps must decode the same way.
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("storage: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("storage: zstd decoder initialization failed: " + err.Error())
	}
}

// storedEntry is the persisted form of an Entry. ID and namespace live in the key.
type storedEntry struct {
	Vector []float32      `cbor:"1,keyasint"`
	Meta   map[string]any `cbor:"2,keyasint,omitempty"`
}

type storedCheckpoint struct {
	Name      string `cbor:"1,keyasint"`
	LastID    string `cbor:"2,keyasint"`
	Processed int    `cbor:"3,keyasint"`
	UpdatedAt int64  `cbor:"4,keyasint"`
}

// MarshalEntry serializes the vector and metadata of entry.
func MarshalEntry(entry *Entry) ([]byte, error) {
	return marshal(storedEntry{Vector: entry.Vector, Meta: entry.Meta})
}

// UnmarshalEntry deserializes bytes produced by MarshalEntry. ID, Namespace
// and Score are left for the caller to fill.
func UnmarshalEntry(data []byte) (*Entry, error) {
	var stored storedEntry
	if err := unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &Entry{Vector: stored.Vector, Meta: stored.Meta}, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *Checkpoint) ([]byte, error) {
	return marshal(storedCheckpoint{
		Name:      checkpoint.Name,
		LastID:    checkpoint.LastID,
		Processed: checkpoint.Processed,
		UpdatedAt: microsFromTime(checkpoint.UpdatedAt),
	})
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*Checkpoint, error) {
	var stored storedCheckpoint
	if err := unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &Checkpoint{
		Name:      stored.Name,
		LastID:    stored.LastID,
		Processed: stored.Processed,
		UpdatedAt: timeFromMicros(stored.UpdatedAt),
	}, nil
}

func marshal(v any) ([]byte, error) {
	payload, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	if len(payload) >= minCompressSize {
		compressed := zstdEncoder.EncodeAll(payload, nil)
		if len(compressed) < len(payload) {
			return append([]byte{encodingZstd}, compressed...), nil
		}
	}
	return append([]byte{encodingRaw}, payload...), nil
}

func unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: %w: empty value", ErrSerializationFailed, ErrTruncatedData)
	}

	payload := data[1:]
	switch data[0] {
	case encodingRaw:
	case encodingZstd:
		decoded, err := zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return fmt.Errorf("%w: zstd: %w", ErrSerializationFailed, err)
		}
		payload = decoded
	default:
		return fmt.Errorf("%w: unknown encoding %d", ErrSerializationFailed, data[0])
	}

	if err := decMode.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return nil
}

func microsFromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func timeFromMicros(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}
