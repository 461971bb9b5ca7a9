package loader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
)

func sniffMediaType(raw []byte) string {
	kind, err := filetype.Match(raw)
	if err != nil || kind == filetype.Unknown {
		return artifact.DefaultMediaType
	}
	return kind.MIME.Value
}

// ImageParser wraps image bytes in an ImageArtifact. Format comes from the
// decoded header when the format is supported by the image package, and
// from content sniffing otherwise; dimensions are zero in that case.
type ImageParser struct{}

func (ImageParser) Parse(raw []byte, opts *Options) (artifact.Artifact, error) {
	if !filetype.IsImage(raw) {
		return nil, fmt.Errorf("%w: content is not an image", core.ErrParse)
	}
	kind, _ := filetype.Match(raw)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return artifact.NewImage(raw, kind.Extension, 0, 0), nil
	}
	return artifact.NewImage(raw, format, cfg.Width, cfg.Height), nil
}

// NewImageLoader creates a loader for image files.
func NewImageLoader(opts ...Option) (*Base, error) {
	return NewBase("image", FileFetcher{}, ImageParser{}, opts...)
}

// AudioParser wraps audio bytes in an AudioArtifact with a sniffed format.
type AudioParser struct{}

func (AudioParser) Parse(raw []byte, opts *Options) (artifact.Artifact, error) {
	if !filetype.IsAudio(raw) {
		return nil, fmt.Errorf("%w: content is not audio", core.ErrParse)
	}
	kind, err := filetype.Match(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrParse, err)
	}
	return artifact.NewAudio(raw, kind.Extension), nil
}

// NewAudioLoader creates a loader for audio files.
func NewAudioLoader(opts ...Option) (*Base, error) {
	return NewBase("audio", FileFetcher{}, AudioParser{}, opts...)
}
