//go:build !vision

package vision

import (
	"context"

	"plate-service/internal/config"
	"plate-service/internal/recognition"
)

type Local struct{}

func NewLocal(config.VisionConfig, int) (*Local, error) {
	return nil, ErrUnavailable
}

func (*Local) Regions(context.Context, []byte) (*recognition.Scan, error) {
	return nil, ErrUnavailable
}

func (*Local) ReadRegion(context.Context, recognition.Region) (string, error) {
	return "", ErrUnavailable
}

func (*Local) ReadFrame(context.Context, []byte) ([]recognition.Text, error) {
	return nil, ErrUnavailable
}

func (*Local) Close() error {
	return nil
}
