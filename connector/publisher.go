package connector

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tfconnector/referenceframe"
)

// A Publisher receives the transforms produced by the connector. *referenceframe.TransformBuffer
// is a Publisher.
type Publisher interface {
	Publish(ctx context.Context, tf referenceframe.Transform) error
}

// PublisherFunc adapts a function to a Publisher.
type PublisherFunc func(ctx context.Context, tf referenceframe.Transform) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, tf referenceframe.Transform) error {
	return f(ctx, tf)
}

type writerPublisher struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterPublisher returns a Publisher that writes every transform to w as one line of JSON.
func NewWriterPublisher(w io.Writer) Publisher {
	return &writerPublisher{enc: json.NewEncoder(w)}
}

func (wp *writerPublisher) Publish(ctx context.Context, tf referenceframe.Transform) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return errors.Wrapf(wp.enc.Encode(tf), "cannot write transform %q -> %q", tf.Parent, tf.Child)
}

// MultiPublisher publishes to every publisher in order. All of them are tried even if some fail.
type MultiPublisher []Publisher

// Publish publishes tf to every publisher and combines their errors.
func (mp MultiPublisher) Publish(ctx context.Context, tf referenceframe.Transform) error {
	var errs error
	for _, p := range mp {
		errs = multierr.Append(errs, p.Publish(ctx, tf))
	}
	return errs
}
