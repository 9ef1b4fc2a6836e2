// Package publish pushes a merged snapshot folder to the remote dataset
// collection.
package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"xau-data/internal/descriptor"
	"xau-data/internal/faults"
)

// Publisher uploads a folder (snapshot files plus descriptor) as a new
// dataset version. Implementations must be safe to retry with the same
// folder content and version note.
type Publisher interface {
	Publish(ctx context.Context, folder string, d descriptor.Descriptor, note string) error
	Name() string
}

// versionCreator is the slice of the Kaggle client the publisher depends on.
type versionCreator interface {
	CreateVersion(ctx context.Context, slug, folder, notes string) error
}

// Kaggle publishes to a fixed Kaggle dataset collection with bounded,
// linearly increasing backoff between attempts.
type Kaggle struct {
	api         versionCreator
	slug        string
	maxAttempts int
	baseDelay   time.Duration
}

// NewKaggle builds the publisher for the owner/slug collection.
func NewKaggle(api versionCreator, slug string) *Kaggle {
	return &Kaggle{
		api:         api,
		slug:        slug,
		maxAttempts: 3,
		baseDelay:   15 * time.Second,
	}
}

func (p *Kaggle) Name() string { return "kaggle" }

// Publish validates preconditions (descriptor shape, descriptor file present
// in the folder) without retrying them, then retries the version creation on
// connection-class failures.
func (p *Kaggle) Publish(ctx context.Context, folder string, d descriptor.Descriptor, note string) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.ID != p.slug {
		return faults.Preconditionf("descriptor id %q does not match publish target %q", d.ID, p.slug)
	}
	if _, err := os.Stat(filepath.Join(folder, descriptor.FileName)); err != nil {
		return faults.Preconditionf("descriptor file missing in %s", folder)
	}

	op := func() error {
		err := p.api.CreateVersion(ctx, p.slug, folder, note)
		var pre *faults.PreconditionError
		if errors.As(err, &pre) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(newLinearBackOff(p.baseDelay, p.maxAttempts), ctx))
}

// linearBackOff waits base, 2*base, 3*base, ... and stops after maxAttempts
// total tries.
type linearBackOff struct {
	base  time.Duration
	max   int
	tries int
}

func newLinearBackOff(base time.Duration, max int) *linearBackOff {
	return &linearBackOff{base: base, max: max}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.tries++
	if b.tries >= b.max {
		return backoff.Stop
	}
	return time.Duration(b.tries) * b.base
}

func (b *linearBackOff) Reset() { b.tries = 0 }
