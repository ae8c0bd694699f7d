package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/simonhull/audiometa"
	"golang.org/x/sync/errgroup"

	"github.com/bookbakeapp/bookbake/internal/domain"
	"github.com/bookbakeapp/bookbake/internal/errors"
)

// ProbeOptions configures duration probing.
type ProbeOptions struct {
	// Declared carries the spine-declared duration per part, used as a
	// fallback when a file cannot be probed. May be shorter than the part
	// list or nil.
	Declared []time.Duration
	// Workers bounds concurrent probes (<=0 means one per part).
	Workers int
}

// Probe reads each part's actual encoded duration. Parts whose files cannot
// be parsed fall back to their declared duration with a warning; a part with
// neither is an error, because reconciliation needs every duration.
func (s *Scanner) Probe(ctx context.Context, parts []domain.Part, opts ProbeOptions) ([]domain.Part, []string, error) {
	probed := make([]domain.Part, len(parts))
	copy(probed, parts)

	probeErrs := make([]error, len(parts))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for i := range probed {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := probeDuration(ctx, probed[i].Path)
			if err != nil {
				probeErrs[i] = err
				return nil
			}
			probed[i].Duration = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var warnings []string
	for i, probeErr := range probeErrs {
		if probeErr == nil {
			continue
		}
		if i < len(opts.Declared) && opts.Declared[i] > 0 {
			probed[i].Duration = opts.Declared[i]
			w := fmt.Sprintf("cannot probe %s (%v); using declared duration %s",
				probed[i].Path, probeErr, opts.Declared[i])
			warnings = append(warnings, w)
			s.logger.Warn("duration probe failed, using declared duration",
				"path", probed[i].Path,
				"declared", opts.Declared[i],
				"error", probeErr,
			)
			continue
		}
		return nil, nil, errors.Wrapf(probeErr, errors.CodeInternal,
			"cannot determine duration of %s", probed[i].Path)
	}

	return probed, warnings, nil
}

// probeDuration reads the encoded duration of one audio file.
func probeDuration(ctx context.Context, path string) (time.Duration, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return 0, err
	}
	defer file.Close() //nolint:errcheck // Read-only open, nothing to do about close errors

	if file.Audio.Duration <= 0 {
		return 0, fmt.Errorf("no duration in %s metadata", file.Format)
	}
	return file.Audio.Duration, nil
}
