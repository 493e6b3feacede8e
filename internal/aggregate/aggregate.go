// Package aggregate drives all configured clients and collects their results.
package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avezina/roundup/internal/client"
	"github.com/avezina/roundup/internal/config"
)

// Result pairs a client's display name with its fetched items or the error
// that kept it from producing any. Every configured client gets exactly one
// Result, success or failure.
type Result struct {
	Name  string
	Items []client.Item
	Err   error
}

// Entry is a configuration entry resolved to a concrete client. Err is set
// when resolution failed; Client is nil in that case.
type Entry struct {
	Name   string
	Client client.Client
	Err    error
}

// Options tunes a run.
type Options struct {
	// Timeout bounds each client's fetch so one unresponsive source cannot
	// block the whole report. Zero means no per-client deadline.
	Timeout time.Duration

	// OnDone, if set, is called once per entry as its fetch settles. It may
	// be called from multiple goroutines.
	OnDone func(name string)
}

// Resolve maps configuration entries to clients before any fetch happens.
// Resolution failures are carried in the entry, not dropped.
func Resolve(cfgs []config.Client) []Entry {
	entries := make([]Entry, len(cfgs))
	for i, cfg := range cfgs {
		entries[i].Name = cfg.Name
		c, err := client.New(cfg)
		if err != nil {
			entries[i].Err = err
			continue
		}
		entries[i].Client = c
	}
	return entries
}

// Run fetches all entries concurrently and returns one Result per entry in
// declaration order, independent of completion order. A failure in one
// client never aborts fetches in flight for the others.
func Run(ctx context.Context, entries []Entry, opts Options) []Result {
	results := make([]Result, len(entries))

	var wg sync.WaitGroup
	for i, entry := range entries {
		results[i].Name = entry.Name

		if entry.Err != nil {
			results[i].Err = entry.Err
			log.Warn().Str("client", entry.Name).Err(entry.Err).Msg("client not resolvable")
			if opts.OnDone != nil {
				opts.OnDone(entry.Name)
			}
			continue
		}

		wg.Add(1)
		go func(i int, c client.Client) {
			defer wg.Done()

			fctx := ctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}

			start := time.Now()
			items, err := c.Fetch(fctx)
			if err != nil {
				results[i].Err = err
				log.Warn().Str("client", c.Name()).Err(err).Msg("fetch failed")
			} else {
				results[i].Items = items
				log.Debug().
					Str("client", c.Name()).
					Int("items", len(items)).
					Dur("took", time.Since(start)).
					Msg("fetch complete")
			}
			if opts.OnDone != nil {
				opts.OnDone(c.Name())
			}
		}(i, entry.Client)
	}

	wg.Wait()
	return results
}
