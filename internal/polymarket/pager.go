package polymarket

import (
	"context"
	"errors"
	"io"
	"math"

	"golang.org/x/time/rate"
)

// Page is one batch of raw activity and where it came from.
type Page struct {
	Window     int
	Offset     int
	End        *int64
	Activities []Activity
}

// PagerOptions bound the pagination of one wallet.
type PagerOptions struct {
	PageSize   int
	MaxOffset  int
	MaxWindows int
}

// Pager walks a wallet's activity newest to oldest. Within a window it pages
// by offset up to MaxOffset; when a window closes, the next one is bounded by
// the oldest timestamp seen so far. Pages are produced lazily by Next.
type Pager struct {
	client  Client
	user    string
	opts    PagerOptions
	limiter *rate.Limiter

	window    int
	end       *int64
	offset    int
	records   int
	minTS     int64
	done      bool
	truncated bool
}

// NewPager creates a pager for user. limiter spaces page requests; nil means no delay.
func NewPager(client Client, user string, opts PagerOptions, limiter *rate.Limiter) *Pager {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Pager{
		client:  client,
		user:    user,
		opts:    opts,
		limiter: limiter,
		window:  1,
		minTS:   math.MaxInt64,
	}
}

// Next returns the next non-empty page, or io.EOF once a window yields no
// records or the window limit is reached.
func (p *Pager) Next(ctx context.Context) (Page, error) {
	for !p.done {
		if p.offset > p.opts.MaxOffset {
			p.closeWindow(true)
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return Page{}, err
		}

		activities, err := p.client.Activity(ctx, ActivityQuery{
			User:   p.user,
			Limit:  p.opts.PageSize,
			Offset: p.offset,
			End:    p.end,
		})
		if errors.Is(err, ErrOffsetCeiling) {
			p.closeWindow(true)
			continue
		}
		if err != nil {
			return Page{}, err
		}

		page := Page{Window: p.window, Offset: p.offset, End: p.end, Activities: activities}
		for _, a := range activities {
			if a.Timestamp < p.minTS {
				p.minTS = a.Timestamp
			}
		}
		p.records += len(activities)

		if len(activities) < p.opts.PageSize {
			p.closeWindow(false)
		} else {
			p.offset += p.opts.PageSize
		}

		if len(activities) > 0 {
			return page, nil
		}
	}
	return Page{}, io.EOF
}

// Windows is the number of windows opened so far.
func (p *Pager) Windows() int {
	return p.window
}

// Truncated reports whether paging stopped at the window limit with data
// possibly remaining.
func (p *Pager) Truncated() bool {
	return p.truncated
}

func (p *Pager) closeWindow(ceilingReached bool) {
	end, ok := nextWindowEnd(p.end, p.minTS, p.records, ceilingReached)
	if !ok {
		p.done = true
		return
	}
	if p.window >= p.opts.MaxWindows {
		p.done = true
		p.truncated = true
		return
	}

	p.window++
	p.end = &end
	p.offset = 0
	p.records = 0
	p.minTS = math.MaxInt64
}

// nextWindowEnd decides the upper timestamp bound of the window following one
// that saw records entries with oldest timestamp minTS. ok is false when the
// closed window was empty and paging is finished.
//
// A window cut off by the offset ceiling may have unseen entries sharing
// minTS, so the next window includes minTS again and duplicates are dropped
// downstream. If that would repeat the same bound, or the window ended on a
// short page, the bound moves strictly below minTS.
func nextWindowEnd(current *int64, minTS int64, records int, ceilingReached bool) (end int64, ok bool) {
	if records == 0 {
		return 0, false
	}
	if ceilingReached && (current == nil || minTS < *current) {
		return minTS, true
	}
	return minTS - 1, true
}
