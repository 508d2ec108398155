package resolver

import (
	"context"
	"time"

	"companyresolver/browser"
	"companyresolver/config"
	"companyresolver/utils"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

var detourPaths = []string{"/feed/", "/mynetwork/", "/jobs/"}

// Sink persists each result as a batch progresses.
type Sink interface {
	SaveResult(ctx context.Context, runID string, pos int, r Result) error
}

// BatchRunner resolves a list of requests one after another, sharing a
// session within each chunk and pausing between requests and chunks.
type BatchRunner struct {
	svc     *Service
	cfg     config.Batch
	baseURL string
	policy  browser.Policy
	sink    Sink
	log     logrus.FieldLogger

	// OnResult is called after each result is recorded.
	OnResult func(pos int, r Result)
	// OnPause is called before each think-time pause.
	OnPause func(p browser.Pause, d time.Duration)
}

// NewBatchRunner builds a BatchRunner. sink may be nil.
func NewBatchRunner(svc *Service, sink Sink, log logrus.FieldLogger) *BatchRunner {
	return &BatchRunner{
		svc:     svc,
		cfg:     svc.cfg.Batch,
		baseURL: svc.cfg.Site.BaseURL,
		policy:  svc.policy,
		sink:    sink,
		log:     log,
	}
}

// Run returns exactly one result per request, in request order. Long
// inputs are processed in a shuffled order. Only a browser that cannot
// be launched at all stops the batch early; the remaining requests then
// get failure records carrying that error.
func (b *BatchRunner) Run(ctx context.Context, runID string, reqs []Request) ([]Result, error) {
	size := b.cfg.Size
	if size < 1 {
		size = 1
	}
	br := &batchRun{
		runner:  b,
		runID:   runID,
		results: make([]Result, len(reqs)),
		done:    make([]bool, len(reqs)),
	}
	order := b.processingOrder(len(reqs), size)
	b.log.WithFields(logrus.Fields{"run": runID, "total": len(reqs), "chunk": size}).Info("batch started")

	for start := 0; start < len(order); start += size {
		if start > 0 {
			if err := b.pause(ctx, browser.PauseBetweenBatches); err != nil {
				return br.abort(ctx, reqs, order, eris.Wrap(err, "batch interrupted"))
			}
		}
		if err := br.chunk(ctx, reqs, order[start:min(start+size, len(order))]); err != nil {
			return br.abort(ctx, reqs, order, err)
		}
	}

	b.log.WithField("run", runID).Info("batch finished")
	return br.results, nil
}

// processingOrder returns the input positions in the order they are
// resolved. Inputs longer than two chunks are shuffled.
func (b *BatchRunner) processingOrder(n, size int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if n <= 2*size {
		return order
	}
	for i := 0; i < n-1; i++ {
		j := b.policy.Intn(i, n-1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}

type batchRun struct {
	runner  *BatchRunner
	runID   string
	results []Result
	done    []bool
}

func (br *batchRun) record(ctx context.Context, pos int, r Result) {
	b := br.runner
	br.results[pos] = r
	br.done[pos] = true
	log := b.log.WithFields(logrus.Fields{"run": br.runID, "pos": pos, "business": r.BusinessName})
	if r.OK() {
		log.WithField("url", r.Profile.PageURL).Info("resolved")
	} else {
		log.WithField("kind", r.ErrorKind).Warn(r.Error)
	}
	if b.sink != nil {
		// Results recorded while aborting must still reach the store.
		if err := b.sink.SaveResult(context.WithoutCancel(ctx), br.runID, pos, r); err != nil {
			log.WithError(err).Warn("save result")
		}
	}
	if b.OnResult != nil {
		b.OnResult(pos, r)
	}
}

func (br *batchRun) abort(ctx context.Context, reqs []Request, order []int, err error) ([]Result, error) {
	br.runner.log.WithError(err).WithField("run", br.runID).Error("batch aborted")
	for _, pos := range order {
		if !br.done[pos] {
			br.record(ctx, pos, Failure(reqs[pos].BusinessName, err))
		}
	}
	return br.results, err
}

// chunk resolves the requests at positions on one session, replacing it
// if a resolution timed out and took the session down. The error is
// non-nil only when the batch must stop.
func (br *batchRun) chunk(ctx context.Context, reqs []Request, positions []int) error {
	b := br.runner
	var sess *browser.Session
	defer func() {
		if sess != nil {
			if err := sess.Release(); err != nil {
				b.log.WithError(err).Warn("session release")
			}
		}
	}()

	for i, pos := range positions {
		req := reqs[pos]
		if i > 0 {
			if err := b.pause(ctx, browser.PauseBetweenRequests); err != nil {
				return eris.Wrap(err, "batch interrupted")
			}
		}
		if err := b.svc.Validate(req); err != nil {
			br.record(ctx, pos, Failure(req.BusinessName, err))
			continue
		}
		if sess == nil || sess.Released() {
			fresh, err := b.svc.Acquire(ctx)
			if err != nil {
				if Kind(err) == KindSessionLaunch || ctx.Err() != nil {
					return err
				}
				br.record(ctx, pos, Failure(req.BusinessName, err))
				continue
			}
			sess = fresh
			if err := b.warmUp(ctx, sess); err != nil {
				return eris.Wrap(err, "batch interrupted")
			}
		}
		if err := b.detour(ctx, sess); err != nil {
			return eris.Wrap(err, "batch interrupted")
		}
		br.record(ctx, pos, b.svc.ResolveOn(ctx, sess, req))
	}
	return nil
}

func (b *BatchRunner) pause(ctx context.Context, p browser.Pause) error {
	d := b.policy.Wait(p)
	if b.OnPause != nil {
		b.OnPause(p, d)
	}
	return browser.Sleep(ctx, d)
}

// warmUp spends a moment on the feed of a freshly signed-in session.
// Only a cancelled context is returned as an error.
func (b *BatchRunner) warmUp(ctx context.Context, sess *browser.Session) error {
	return b.browseAway(ctx, sess, "/feed/", browser.PauseFeedWarmUp)
}

// detour sometimes visits an unrelated member page before a lookup.
// Only a cancelled context is returned as an error.
func (b *BatchRunner) detour(ctx context.Context, sess *browser.Session) error {
	if !b.policy.Roll(browser.EventDetourBrowse) {
		return nil
	}
	return b.browseAway(ctx, sess, detourPaths[b.policy.Intn(0, len(detourPaths)-1)], browser.PauseAfterDetour)
}

func (b *BatchRunner) browseAway(ctx context.Context, sess *browser.Session, path string, linger browser.Pause) error {
	target := utils.JoinURL(b.baseURL, path)
	err := browser.LoadNaturally(ctx, sess.Page, b.policy, target)
	if err == nil {
		err = browser.HumanScroll(ctx, sess.Page, b.policy)
	}
	if err == nil {
		err = browser.Pace(ctx, b.policy, linger)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		b.log.WithError(err).WithField("url", target).Debug("browsing away failed")
	}
	return nil
}
