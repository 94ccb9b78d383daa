package treasury

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config holds the collaborators and settings of a Watcher.
type Config struct {
	Store     StateStore
	Reader    BalanceReader
	Oracle    PriceOracle
	Publisher Publisher // nil to skip publication

	Report ReportOptions

	QueryTimeout time.Duration // per balance query, defaults to 30s
	Concurrency  int           // concurrent balance queries, defaults to 4

	Log     logrus.FieldLogger // defaults to the logrus standard logger
	Metrics *Metrics           // optional
	Now     func() time.Time   // defaults to time.Now
}

// Watcher runs cycles: load the state, read every balance, record the
// changes, persist the state, build the report and publish it.
type Watcher struct {
	cfg Config
	log logrus.FieldLogger

	// mu serializes cycles.
	mu sync.Mutex

	lastMu sync.RWMutex
	last   *Report
}

// NewWatcher checks cfg and returns a Watcher.
func NewWatcher(cfg Config) (*Watcher, error) {
	if cfg.Store == nil {
		return nil, errors.New("watcher: no state store")
	}
	if cfg.Reader == nil {
		return nil, errors.New("watcher: no balance reader")
	}
	if cfg.Oracle == nil {
		return nil, errors.New("watcher: no price oracle")
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Report = cfg.Report.withDefaults()
	return &Watcher{cfg: cfg, log: cfg.Log.WithField("pkg", "watcher")}, nil
}

// Last returns the last report built by a cycle that persisted its state, or nil.
func (w *Watcher) Last() *Report {
	w.lastMu.RLock()
	defer w.lastMu.RUnlock()
	return w.last
}

// Cycle runs a single cycle. Concurrent calls are serialized.
//
// Balance and state errors abort the cycle before anything is persisted or
// published. A state written by someone else since it was loaded fails the
// cycle with ErrStateChanged, and the next cycle starts from that state. A
// publish error is returned after the state has been persisted, along with the
// report.
func (w *Watcher) Cycle(ctx context.Context) (*Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	report, result, err := w.cycle(ctx)
	took := time.Since(start)
	w.cfg.Metrics.observeCycle(result, took.Seconds())

	if err != nil {
		w.log.WithFields(logrus.Fields{"took": took, "result": result}).WithError(err).Error("cycle failed")
		return report, err
	}
	w.log.WithFields(logrus.Fields{"took": took, "accounts": len(report.Entries)}).Info("cycle done")
	return report, nil
}

func (w *Watcher) cycle(ctx context.Context) (*Report, string, error) {
	state, err := w.cfg.Store.Load(ctx)
	if err != nil {
		return nil, resultStateError, err
	}

	amounts, err := w.queryAll(ctx, state.Accounts)
	if err != nil {
		return nil, resultBalanceError, err
	}

	now := w.cfg.Now()
	next := state.Clone()
	next.LastUpdated = now.Unix()
	for i := range next.Accounts {
		a := &next.Accounts[i]
		if a.Kind() == UnknownAsset {
			continue
		}
		a.Update(amounts[i], w.cfg.Report.Formatter)
	}

	if err := w.cfg.Store.Persist(ctx, next); err != nil {
		return nil, resultStateError, err
	}

	for _, a := range next.Accounts {
		if a.Kind() == UnknownAsset {
			continue
		}
		w.cfg.Metrics.observeAccount(a)
		if a.Change.Direction != None {
			w.log.WithFields(logrus.Fields{
				"address": a.Address,
				"name":    a.Name,
				"change":  a.Change.Direction.Sign() + a.Change.Str,
				"balance": a.Current.Str,
			}).Info("balance changed")
		}
	}

	report := BuildReport(ctx, next.Accounts, w.cfg.Oracle, now, w.cfg.Report)
	if report.Summary.PriceErr != nil {
		w.log.WithError(report.Summary.PriceErr).Warn("no price, valuation uses zero")
	}
	w.cfg.Metrics.observeReport(report)

	w.lastMu.Lock()
	w.last = report
	w.lastMu.Unlock()

	if w.cfg.Publisher == nil {
		return report, resultOK, nil
	}
	if err := w.cfg.Publisher.Publish(ctx, report); err != nil {
		if !errors.Is(err, ErrPublish) {
			err = fmt.Errorf("%w: %w", ErrPublish, err)
		}
		return report, resultPublishError, err
	}
	return report, resultOK, nil
}

// queryAll reads the balance of every known account. The first error cancels
// the remaining queries. Amounts of unknown accounts are left zero.
func (w *Watcher) queryAll(ctx context.Context, accounts []Account) ([]Quantity, error) {
	amounts := make([]Quantity, len(accounts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for i, a := range accounts {
		if a.Kind() == UnknownAsset {
			w.log.WithFields(logrus.Fields{"address": a.Address, "type": a.Type}).Debug("skipping account of unknown type")
			continue
		}
		i, a := i, a
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, w.cfg.QueryTimeout)
			defer cancel()
			q, err := w.cfg.Reader.Query(qctx, a)
			if err != nil {
				return NewBalanceQueryError(a.Address, err)
			}
			amounts[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return amounts, nil
}
