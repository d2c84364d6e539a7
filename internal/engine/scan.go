package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"graphfs/internal/platform"
	"graphfs/internal/search"
	"graphfs/internal/store"
)

// Scan scans root (the default start path when empty) through the scanner
// and, on success, replaces the tree and persists it. Only one scan runs at a
// time; see ScanPolicy. A scan whose token is no longer current when it
// returns is dropped with ErrScanCanceled and the view stays as it was.
func (e *Engine) Scan(ctx context.Context, root string) (search.Stats, error) {
	if e.scanner == nil {
		return search.Stats{}, fmt.Errorf("%w: no scanner configured", ErrScanUnavailable)
	}
	if root == "" {
		root = platform.Impl.DefaultStartPath()
	}
	root = platform.Impl.Canonicalize(root)

	token := uuid.NewString()
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.scanMu.Lock()
	if e.scanCancel != nil {
		if e.policy == ScanPolicyReject {
			e.scanMu.Unlock()
			return search.Stats{}, ErrScanInProgress
		}
		e.log.Info("canceling running scan", zap.String("token", e.scanToken))
		e.scanCancel()
	}
	e.scanToken, e.scanCancel = token, cancel
	e.scanMu.Unlock()
	defer e.finishScan(token)

	log := e.log.With(zap.String("token", token), zap.String("root", root))
	log.Info("scan requested", zap.Int("top_files", e.topFiles))
	e.emit(ScanStarted{Token: token, Root: root})

	res, err := e.scanner.Scan(sctx, root, search.Options{
		TopFiles: e.topFiles,
		OnProgress: func(p search.Progress) {
			e.emit(ScanProgress{Token: token, Progress: p})
		},
	})

	if !e.claimScan(token) {
		log.Info("stale scan result dropped")
		return search.Stats{}, ErrScanCanceled
	}
	if err != nil {
		return search.Stats{}, e.scanError(log, err)
	}
	if res == nil || res.Tree == nil {
		return search.Stats{}, e.scanError(log, errors.New("empty result"))
	}

	e.Load(res.Tree, root, res.Stats)
	e.emit(ScanFinished{Token: token, Root: root, Stats: res.Stats})
	log.Info("scan applied",
		zap.String("engine", res.Stats.Engine),
		zap.Int("files", res.Stats.TotalFiles),
		zap.Int("dirs", res.Stats.TotalDirs),
		zap.Duration("duration", res.Stats.Duration),
	)
	e.persist(root, res)
	return res.Stats, nil
}

func (e *Engine) finishScan(token string) {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()
	if e.scanToken == token {
		e.scanToken, e.scanCancel = "", nil
	}
}

// claimScan reports whether token is still the current scan and, if so,
// retires it in the same critical section. A CancelScan or a new scan after
// the claim no longer affects a result that is being applied.
func (e *Engine) claimScan(token string) bool {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()
	if e.scanToken != token {
		return false
	}
	e.scanToken, e.scanCancel = "", nil
	return true
}

// scanError classifies err, reports it as a notice, and returns the engine
// error wrapping it.
func (e *Engine) scanError(log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Info("scan canceled", zap.Error(err))
		e.notice(NoticeInfo, "Scan canceled")
		return fmt.Errorf("%w: %w", ErrScanCanceled, err)
	case errors.Is(err, search.ErrUnavailable), errors.Is(err, search.ErrNoEngine):
		log.Warn("scan unavailable", zap.Error(err))
		e.notice(NoticeWarning, err.Error())
		return fmt.Errorf("%w: %w", ErrScanUnavailable, err)
	default:
		log.Warn("scan failed", zap.Error(err))
		e.notice(NoticeError, "Scan failed: "+err.Error())
		return fmt.Errorf("%w: %w", ErrScanFailed, err)
	}
}

// CancelScan stops the running scan, if any.
func (e *Engine) CancelScan() bool {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()
	if e.scanCancel == nil {
		return false
	}
	e.scanCancel()
	e.log.Info("scan canceled by request", zap.String("token", e.scanToken))
	e.scanToken, e.scanCancel = "", nil
	return true
}

// Scanning reports whether a scan is in flight.
func (e *Engine) Scanning() bool {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()
	return e.scanCancel != nil
}

func (e *Engine) persist(root string, res *search.Result) {
	if e.store == nil {
		return
	}
	err := e.store.SaveLastScan(&store.Snapshot{
		Root:       root,
		Engine:     res.Stats.Engine,
		ScannedAt:  e.now(),
		TotalFiles: res.Stats.TotalFiles,
		TotalDirs:  res.Stats.TotalDirs,
		Tree:       res.Tree,
	})
	if err != nil {
		e.log.Warn("scan not saved", zap.String("root", root), zap.Error(err))
		e.notice(NoticeWarning, "The scan could not be saved: "+err.Error())
	}
}

// Bootstrap loads the last saved scan, or scans the default start path when
// there is none.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if e.store != nil {
		snap, err := e.store.LoadLastScan()
		switch {
		case err == nil:
			e.Load(snap.Tree, snap.Root, search.Stats{
				TotalFiles: snap.TotalFiles,
				TotalDirs:  snap.TotalDirs,
				Engine:     snap.Engine,
			})
			e.log.Info("last scan loaded", zap.String("root", snap.Root), zap.Time("scanned_at", snap.ScannedAt))
			e.notice(NoticeInfo, fmt.Sprintf("Showing the scan of %s from %s", snap.Root, humanize.RelTime(snap.ScannedAt, e.now(), "ago", "from now")))
			return nil
		case errors.Is(err, store.ErrNotFound):
		default:
			e.log.Warn("last scan unreadable", zap.Error(err))
		}
	}
	_, err := e.Scan(ctx, "")
	return err
}
