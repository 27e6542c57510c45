package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ironsheep/image-calc-server/internal/apperr"
	"github.com/ironsheep/image-calc-server/internal/logging"
	"go.uber.org/zap"
)

// Caller-facing messages for analysis failures.
const (
	MsgAnalysisFailed = "Failed to analyze image"
	MsgTimeout        = "Image analysis timed out"
)

// Adapter invokes an Analyzer and classifies what comes back.
//
// The call runs on its own goroutine so a collaborator that ignores its
// context cannot hold the request past the timeout; its eventual result is
// discarded.
type Adapter struct {
	analyzer Analyzer
	timeout  time.Duration
	log      *zap.Logger
}

// NewAdapter wraps analyzer. A timeout of zero or less disables the deadline.
func NewAdapter(analyzer Analyzer, timeout time.Duration, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{analyzer: analyzer, timeout: timeout, log: log}
}

type outcome struct {
	result Result
	err    error
}

// Analyze runs the collaborator and returns its items.
//
// Returns:
//   - items (possibly empty, never nil) on success
//   - *apperr.Error of KindAnalysis carrying the collaborator's message when it
//     signalled an error itself
//   - *apperr.Error of KindAnalysis with MsgAnalysisFailed for any other
//     failure, including a panic inside the collaborator
//   - *apperr.Error of KindTimeout when the deadline passes first
func (a *Adapter) Analyze(ctx context.Context, req Request) ([]Item, error) {
	log := logging.FromContext(ctx, a.log)

	if req.Vars == nil {
		req.Vars = map[string]any{}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go a.invoke(ctx, req, done)

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		return nil, a.contextFailure(log, ctx.Err())
	}

	if out.err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(out.err, ctxErr) {
			return nil, a.contextFailure(log, out.err)
		}
		log.Error("Image analysis failed", zap.Error(out.err))
		return nil, apperr.Analysis(MsgAnalysisFailed, out.err)
	}

	if out.result.Failed {
		log.Error("Image analysis error", zap.String("error", out.result.Message))
		return nil, apperr.Analysis(out.result.Message, nil)
	}

	if len(out.result.Items) == 0 {
		log.Warn("Empty response from image analysis")
		return []Item{}, nil
	}

	return out.result.Items, nil
}

func (a *Adapter) invoke(ctx context.Context, req Request, done chan<- outcome) {
	defer func() {
		if p := recover(); p != nil {
			done <- outcome{err: fmt.Errorf("analyzer panic: %v\n%s", p, debug.Stack())}
		}
	}()

	result, err := a.analyzer.Analyze(ctx, req)
	done <- outcome{result: result, err: err}
}

func (a *Adapter) contextFailure(log *zap.Logger, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		log.Error("Image analysis timed out", zap.Duration("timeout", a.timeout), zap.Error(err))
		return apperr.Timeout(MsgTimeout, err)
	}
	log.Warn("Image analysis cancelled", zap.Error(err))
	return apperr.Analysis(MsgAnalysisFailed, err)
}
