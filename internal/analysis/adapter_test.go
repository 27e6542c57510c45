package analysis

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/ironsheep/image-calc-server/internal/apperr"
	"github.com/ironsheep/image-calc-server/internal/imaging"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// createTestDecoded returns a decoded solid-white PNG.
func createTestDecoded(t *testing.T, width, height int) *imaging.Decoded {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	d, err := imaging.DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("failed to decode image: %v", err)
	}
	return d
}

func assertKind(t *testing.T, err error, want apperr.Kind, wantMsg string) {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T (%v)", err, err)
	}
	if appErr.Kind != want {
		t.Errorf("Kind: got %v, want %v", appErr.Kind, want)
	}
	if appErr.Message != wantMsg {
		t.Errorf("Message: got %q, want %q", appErr.Message, wantMsg)
	}
}

func TestAdapter_Success(t *testing.T) {
	var gotVars map[string]any
	a := NewAdapter(AnalyzerFunc(func(ctx context.Context, req Request) (Result, error) {
		gotVars = req.Vars
		return Success(Record(map[string]any{"expr": "1+1", "result": 2})), nil
	}), time.Second, zaptest.NewLogger(t))

	items, err := a.Analyze(context.Background(), Request{Image: createTestDecoded(t, 4, 4)})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if gotVars == nil {
		t.Error("nil Vars should reach the collaborator as an empty map")
	}
}

func TestAdapter_Empty(t *testing.T) {
	a := NewAdapter(AnalyzerFunc(func(ctx context.Context, req Request) (Result, error) {
		return Success(), nil
	}), time.Second, zaptest.NewLogger(t))

	items, err := a.Analyze(context.Background(), Request{})
	if err != nil {
		t.Fatalf("empty output should not be an error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", items)
	}
}

func TestAdapter_ErrorSignal(t *testing.T) {
	a := NewAdapter(AnalyzerFunc(func(ctx context.Context, req Request) (Result, error) {
		return Failure("No mathematical content detected"), nil
	}), time.Second, zaptest.NewLogger(t))

	_, err := a.Analyze(context.Background(), Request{})
	assertKind(t, err, apperr.KindAnalysis, "No mathematical content detected")
}

func TestAdapter_ErrorSignalWithoutMessage(t *testing.T) {
	a := NewAdapter(AnalyzerFunc(func(ctx context.Context, req Request) (Result, error) {
		return Failure(""), nil
	}), time.Second, zap.NewNop())

	_, err := a.Analyze(context.Background(), Request{})
	assertKind(t, err, apperr.KindAnalysis, "")
	if got := apperr.PublicMessage(err); got != "" {
		t.Errorf("PublicMessage: got %q, want the empty signal text", got)
	}
}

func TestAdapter_CollaboratorError(t *testing.T) {
	cause := errors.New("upstream returned 503: secret-host.internal")
	a := NewAdapter(AnalyzerFunc(func(ctx context.Context, req Request) (Result, error) {
		return Result{}, cause
	}), time.Second, zaptest.NewLogger(t))

	_, err := a.Analyze(context.Background(), Request{})
	assertKind(t, err, apperr.KindAnalysis, MsgAnalysisFailed)
	if !errors.Is(err, cause) {
		t.Error("the cause should stay wrapped for logging")
	}
	if apperr.PublicMessage(err) != MsgAnalysisFailed {
		t.Errorf("PublicMessage leaked detail: %q", apperr.PublicMessage(err))
	}
}

func TestAdapter_CollaboratorPanic(t *testing.T) {
	a := NewAdapter(AnalyzerFunc(func(ctx context.Context, req Request) (Result, error) {
		panic("index out of range")
	}), time.Second, zaptest.NewLogger(t))

	_, err := a.Analyze(context.Background(), Request{})
	assertKind(t, err, apperr.KindAnalysis, MsgAnalysisFailed)
}

func TestAdapter_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	// Ignores its context on purpose.
	a := NewAdapter(AnalyzerFunc(func(ctx context.Context, req Request) (Result, error) {
		<-release
		return Success(), nil
	}), 20*time.Millisecond, zaptest.NewLogger(t))

	start := time.Now()
	_, err := a.Analyze(context.Background(), Request{})
	assertKind(t, err, apperr.KindTimeout, MsgTimeout)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Analyze should return at the deadline, took %s", elapsed)
	}
}

func TestAdapter_TimeoutReportedByCollaborator(t *testing.T) {
	a := NewAdapter(AnalyzerFunc(func(ctx context.Context, req Request) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	}), 10*time.Millisecond, zaptest.NewLogger(t))

	_, err := a.Analyze(context.Background(), Request{})
	assertKind(t, err, apperr.KindTimeout, MsgTimeout)
}

func TestAdapter_CallerCancelled(t *testing.T) {
	a := NewAdapter(AnalyzerFunc(func(ctx context.Context, req Request) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	}), time.Minute, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, Request{})
	assertKind(t, err, apperr.KindAnalysis, MsgAnalysisFailed)
}
