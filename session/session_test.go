package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/strauser85/snap-sold-sub000/encoder"
	"github.com/strauser85/snap-sold-sub000/media"
	"github.com/strauser85/snap-sold-sub000/types"
)

type allowAllProber struct{}

func (allowAllProber) Supports(encoder.Codec) bool { return true }

type denyAllProber struct{}

func (denyAllProber) Supports(encoder.Codec) bool { return false }

// fakeRecorder simulates the capture subsystem: its position advances by
// step on every read until it reaches limit, then it reports inactive.
type fakeRecorder struct {
	step  float64
	limit float64
	data  []byte

	mu      sync.Mutex
	pos     float64
	started bool
	done    chan struct{}
	once    sync.Once
	err     error
}

func (f *fakeRecorder) finish() {
	f.once.Do(func() { close(f.done) })
}

func newFakeRecorder(step, limit float64, data []byte) *fakeRecorder {
	return &fakeRecorder{step: step, limit: limit, data: data, done: make(chan struct{})}
}

func (f *fakeRecorder) Position() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return 0, false
	}
	if f.pos >= f.limit {
		return f.pos, false
	}
	f.pos += f.step
	if f.pos > f.limit {
		f.pos = f.limit
	}
	return f.pos, true
}

func (f *fakeRecorder) Start(ctx context.Context, plan []types.ImageDisplaySlot, assPath, audioPath string) error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Second):
		}
		f.finish()
	}()
	go func() {
		// the "process" exits shortly after the position feed dries up
		for {
			f.mu.Lock()
			finished := f.pos >= f.limit
			f.mu.Unlock()
			if finished {
				f.finish()
				return
			}
			select {
			case <-f.done:
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}()
	return nil
}

func (f *fakeRecorder) Wait() error {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeRecorder) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeRecorder) Finalize() ([]byte, error) {
	if len(f.data) == 0 {
		return nil, types.ErrEmptyRecording
	}
	return f.data, nil
}

func fakePreparer(t *testing.T, images int, audioSecs float64) Preparer {
	return func(ctx context.Context, id string, imageURLs []string, audioURL string) (*media.Assets, error) {
		// Dir is session-scoped and removed by Assets.Cleanup, so each call
		// must hand out a fresh directory like media.Prepare does.
		dir := t.TempDir()
		paths := make([]string, images)
		for i := range paths {
			paths[i] = "img.jpg"
		}
		return &media.Assets{Dir: dir, ImagePaths: paths, AudioPath: "voice.mp3", AudioSecs: audioSecs}, nil
	}
}

func testRequest() types.VideoRequest {
	return types.VideoRequest{
		ID:        "t1",
		Script:    "Welcome to this stunning home. Three bedrooms, two bathrooms!",
		ImageURLs: []string{"a", "b", "c", "d", "e"},
		Voiceover: "https://cdn.example.com/v.mp3",
		Duration:  1.0,
	}
}

func runSession(t *testing.T, rec Recorder, req types.VideoRequest) (*Session, error) {
	t.Helper()
	s := New(req, DefaultOptions(), allowAllProber{}, fakePreparer(t, 5, req.Duration))
	s.newRecorder = func(encoder.Options) Recorder { return rec }
	return s, s.Run(context.Background())
}

func TestSessionCompletes(t *testing.T) {
	rec := newFakeRecorder(0.5, 1.0, []byte("artifact"))
	s, err := runSession(t, rec, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	if s.State() != Complete {
		t.Fatalf("state = %v, want complete", s.State())
	}
	res := s.Result()
	if res == nil {
		t.Fatal("no result")
	}
	if string(res.Artifact) != "artifact" {
		t.Errorf("artifact = %q", res.Artifact)
	}
	if res.Codec != "h264-aac" {
		t.Errorf("codec = %s, want best candidate", res.Codec)
	}
	if res.Duration != 1.0 {
		t.Errorf("duration = %.2f, want 1.0", res.Duration)
	}
}

func TestSessionStateOrder(t *testing.T) {
	rec := newFakeRecorder(0.5, 1.0, []byte("artifact"))
	s := New(testRequest(), DefaultOptions(), allowAllProber{}, fakePreparer(t, 5, 1.0))
	s.newRecorder = func(encoder.Options) Recorder { return rec }

	var mu sync.Mutex
	var seen []State
	s.OnState(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []State{Preparing, Recording, Finalizing, Complete}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", seen, want)
		}
	}
}

func TestSessionEmptyRecordingIsError(t *testing.T) {
	rec := newFakeRecorder(0.5, 1.0, nil)
	s, err := runSession(t, rec, testRequest())

	if !errors.Is(err, types.ErrEmptyRecording) {
		t.Fatalf("want ErrEmptyRecording, got %v", err)
	}
	if s.State() != Errored {
		t.Errorf("state = %v, want error", s.State())
	}
	if s.Result() != nil {
		t.Error("errored session must not return an artifact")
	}
}

func TestSessionAudioEndsEarly(t *testing.T) {
	// audio dries up at 0.6s of a planned 1.0s; partial artifact is valid
	rec := newFakeRecorder(0.3, 0.6, []byte("partial"))
	s, err := runSession(t, rec, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	res := s.Result()
	if res == nil {
		t.Fatal("no result")
	}
	if res.Duration != 0.6 {
		t.Errorf("duration = %.2f, want 0.6 (audio's actual end)", res.Duration)
	}
}

func TestSessionNoCodecIsFatal(t *testing.T) {
	rec := newFakeRecorder(0.5, 1.0, []byte("x"))
	s := New(testRequest(), DefaultOptions(), denyAllProber{}, fakePreparer(t, 5, 1.0))
	s.newRecorder = func(encoder.Options) Recorder { return rec }

	err := s.Run(context.Background())
	if !errors.Is(err, types.ErrNoCodec) {
		t.Fatalf("want ErrNoCodec, got %v", err)
	}
	if s.State() != Errored {
		t.Errorf("state = %v", s.State())
	}
}

func TestSessionStop(t *testing.T) {
	// a long recording that would take many ticks
	rec := newFakeRecorder(0.001, 60, []byte("x"))
	req := testRequest()
	req.Duration = 60

	s := New(req, DefaultOptions(), allowAllProber{}, fakePreparer(t, 5, 60))
	s.newRecorder = func(encoder.Options) Recorder { return rec }

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()

	// wait until it is actually recording, then stop
	deadline := time.After(5 * time.Second)
	for s.State() != Recording {
		select {
		case <-deadline:
			t.Fatal("never reached recording")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()

	err := <-errCh
	if !errors.Is(err, types.ErrCancelled) {
		t.Fatalf("want ErrCancelled, got %v", err)
	}
	if s.State() != Errored {
		t.Errorf("state = %v, want error", s.State())
	}
	if s.Result() != nil {
		t.Error("cancelled session must not return an artifact")
	}
}

func TestSessionRunIsSingleUse(t *testing.T) {
	rec := newFakeRecorder(0.5, 1.0, []byte("artifact"))
	s, err := runSession(t, rec, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); !errors.Is(err, types.ErrSessionBusy) {
		t.Fatalf("second Run: want ErrSessionBusy, got %v", err)
	}
	if s.State() != Complete {
		t.Errorf("rejected rerun disturbed state: %s", s.State())
	}
	if s.Result() == nil {
		t.Error("rejected rerun dropped the artifact")
	}
}

func TestSessionEmptyScriptRejected(t *testing.T) {
	rec := newFakeRecorder(0.5, 1.0, []byte("x"))
	req := testRequest()
	req.Script = "   "

	_, err := runSession(t, rec, req)
	var ie *types.InputError
	if !errors.As(err, &ie) {
		t.Fatalf("want InputError, got %v", err)
	}
}

func TestSessionPreviewAfterPrepare(t *testing.T) {
	rec := newFakeRecorder(0.5, 1.0, []byte("artifact"))
	s, err := runSession(t, rec, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	frame, ok := s.Preview(0.5)
	if !ok {
		t.Fatal("preview unavailable after completion")
	}
	if frame.ImageRef == "" {
		t.Error("preview frame has no image")
	}
}

func TestPlannedDuration(t *testing.T) {
	tests := []struct {
		requested, audio, want float64
	}{
		{0, 40, 40},     // audio drives when nothing requested
		{30, 40, 30},    // shorter request wins
		{50, 40, 40},    // audio is the ceiling
		{0, 500, 180},   // global maximum applies
		{200, 500, 180}, // both over the maximum
	}
	for _, tt := range tests {
		if got := plannedDuration(tt.requested, tt.audio); got != tt.want {
			t.Errorf("plannedDuration(%.0f, %.0f) = %.0f, want %.0f", tt.requested, tt.audio, got, tt.want)
		}
	}
}
