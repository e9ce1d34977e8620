package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/strauser85/snap-sold-sub000/caption"
	"github.com/strauser85/snap-sold-sub000/config"
	"github.com/strauser85/snap-sold-sub000/encoder"
	"github.com/strauser85/snap-sold-sub000/media"
	"github.com/strauser85/snap-sold-sub000/render"
	"github.com/strauser85/snap-sold-sub000/schedule"
	"github.com/strauser85/snap-sold-sub000/script"
	"github.com/strauser85/snap-sold-sub000/syncclock"
	"github.com/strauser85/snap-sold-sub000/timing"
	"github.com/strauser85/snap-sold-sub000/types"
)

// State is the session lifecycle phase.
type State int

const (
	Idle State = iota
	Preparing
	Recording
	Finalizing
	Complete
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Recording:
		return "recording"
	case Finalizing:
		return "finalizing"
	case Complete:
		return "complete"
	case Errored:
		return "error"
	}
	return "unknown"
}

// Options bundles the pipeline tuning for one session.
type Options struct {
	Estimator         timing.EstimatorConfig
	Segmenter         caption.SegmenterConfig
	Scheduler         schedule.SchedulerConfig
	Codecs            []encoder.Codec
	AudioGain         float64
	Compress          bool
	DisableEstimation bool // trust only engine alignment; fall back to sentence captions
}

// DefaultOptions returns the standard listing-video tuning.
func DefaultOptions() Options {
	return Options{
		Estimator: timing.DefaultEstimatorConfig(),
		Segmenter: caption.DefaultSegmenterConfig(),
		Scheduler: schedule.DefaultSchedulerConfig(),
		Codecs:    encoder.DefaultCodecs,
		AudioGain: 1.0,
	}
}

// Preparer loads session assets; media.Prepare in production, a fake in tests.
type Preparer func(ctx context.Context, id string, imageURLs []string, audioURL string) (*media.Assets, error)

// Recorder is the capture subsystem the session drives. The ffmpeg-backed
// encoder implements it; tests substitute a scripted one. Its Position feed
// is the sync clock's source.
type Recorder interface {
	syncclock.PositionSource
	Start(ctx context.Context, plan []types.ImageDisplaySlot, assPath, audioPath string) error
	Wait() error
	Err() error
	Finalize() ([]byte, error)
}

// Session owns one recording from request to artifact: the encoder handle,
// the chunk buffer, and the immutable schedules. It is created per request
// and never shared; a new request waits for the previous session to reach a
// terminal state.
type Session struct {
	id   string
	req  types.VideoRequest
	opts Options

	prober      encoder.Prober
	prepare     Preparer
	newRecorder func(encoder.Options) Recorder

	clock *syncclock.Clock

	mu      sync.Mutex
	started bool
	state   State
	err     error
	result  *types.VideoResult
	comp    *render.Compositor
	frame   types.RenderFrame
	slots   []types.ImageDisplaySlot
	chunks  []types.CaptionChunk
	cancel  context.CancelFunc
	onState func(State)
}

// New creates an idle session. prober negotiates the codec; prepare loads
// assets (nil selects media.Prepare).
func New(req types.VideoRequest, opts Options, prober encoder.Prober, prepare Preparer) *Session {
	if prepare == nil {
		prepare = media.Prepare
	}
	if len(opts.Codecs) == 0 {
		opts.Codecs = encoder.DefaultCodecs
	}
	return &Session{
		id:      req.ID,
		req:     req,
		opts:    opts,
		prober:  prober,
		prepare: prepare,
		newRecorder: func(o encoder.Options) Recorder {
			return encoder.New(o)
		},
		clock: syncclock.New(),
	}
}

// OnState registers a callback fired on every state transition.
func (s *Session) OnState(fn func(State)) {
	s.mu.Lock()
	s.onState = fn
	s.mu.Unlock()
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal error, if the session failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Result returns the finished artifact once the session is Complete.
func (s *Session) Result() *types.VideoResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Frame returns the most recent composited frame (recording progress).
func (s *Session) Frame() types.RenderFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Preview composes a frame at an arbitrary time against the session's
// schedules. Valid once Preparing has finished.
func (s *Session) Preview(t float64) (types.RenderFrame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.comp == nil {
		return types.RenderFrame{}, false
	}
	return s.comp.Compose(t), true
}

// Stop requests cancellation. Valid while Preparing or Recording; the
// session transitions to Errored with ErrCancelled and returns no artifact.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	state := s.state
	s.mu.Unlock()

	if state == Preparing || state == Recording {
		if cancel != nil {
			cancel()
		}
	}
}

// Run executes the full lifecycle and blocks until a terminal state. A
// session owns its encoder handles exclusively and runs at most once;
// calling Run on a started session returns ErrSessionBusy without touching
// its state.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return types.ErrSessionBusy
	}
	s.started = true
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.run(ctx); err != nil {
		if ctx.Err() != nil && !errors.Is(err, types.ErrCancelled) {
			err = types.ErrCancelled
		}
		s.fail(err)
		return err
	}
	return nil
}

func (s *Session) run(ctx context.Context) error {
	s.transition(Preparing)

	clean, err := script.Sanitize(s.req.Script)
	if err != nil {
		return err
	}

	assets, err := s.prepare(ctx, s.id, s.req.ImageURLs, s.req.Voiceover)
	if err != nil {
		return err
	}
	defer assets.Cleanup()

	planned := plannedDuration(s.req.Duration, assets.AudioSecs)

	slots, err := schedule.NewScheduler(s.opts.Scheduler).Schedule(assets.ImagePaths, planned)
	if err != nil {
		return err
	}

	chunks := s.buildCaptions(clean, planned)

	codec, err := encoder.Negotiate(s.prober, s.opts.Codecs)
	if err != nil {
		return err
	}

	assPath := ""
	if len(chunks) > 0 {
		assPath = filepath.Join(assets.Dir, "captions.ass")
		if err := caption.RenderASSFile(assPath, chunks); err != nil {
			return fmt.Errorf("failed to write caption track: %w", err)
		}
	}

	enc := s.newRecorder(encoder.Options{
		Codec:     codec,
		AudioGain: s.opts.AudioGain,
		Compress:  s.opts.Compress,
	})

	comp := render.NewCompositor(slots, chunks)
	s.mu.Lock()
	s.slots = slots
	s.chunks = chunks
	s.comp = comp
	s.mu.Unlock()

	s.clock.Arm(enc, planned)

	encCtx, encCancel := context.WithCancel(ctx)
	defer encCancel()
	if err := enc.Start(encCtx, slots, assPath, assets.AudioPath); err != nil {
		return err
	}

	s.transition(Recording)
	s.clock.Start()

	if err := s.record(ctx, enc, comp, planned, encCancel); err != nil {
		return err
	}

	s.transition(Finalizing)

	if err := enc.Wait(); err != nil {
		return err
	}

	artifact, err := enc.Finalize()
	if err != nil {
		return &types.DeviceError{Op: "finalize", Err: err}
	}

	actual := s.clock.Elapsed()
	if s.clock.EndedEarly() {
		// recoverable degrade: the artifact covers the audio's actual span
		log.Printf("session %s: %v", s.id, &types.SyncError{Planned: planned, Actual: actual})
	}

	s.mu.Lock()
	s.result = &types.VideoResult{
		ID:       s.id,
		Codec:    codec.Name,
		Duration: actual,
		Artifact: artifact,
	}
	s.mu.Unlock()

	s.transition(Complete)
	return nil
}

// record drives the cooperative tick loop: read the clock, composite the
// current frame, leave when the clock stops. The deadline guarantees
// self-termination at planned+epsilon even if the encoder stalls.
func (s *Session) record(ctx context.Context, enc Recorder, comp *render.Compositor, planned float64, stopEncoder context.CancelFunc) error {
	ticker := time.NewTicker(config.TickInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(time.Duration(planned*float64(time.Second)) + config.SessionEpsilon)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			s.clock.Stop()
			return types.ErrCancelled

		case <-deadline.C:
			log.Printf("session %s: deadline reached, stopping capture", s.id)
			s.clock.Stop()
			stopEncoder()
			return nil

		case <-ticker.C:
			if err := enc.Err(); err != nil {
				s.clock.Stop()
				return err
			}

			t := s.clock.Now()
			frame := comp.Compose(t)
			s.mu.Lock()
			s.frame = frame
			s.mu.Unlock()

			if s.clock.State() == syncclock.Stopped {
				return nil
			}
		}
	}
}

// buildCaptions produces caption chunks from engine alignment, estimation,
// or the sentence fallback. A zero-word script degrades to no captions.
func (s *Session) buildCaptions(clean string, planned float64) []types.CaptionChunk {
	words := script.Tokenize(clean)
	seg := caption.NewSegmenter(s.opts.Segmenter)
	est := timing.NewEstimator(s.opts.Estimator)

	if len(s.req.WordTimings) > 0 {
		return seg.Segment(est.Align(words, s.req.WordTimings, planned))
	}
	if s.opts.DisableEstimation {
		return seg.FallbackSentences(clean, planned)
	}
	return seg.Segment(est.Estimate(words, planned))
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	s.state = next
	fn := s.onState
	s.mu.Unlock()

	log.Printf("session %s: %s", s.id, next)
	if fn != nil {
		fn(next)
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state == Complete || s.state == Errored {
		s.mu.Unlock()
		return
	}
	s.state = Errored
	s.err = err
	fn := s.onState
	s.mu.Unlock()

	log.Printf("session %s failed: %v", s.id, err)
	if fn != nil {
		fn(Errored)
	}
}

// plannedDuration reconciles the requested duration with the audio's real
// length: the audio wins when shorter, the global ceiling always applies.
func plannedDuration(requested, audio float64) float64 {
	planned := audio
	if requested > 0 && requested < planned {
		planned = requested
	}
	if planned > config.MaxVideoDuration {
		planned = config.MaxVideoDuration
	}
	return planned
}
