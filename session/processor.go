package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/strauser85/snap-sold-sub000/config"
	"github.com/strauser85/snap-sold-sub000/encoder"
	"github.com/strauser85/snap-sold-sub000/jobs"
	"github.com/strauser85/snap-sold-sub000/narration"
	"github.com/strauser85/snap-sold-sub000/script"
	"github.com/strauser85/snap-sold-sub000/types"
)

// Uploader delivers the finished artifact; the S3 store implements it.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// DeliveryChecker is the optional Uploader extension for stores that can
// detect an already delivered artifact. Redelivered requests (a Kafka retry,
// a double POST) then skip the whole re-encode.
type DeliveryChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
	ObjectURL(key string) string
}

// Processor serializes video requests through recording sessions. Encoder
// and audio handles are exclusive: the semaphore admits one session at a
// time and later requests wait for a terminal state.
type Processor struct {
	store    jobs.Store
	prober   encoder.Prober
	opts     Options
	narrator *narration.Client
	uploader Uploader
	saveDir  string
	prepare  Preparer

	// test seam: substitutes the ffmpeg-backed recorder
	newRecorder func(encoder.Options) Recorder

	sem chan struct{}

	mu       sync.Mutex
	sessions map[string]*Session
	retired  []string // finished session IDs, oldest first
}

// maxRetainedSessions bounds how many finished sessions stay available for
// previews; older ones are evicted with their schedules and frame.
const maxRetainedSessions = 8

// NewProcessor creates a processor writing artifacts under saveDir.
func NewProcessor(store jobs.Store, prober encoder.Prober, opts Options) *Processor {
	return &Processor{
		store:    store,
		prober:   prober,
		opts:     opts,
		saveDir:  config.OutputDir,
		sem:      make(chan struct{}, config.MaxConcurrentSessions),
		sessions: make(map[string]*Session),
	}
}

// SetNarrator enables synthesis for requests arriving without a voiceover.
func (p *Processor) SetNarrator(c *narration.Client) { p.narrator = c }

// SetUploader enables artifact delivery. Without one, artifacts are only
// written to the local output directory.
func (p *Processor) SetUploader(u Uploader) { p.uploader = u }

// SetSaveDir overrides the local artifact directory.
func (p *Processor) SetSaveDir(dir string) { p.saveDir = dir }

// Session returns the live or finished session for a job, for previews.
func (p *Processor) Session(id string) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	return s, ok
}

// Validate rejects malformed requests before any job or session exists.
func (p *Processor) Validate(req *types.VideoRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if _, err := script.Sanitize(req.Script); err != nil {
		return err
	}
	if len(req.ImageURLs) == 0 {
		return types.NewInputError("at least one image is required")
	}
	if req.Voiceover == "" && p.narrator == nil {
		return types.NewInputError("voiceover url is required")
	}
	return nil
}

// Process runs one request end to end: narration (if needed), the recording
// session, and delivery. It blocks until the session reaches a terminal
// state, so callers typically run it on its own goroutine.
func (p *Processor) Process(ctx context.Context, req types.VideoRequest) error {
	if err := p.Validate(&req); err != nil {
		return err
	}

	if url, codecName, ok := p.alreadyDelivered(ctx, req.ID); ok {
		log.Printf("job %s already delivered, skipping re-encode: %s", req.ID, url)
		p.putJob(ctx, jobs.Job{ID: req.ID, Status: jobs.StatusComplete, Codec: codecName, OutputURL: url})
		return nil
	}

	p.putJob(ctx, jobs.Job{ID: req.ID, Status: jobs.StatusQueued})

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		p.putJob(ctx, jobs.Job{ID: req.ID, Status: jobs.StatusError, Error: ctx.Err().Error()})
		return ctx.Err()
	}
	defer func() { <-p.sem }()

	if req.Voiceover == "" {
		clean, _ := script.Sanitize(req.Script)
		res, err := p.narrator.Synthesize(ctx, clean)
		if err != nil {
			err = fmt.Errorf("narration failed: %w", err)
			p.putJob(ctx, jobs.Job{ID: req.ID, Status: jobs.StatusError, Error: err.Error()})
			return err
		}
		req.Voiceover = res.AudioURL
		req.WordTimings = res.WordTimings
		if req.Duration == 0 {
			req.Duration = res.Duration
		}
	}

	sess := New(req, p.opts, p.prober, p.prepare)
	if p.newRecorder != nil {
		sess.newRecorder = p.newRecorder
	}
	p.mu.Lock()
	p.sessions[req.ID] = sess
	p.mu.Unlock()
	defer p.retireSession(req.ID)

	sess.OnState(func(st State) {
		job := jobs.Job{ID: req.ID, Status: jobStatus(st)}
		if st == Errored && sess.Err() != nil {
			job.Error = sess.Err().Error()
		}
		p.putJob(context.Background(), job)
	})

	if err := sess.Run(ctx); err != nil {
		p.putJob(context.Background(), jobs.Job{ID: req.ID, Status: jobs.StatusError, Error: err.Error()})
		return err
	}

	result := sess.Result()
	outputURL, err := p.deliver(ctx, result)
	if err != nil {
		p.putJob(ctx, jobs.Job{ID: req.ID, Status: jobs.StatusError, Error: err.Error()})
		return err
	}

	p.putJob(ctx, jobs.Job{
		ID:        req.ID,
		Status:    jobs.StatusComplete,
		Codec:     result.Codec,
		Duration:  result.Duration,
		OutputURL: outputURL,
	})
	log.Printf("job %s complete: codec=%s duration=%.2fs size=%d", req.ID, result.Codec, result.Duration, len(result.Artifact))
	return nil
}

// alreadyDelivered checks the delivery target for an artifact from a prior
// run of the same request. The key depends on the negotiated container, so
// negotiation happens up front; any failure just falls through to a normal
// run.
func (p *Processor) alreadyDelivered(ctx context.Context, id string) (url, codecName string, ok bool) {
	dc, isChecker := p.uploader.(DeliveryChecker)
	if !isChecker {
		return "", "", false
	}
	codec, err := encoder.Negotiate(p.prober, p.opts.Codecs)
	if err != nil {
		return "", "", false
	}
	key := id + "." + codec.Container
	exists, err := dc.Exists(ctx, key)
	if err != nil {
		log.Printf("delivery check failed for %s: %v", id, err)
		return "", "", false
	}
	if !exists {
		return "", "", false
	}
	return dc.ObjectURL(key), codec.Name, true
}

// retireSession moves a finished session into the bounded retention window.
func (p *Processor) retireSession(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retired = append(p.retired, id)
	for len(p.retired) > maxRetainedSessions {
		delete(p.sessions, p.retired[0])
		p.retired = p.retired[1:]
	}
}

// Stop cancels the session for a job, if one is running.
func (p *Processor) Stop(id string) bool {
	p.mu.Lock()
	sess, ok := p.sessions[id]
	p.mu.Unlock()
	if !ok {
		return false
	}
	sess.Stop()
	return true
}

func (p *Processor) deliver(ctx context.Context, result *types.VideoResult) (string, error) {
	ext := containerExt(result.Codec)
	if p.saveDir != "" {
		if err := os.MkdirAll(p.saveDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output dir: %w", err)
		}
		path := filepath.Join(p.saveDir, result.ID+ext)
		if err := os.WriteFile(path, result.Artifact, 0o644); err != nil {
			return "", fmt.Errorf("failed to write artifact: %w", err)
		}
		log.Printf("artifact saved: %s", path)
	}

	if p.uploader == nil {
		log.Printf("skipping upload (no delivery configured)")
		return "", nil
	}
	return p.uploader.Upload(ctx, result.ID+ext, result.Artifact, contentType(result.Codec))
}

func (p *Processor) putJob(ctx context.Context, job jobs.Job) {
	if err := p.store.Put(ctx, job); err != nil {
		log.Printf("job store update failed for %s: %v", job.ID, err)
	}
}

func jobStatus(st State) jobs.Status {
	switch st {
	case Preparing:
		return jobs.StatusPreparing
	case Recording:
		return jobs.StatusRecording
	case Finalizing:
		return jobs.StatusFinalizing
	case Complete:
		return jobs.StatusComplete
	case Errored:
		return jobs.StatusError
	}
	return jobs.StatusQueued
}

func containerExt(codecName string) string {
	for _, c := range encoder.DefaultCodecs {
		if c.Name == codecName {
			return "." + c.Container
		}
	}
	return ".bin"
}

func contentType(codecName string) string {
	for _, c := range encoder.DefaultCodecs {
		if c.Name == codecName {
			return "video/" + c.Container
		}
	}
	return "application/octet-stream"
}
