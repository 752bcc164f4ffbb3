package analyzer

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by Job.Wait when a newer image replaced the job's image
var ErrSuperseded = errors.New("analysis superseded by a newer image")

// Session tracks the analysis of one image selection at a time. Submitting a new
// image cancels the previous job, and a job that finishes after being replaced
// never overwrites the session state.
type Session struct {
	analyzer *CoverageAnalyzer

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	latest     *Result
	quality    *QualityAssessment
}

// NewSession creates a session backed by the given analyzer
func NewSession(analyzer *CoverageAnalyzer) *Session {
	if analyzer == nil {
		analyzer = New()
	}
	return &Session{analyzer: analyzer}
}

// Job is the pending outcome of one submitted analysis
type Job struct {
	generation uint64
	done       chan struct{}
	result     *Result
	err        error
}

// Generation identifies the selection this job belongs to
func (j *Job) Generation() uint64 {
	return j.generation
}

// Done is closed when the job has finished
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx is done
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Submit starts analysing req in the background. Any in-flight job is cancelled
// and all state from the previous selection is cleared before the new job starts.
// The quality advisory is available from Quality immediately.
func (s *Session) Submit(ctx context.Context, req Request) *Job {
	s.mu.Lock()
	s.resetLocked()
	gen := s.generation
	jobCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if req.Image != nil {
		b := req.Image.Bounds()
		q := s.analyzer.AssessQuality(b.Dx(), b.Dy())
		s.quality = &q
	}
	s.mu.Unlock()

	job := &Job{generation: gen, done: make(chan struct{})}
	go func() {
		defer cancel()
		res, err := s.analyzer.Analyze(jobCtx, req)
		s.complete(job, res, err)
	}()
	return job
}

func (s *Session) complete(job *Job, res *Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(job.done)

	if job.generation != s.generation {
		job.err = ErrSuperseded
		return
	}
	job.result, job.err = res, err
	if err == nil {
		s.latest = res
	}
	s.cancel = nil
}

// Reset discards the current selection: any in-flight job is cancelled and the
// result, masks and quality advisory are cleared together.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.latest = nil
	s.quality = nil
}

// Latest returns the result for the current selection, if its analysis finished
func (s *Session) Latest() (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.latest != nil
}

// Quality returns the advisory for the current selection
func (s *Session) Quality() (QualityAssessment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quality == nil {
		return QualityAssessment{}, false
	}
	return *s.quality, true
}

// Generation returns the current selection counter
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}
