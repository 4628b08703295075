// ABOUTME: Coactivation engine (C7): durable job-queue worker replacing the legacy in-memory-buffer pattern
// ABOUTME: Polls pending jobs, increments waypoint-edge weights for every pair of co-returned members, retries with backoff
package coactivation

import (
	"context"
	"time"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/logging"
	"github.com/harper/cortexmem/internal/util"
)

var log = logging.For("coactivation")

// Mode selects how the coactivation engine drains co-occurrence signal into
// waypoint edges, per spec §4.7 / §6 COACTIVATION_MODE.
type Mode string

const (
	// ModeCron is the durable-queue worker (recommended, default): a
	// process-local or externally-scheduled poller claims batches from
	// JobQueue and reconciles them into edge weights.
	ModeCron Mode = "cron"
	// ModeInterval is the legacy in-memory buffer-and-flush pattern. It is
	// explicitly disallowed in production (spec §4.7: "explicitly
	// disallowed... they lose data on crash and grow unbounded"). Config
	// accepts the value, but no in-memory buffer is implemented:
	// app.RunBackgroundJobs starts the worker only for ModeCron, so under
	// this mode published jobs stay pending, as with ModeDisabled.
	ModeInterval Mode = "interval"
	// ModeDisabled turns coactivation off entirely: queries still publish
	// jobs (HSG doesn't know the mode), but nothing ever drains them.
	ModeDisabled Mode = "disabled"
)

// MaxRetries is the number of times a failed job is requeued with backoff
// before being marked permanently failed and surfaced for alerting.
const MaxRetries = 5

// JobQueue is the durable queue contract the worker polls; satisfied by
// internal/store/sqlite.JobStore.
type JobQueue interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.CoactivationJob, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause error, requeue bool, nextAttempt time.Time) error
}

// EdgeIncrementer is the waypoint-graph write side the worker reconciles
// into; satisfied by internal/store/sqlite.WaypointStore.
type EdgeIncrementer interface {
	MembershipOf(ctx context.Context, memoryID string, sector domain.Sector) (string, bool, error)
	UpsertEdge(ctx context.Context, a, b string, delta float64, at time.Time) error
}

// EdgeWeightStep is the amount added to a waypoint-edge's weight per
// coactivation event; the spec leaves the exact increment implementation-
// tunable, only requiring monotonic, non-negative accumulation.
const EdgeWeightStep = 1.0

// Worker drains pending coactivation jobs into waypoint edge-weight updates.
type Worker struct {
	jobs      JobQueue
	waypoints EdgeIncrementer
	batchSize int
	now       func() time.Time
}

func New(jobs JobQueue, waypoints EdgeIncrementer, batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Worker{jobs: jobs, waypoints: waypoints, batchSize: batchSize, now: time.Now}
}

// RunOnce claims and processes a single batch of pending jobs, returning the
// count processed. Intended to be called from a periodic scheduler (cron
// mode) or a poll loop (Run).
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	jobs, err := w.jobs.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.BackendUnavailable, "claim pending coactivation jobs", err)
	}
	for _, j := range jobs {
		w.process(ctx, j)
	}
	return len(jobs), nil
}

// Run polls RunOnce every interval until ctx is canceled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.RunOnce(ctx)
			if err != nil {
				log.Error("coactivation poll failed", "err", err)
				continue
			}
			if n > 0 {
				log.Debug("processed coactivation batch", "count", n)
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, j *domain.CoactivationJob) {
	if err := w.reconcile(ctx, j); err != nil {
		requeue := j.Retries < MaxRetries
		nextAttempt := w.now().UTC().Add(Backoff(j.Retries + 1))
		if err := w.jobs.MarkFailed(ctx, j.ID, err, requeue, nextAttempt); err != nil {
			log.Error("mark coactivation job failed", "job_id", j.ID, "err", err)
		}
		if !requeue {
			log.Error("coactivation job exhausted retries, alerting", "job_id", j.ID, "cause", err)
		} else {
			log.Debug("requeued coactivation job with backoff", "job_id", j.ID, "retries", j.Retries+1, "next_attempt_at", nextAttempt)
		}
		return
	}
	if err := w.jobs.MarkDone(ctx, j.ID); err != nil {
		log.Error("mark coactivation job done", "job_id", j.ID, "err", err)
	}
}

// reconcile looks up the waypoint each member currently belongs to and
// increments the edge weight between every distinct pair, accumulating
// commutatively per spec §5 ("concurrent increments are safe provided the
// storage supports atomic UPDATE ... SET weight = weight + ?").
func (w *Worker) reconcile(ctx context.Context, j *domain.CoactivationJob) error {
	seen := make(map[string]bool)
	var waypointIDs []string
	for _, m := range j.Members {
		wpID, ok, err := w.waypoints.MembershipOf(ctx, m.MemoryID, m.Sector)
		if err != nil {
			return err
		}
		if !ok || seen[wpID] {
			continue
		}
		seen[wpID] = true
		waypointIDs = append(waypointIDs, wpID)
	}

	at := w.now().UTC()
	for i := 0; i < len(waypointIDs); i++ {
		for k := i + 1; k < len(waypointIDs); k++ {
			a, b := waypointIDs[i], waypointIDs[k]
			if a == b {
				continue
			}
			if err := w.waypoints.UpsertEdge(ctx, a, b, EdgeWeightStep, at); err != nil {
				return err
			}
		}
	}
	return nil
}

// Backoff returns the delay before requeuing a job that has failed
// attempt times, grounded on the teacher's util.CalculateBackoff.
func Backoff(attempt int) time.Duration {
	return util.CalculateBackoff(500*time.Millisecond, attempt)
}
