// ABOUTME: Durable coactivation job queue (C7), grounded on the teacher's Scribe retry pattern
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
)

// JobStore persists domain.CoactivationJob rows backing the durable worker queue.
type JobStore struct {
	db *DB
}

func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) Enqueue(_ context.Context, j *domain.CoactivationJob) error {
	payload, err := json.Marshal(j.Members)
	if err != nil {
		return cortexerr.Wrap(cortexerr.InvalidInput, "marshal job payload", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO coactivation_jobs (id, status, payload, query_at, retries, last_error, enqueued_at, updated_at, next_attempt_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, string(domain.JobPending), payload, j.QueryAt.Unix(), 0, nil, j.EnqueuedAt.Unix(), j.EnqueuedAt.Unix(), 0)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "enqueue coactivation job", err)
	}
	return nil
}

// ClaimPending atomically marks up to limit pending jobs as running and
// returns them, so multiple workers never double-process the same job.
func (s *JobStore) ClaimPending(_ context.Context, limit int) ([]*domain.CoactivationJob, error) {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "begin claim", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`
		SELECT id, status, payload, query_at, retries, last_error, enqueued_at, updated_at
		FROM coactivation_jobs WHERE status = ? AND next_attempt_at <= ? ORDER BY enqueued_at ASC LIMIT ?
	`, string(domain.JobPending), time.Now().Unix(), limit)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "query pending jobs", err)
	}
	var jobs []*domain.CoactivationJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	now := time.Now().Unix()
	for _, j := range jobs {
		if _, err := tx.Exec(`UPDATE coactivation_jobs SET status = ?, updated_at = ? WHERE id = ?`,
			string(domain.JobRunning), now, j.ID); err != nil {
			return nil, cortexerr.Wrap(cortexerr.Internal, "claim job", err)
		}
		j.Status = domain.JobRunning
	}
	if err := tx.Commit(); err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "commit claim", err)
	}
	return jobs, nil
}

func (s *JobStore) MarkDone(_ context.Context, id string) error {
	_, err := s.db.Exec(`UPDATE coactivation_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(domain.JobDone), time.Now().Unix(), id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "mark job done", err)
	}
	return nil
}

// MarkFailed increments retries and records the error. When requeue is true
// the job goes back to pending but is not claimable again until
// nextAttempt, giving the caller's exponential backoff teeth; ClaimPending's
// WHERE clause enforces this.
func (s *JobStore) MarkFailed(_ context.Context, id string, cause error, requeue bool, nextAttempt time.Time) error {
	status := domain.JobFailed
	var nextAttemptUnix int64
	if requeue {
		status = domain.JobPending
		nextAttemptUnix = nextAttempt.Unix()
	}
	_, err := s.db.Exec(`
		UPDATE coactivation_jobs SET status = ?, retries = retries + 1, last_error = ?, updated_at = ?, next_attempt_at = ?
		WHERE id = ?
	`, string(status), cause.Error(), time.Now().Unix(), nextAttemptUnix, id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "mark job failed", err)
	}
	return nil
}

func scanJob(row rowScanner) (*domain.CoactivationJob, error) {
	var j domain.CoactivationJob
	var status, payloadJSON string
	var lastError sql.NullString
	var queryAt, enqueuedAt, updatedAt int64

	if err := row.Scan(&j.ID, &status, &payloadJSON, &queryAt, &j.Retries, &lastError, &enqueuedAt, &updatedAt); err != nil {
		return nil, err
	}
	j.Status = domain.JobStatus(status)
	if lastError.Valid {
		j.LastError = lastError.String
	}
	j.QueryAt = time.Unix(queryAt, 0).UTC()
	j.EnqueuedAt = time.Unix(enqueuedAt, 0).UTC()
	j.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if err := json.Unmarshal([]byte(payloadJSON), &j.Members); err != nil {
		return nil, err
	}
	return &j, nil
}
