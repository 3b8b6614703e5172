// Package status persists and reads design job lifecycle state. Job status is
// the hottest read path (clients poll it while the worker runs), so reads go
// through a short-lived in-process cache; every write invalidates the cached
// entry.
package status

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"anglestudio/internal/domain"
	"anglestudio/internal/infra"
	"anglestudio/internal/sqlinline"
)

type Store struct {
	sql   infra.SQLExecutor
	cache *gocache.Cache
}

func NewStore(sql infra.SQLExecutor, cacheTTL time.Duration) *Store {
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Second
	}
	return &Store{
		sql:   sql,
		cache: gocache.New(cacheTTL, 10*cacheTTL),
	}
}

// Enqueue inserts a new QUEUED job and returns its id.
func (s *Store) Enqueue(ctx context.Context, inputsJSON []byte, angles []string, locale string) (string, time.Time, error) {
	var id string
	var createdAt time.Time
	err := s.sql.QueryRow(ctx, sqlinline.QEnqueueDesignJob, inputsJSON, angles, locale).Scan(&id, &createdAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("status: enqueue job: %w", err)
	}
	return id, createdAt, nil
}

// Claim atomically picks the oldest QUEUED job, marks it RUNNING, and returns
// it. A nil job with a nil error means the queue is empty.
func (s *Store) Claim(ctx context.Context) (*domain.DesignJob, error) {
	job := &domain.DesignJob{Status: domain.DesignJobRunning}
	err := s.sql.QueryRow(ctx, sqlinline.QClaimDesignJob).Scan(&job.ID, &job.InputsJSON, &job.Angles, &job.Locale, &job.CreatedAt)
	if infra.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("status: claim job: %w", err)
	}
	s.cache.Delete(job.ID)
	return job, nil
}

// Finish records the terminal status of a job together with its debug notes
// and, for failures, the error message shown to the client.
func (s *Store) Finish(ctx context.Context, id string, status domain.DesignJobStatus, debugNotes, errorMessage string) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QFinishDesignJob, id, string(status), debugNotes, errorMessage); err != nil {
		return fmt.Errorf("status: finish job: %w", err)
	}
	s.cache.Delete(id)
	return nil
}

// Get returns the job record, serving repeat polls from the cache until its
// TTL lapses or a write invalidates it.
func (s *Store) Get(ctx context.Context, id string) (domain.DesignJob, error) {
	if cached, ok := s.cache.Get(id); ok {
		if job, ok := cached.(domain.DesignJob); ok {
			return job, nil
		}
	}
	var job domain.DesignJob
	err := s.sql.QueryRow(ctx, sqlinline.QGetDesignJob, id).Scan(
		&job.ID, &job.Status, &job.InputsJSON, &job.Angles,
		&job.Locale, &job.DebugNotes, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if infra.IsNoRows(err) {
		return domain.DesignJob{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DesignJob{}, fmt.Errorf("status: get job: %w", err)
	}
	s.cache.SetDefault(id, job)
	return job, nil
}

// InsertAsset records one generated (or failed) angle for a job. Position is
// the angle's index in the original request, which is what keeps result order
// stable across reads.
func (s *Store) InsertAsset(ctx context.Context, asset domain.AngleAsset, position int) (string, error) {
	var id string
	err := s.sql.QueryRow(ctx, sqlinline.QInsertAngleAsset,
		asset.JobID, position, asset.Angle, asset.StorageKey,
		asset.MIME, asset.SizeBytes, asset.FailReason,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("status: insert angle asset: %w", err)
	}
	return id, nil
}

// ListAssets returns a job's angle records in request order.
func (s *Store) ListAssets(ctx context.Context, jobID string) ([]domain.AngleAsset, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListAngleAssets, jobID)
	if err != nil {
		return nil, fmt.Errorf("status: list angle assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.AngleAsset
	for rows.Next() {
		var a domain.AngleAsset
		if err := rows.Scan(&a.ID, &a.JobID, &a.Angle, &a.StorageKey, &a.MIME, &a.SizeBytes, &a.FailReason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("status: scan angle asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("status: iterate angle assets: %w", err)
	}
	return assets, nil
}
