package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// GuideJobRepo persists guide-generation jobs using a minimal pgx pool.
type GuideJobRepo struct{ Pool PgxPool }

// NewGuideJobRepo constructs a GuideJobRepo with the given pool.
func NewGuideJobRepo(p PgxPool) *GuideJobRepo { return &GuideJobRepo{Pool: p} }

// Create inserts a new job and returns its id.
func (r *GuideJobRepo) Create(ctx domain.Context, j domain.GuideJob) (string, error) {
	tracer := otel.Tracer("repo.guidejobs")
	ctx, span := tracer.Start(ctx, "guidejobs.Create")
	span.SetAttributes(attribute.String("kind", string(j.Kind)))
	defer span.End()

	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	params, err := json.Marshal(j.Params)
	if err != nil {
		return "", fmt.Errorf("op=guidejob.create: %w", err)
	}
	now := time.Now().UTC()
	q := `INSERT INTO guide_jobs (id, user_id, kind, status, params, error, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,'',$6,$7)`
	if _, err := r.Pool.Exec(ctx, q, id, j.UserID, string(j.Kind), string(j.Status), params, now, now); err != nil {
		return "", fmt.Errorf("op=guidejob.create: %w", err)
	}
	return id, nil
}

// UpdateStatus updates a job's status and optional error message.
func (r *GuideJobRepo) UpdateStatus(ctx domain.Context, id string, status domain.GuideJobStatus, errMsg string) error {
	tracer := otel.Tracer("repo.guidejobs")
	ctx, span := tracer.Start(ctx, "guidejobs.UpdateStatus")
	defer span.End()

	q := `UPDATE guide_jobs SET status=$2, error=$3, updated_at=$4 WHERE id=$1`
	if _, err := r.Pool.Exec(ctx, q, id, string(status), errMsg, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=guidejob.update_status: %w", err)
	}
	return nil
}

// SaveResult stores the generated document and marks the job completed.
func (r *GuideJobRepo) SaveResult(ctx domain.Context, id string, result json.RawMessage) error {
	tracer := otel.Tracer("repo.guidejobs")
	ctx, span := tracer.Start(ctx, "guidejobs.SaveResult")
	defer span.End()

	q := `UPDATE guide_jobs SET status=$2, result=$3, updated_at=$4 WHERE id=$1`
	if _, err := r.Pool.Exec(ctx, q, id, string(domain.JobCompleted), []byte(result), time.Now().UTC()); err != nil {
		return fmt.Errorf("op=guidejob.save_result: %w", err)
	}
	return nil
}

// Get loads a job by id.
func (r *GuideJobRepo) Get(ctx domain.Context, id string) (domain.GuideJob, error) {
	tracer := otel.Tracer("repo.guidejobs")
	ctx, span := tracer.Start(ctx, "guidejobs.Get")
	defer span.End()

	q := `SELECT id, user_id, kind, status, params, COALESCE(result, 'null'::jsonb), COALESCE(error,''), created_at, updated_at FROM guide_jobs WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var j domain.GuideJob
	var kind, status string
	var params, result []byte
	if err := row.Scan(&j.ID, &j.UserID, &kind, &status, &params, &result, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.GuideJob{}, fmt.Errorf("op=guidejob.get: %w", domain.ErrNotFound)
		}
		return domain.GuideJob{}, fmt.Errorf("op=guidejob.get: %w", err)
	}
	j.Kind = domain.GuideJobKind(kind)
	j.Status = domain.GuideJobStatus(status)
	if err := json.Unmarshal(params, &j.Params); err != nil {
		return domain.GuideJob{}, fmt.Errorf("op=guidejob.get: params: %w", err)
	}
	if string(result) != "null" {
		j.Result = result
	}
	return j, nil
}
