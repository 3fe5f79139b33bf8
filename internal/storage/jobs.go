package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// ErrJobNotFound is returned when no durable row exists for a job ID.
var ErrJobNotFound = errors.New("job record not found")

// JobDB is the durable mirror of job state in SQLite. Every write is
// best-effort from the pipeline's point of view: callers log failures
// and keep going on the in-memory record.
type JobDB struct {
	db *sql.DB
}

// NewJobDB opens (or creates) the SQLite database at dbPath.
func NewJobDB(dbPath string) (*JobDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		job_type TEXT NOT NULL,
		input_type TEXT NOT NULL,
		request_name TEXT NOT NULL,
		source_url TEXT,
		target_language TEXT,
		output_formats TEXT,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		status_message TEXT,
		result_text TEXT,
		result_files TEXT,
		error_message TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}

	return &JobDB{db: db}, nil
}

// Insert writes the initial row for a freshly submitted job.
func (jdb *JobDB) Insert(job *types.Job) error {
	formats := make([]string, len(job.OutputFormats))
	for i, f := range job.OutputFormats {
		formats[i] = string(f)
	}

	query := `
	INSERT INTO jobs (job_id, job_type, input_type, request_name, source_url,
		target_language, output_formats, status, progress, status_message,
		created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	_, err := jdb.db.Exec(query,
		job.ID, string(job.Type), string(job.InputType), job.RequestName,
		job.SourceURL, job.TargetLanguage, strings.Join(formats, ","),
		string(types.StatusPending), 0, "Job accepted", now, now)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// UpdateProgress mirrors a stage checkpoint into the durable row.
func (jdb *JobDB) UpdateProgress(jobID string, status types.Status, progress int, message string) error {
	query := `
	UPDATE jobs SET status = ?, progress = ?, status_message = ?, updated_at = ?
	WHERE job_id = ?
	`
	_, err := jdb.db.Exec(query, string(status), progress, message, time.Now(), jobID)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// Finish writes the terminal state for a job in a single statement.
func (jdb *JobDB) Finish(jobID string, status types.Status, resultText string, resultFiles []string, errMsg string) error {
	progress := 0
	message := "Failed"
	if status == types.StatusCompleted {
		progress = 100
		message = "Completed"
	}

	query := `
	UPDATE jobs SET status = ?, progress = ?, status_message = ?, result_text = ?,
		result_files = ?, error_message = ?, updated_at = ?
	WHERE job_id = ?
	`
	_, err := jdb.db.Exec(query, string(status), progress, message, resultText,
		strings.Join(resultFiles, "\n"), errMsg, time.Now(), jobID)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	return nil
}

// Get loads the durable row for a job ID.
func (jdb *JobDB) Get(jobID string) (*types.Job, error) {
	query := `
	SELECT job_id, job_type, input_type, request_name, source_url, target_language,
		output_formats, status, progress, status_message, result_text, result_files,
		error_message, created_at, updated_at
	FROM jobs WHERE job_id = ?
	`

	job, err := scanJob(jdb.db.QueryRow(query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// List returns the most recent jobs, newest first.
func (jdb *JobDB) List(limit int) ([]*types.Job, error) {
	query := `
	SELECT job_id, job_type, input_type, request_name, source_url, target_language,
		output_formats, status, progress, status_message, result_text, result_files,
		error_message, created_at, updated_at
	FROM jobs ORDER BY created_at DESC LIMIT ?
	`

	rows, err := jdb.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*types.Job, error) {
	var (
		job      types.Job
		jobType  string
		inType   string
		status   string
		srcURL   sql.NullString
		lang     sql.NullString
		formats  sql.NullString
		message  sql.NullString
		result   sql.NullString
		files    sql.NullString
		errMsg   sql.NullString
	)

	err := row.Scan(&job.ID, &jobType, &inType, &job.RequestName, &srcURL, &lang,
		&formats, &status, &job.Progress, &message, &result, &files, &errMsg,
		&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}

	job.Type = types.JobType(jobType)
	job.InputType = types.InputType(inType)
	job.Status = types.Status(status)
	job.SourceURL = srcURL.String
	job.TargetLanguage = lang.String
	job.Message = message.String
	job.ResultText = result.String
	job.ErrorMessage = errMsg.String

	if formats.String != "" {
		for _, f := range strings.Split(formats.String, ",") {
			job.OutputFormats = append(job.OutputFormats, types.OutputFormat(f))
		}
	}
	if files.String != "" {
		job.ResultFiles = strings.Split(files.String, "\n")
	}
	return &job, nil
}

// Close closes the database connection.
func (jdb *JobDB) Close() error {
	return jdb.db.Close()
}
