package store

import "database/sql"

// Migrate brings the schema up to the current version, tracked with
// PRAGMA user_version.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS applications (
  id TEXT PRIMARY KEY,
  job_id TEXT NOT NULL,
  country TEXT NOT NULL DEFAULT '',
  department TEXT NOT NULL DEFAULT '',
  level TEXT NOT NULL DEFAULT '',
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  visa_required INTEGER NOT NULL DEFAULT 0,
  available_start_date TEXT,
  website_url TEXT NOT NULL DEFAULT '',
  source_channel TEXT NOT NULL DEFAULT '',
  terms_accepted INTEGER NOT NULL DEFAULT 0,
  resume_url TEXT,
  transcript_url TEXT,
  created_at TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS application_educations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  application_id TEXT NOT NULL,
  degree_level TEXT NOT NULL DEFAULT '',
  institute TEXT NOT NULL DEFAULT '',
  program TEXT NOT NULL DEFAULT '',
  start_month TEXT NOT NULL DEFAULT '',
  end_month TEXT NOT NULL DEFAULT '',
  degree_type TEXT NOT NULL DEFAULT '',
  gpa TEXT NOT NULL DEFAULT ''
);`,
		`CREATE TABLE IF NOT EXISTS application_experiences (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  application_id TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT '',
  start_month TEXT NOT NULL DEFAULT '',
  end_month TEXT NOT NULL DEFAULT ''
);`,
		`CREATE TABLE IF NOT EXISTS application_skills (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  application_id TEXT NOT NULL,
  skill TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS application_attachments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  application_id TEXT NOT NULL,
  file_name TEXT NOT NULL,
  file_url TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_applications_job_id ON applications(job_id);`,
		`CREATE INDEX IF NOT EXISTS idx_app_educations_app ON application_educations(application_id);`,
		`CREATE INDEX IF NOT EXISTS idx_app_experiences_app ON application_experiences(application_id);`,
		`CREATE INDEX IF NOT EXISTS idx_app_skills_app ON application_skills(application_id);`,
		`CREATE INDEX IF NOT EXISTS idx_app_attachments_app ON application_attachments(application_id);`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}
