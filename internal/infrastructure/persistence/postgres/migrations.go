package postgres

// GetMigrations returns all migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_students",
			UpSQL: `
				CREATE TABLE students (
					id UUID PRIMARY KEY,
					external_id TEXT NOT NULL UNIQUE,
					username TEXT NOT NULL DEFAULT '',
					roster_login TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
				CREATE INDEX idx_students_roster_login ON students (roster_login) WHERE roster_login <> '';
			`,
		},
		{
			Version: 2,
			Name:    "create_mastery_records",
			UpSQL: `
				CREATE TABLE mastery_records (
					student_id TEXT NOT NULL,
					concept_id TEXT NOT NULL,
					attempts INTEGER NOT NULL DEFAULT 0,
					correct_count INTEGER NOT NULL DEFAULT 0,
					quality_sum DOUBLE PRECISION NOT NULL DEFAULT 0,
					level TEXT NOT NULL DEFAULT 'novice',
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					PRIMARY KEY (student_id, concept_id)
				);
				CREATE INDEX idx_mastery_records_student ON mastery_records (student_id);
			`,
		},
		{
			Version: 3,
			Name:    "create_quiz_attempts",
			UpSQL: `
				CREATE TABLE quiz_attempts (
					attempt_id TEXT PRIMARY KEY,
					student_id TEXT NOT NULL,
					concept_id TEXT NOT NULL,
					answer TEXT NOT NULL,
					quality DOUBLE PRECISION NOT NULL DEFAULT 0,
					correct BOOLEAN NOT NULL DEFAULT FALSE,
					status TEXT NOT NULL,
					feedback TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
				CREATE INDEX idx_quiz_attempts_student_concept ON quiz_attempts (student_id, concept_id);
			`,
		},
		{
			Version: 4,
			Name:    "create_challenge_tables",
			UpSQL: `
				CREATE TABLE challenge_attempts (
					id UUID PRIMARY KEY,
					student_id TEXT NOT NULL,
					module_id TEXT NOT NULL,
					question TEXT NOT NULL,
					student_answer TEXT NOT NULL,
					model_answer TEXT NOT NULL DEFAULT '',
					student_correct BOOLEAN NOT NULL DEFAULT FALSE,
					model_correct BOOLEAN NOT NULL DEFAULT FALSE,
					won BOOLEAN NOT NULL DEFAULT FALSE,
					outcome TEXT NOT NULL,
					embedding_id TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
				CREATE INDEX idx_challenge_attempts_student ON challenge_attempts (student_id, module_id);

				CREATE TABLE challenge_progress (
					student_id TEXT NOT NULL,
					module_id TEXT NOT NULL,
					win_count INTEGER NOT NULL DEFAULT 0,
					target INTEGER NOT NULL DEFAULT 1,
					completed BOOLEAN NOT NULL DEFAULT FALSE,
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					PRIMARY KEY (student_id, module_id)
				);

				CREATE TABLE question_embeddings (
					id TEXT PRIMARY KEY,
					module_id TEXT NOT NULL,
					question TEXT NOT NULL,
					vector DOUBLE PRECISION[] NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
				CREATE INDEX idx_question_embeddings_module ON question_embeddings (module_id);
			`,
		},
		{
			Version: 5,
			Name:    "create_attendance_tables",
			UpSQL: `
				CREATE TABLE attendance_sessions (
					id UUID PRIMARY KEY,
					opened_at TIMESTAMP WITH TIME ZONE NOT NULL,
					closed_at TIMESTAMP WITH TIME ZONE,
					rotation_interval_seconds INTEGER NOT NULL,
					code_length INTEGER NOT NULL
				);

				CREATE TABLE attendance_records (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					session_id TEXT NOT NULL,
					student_id TEXT NOT NULL,
					username TEXT NOT NULL DEFAULT '',
					code TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL,
					date_id TEXT NOT NULL,
					submitted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					UNIQUE (session_id, student_id),
					UNIQUE (student_id, date_id)
				);
				CREATE INDEX idx_attendance_records_date ON attendance_records (date_id);
			`,
		},
	}
}
