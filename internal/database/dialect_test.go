package database

import (
	"testing"
)

func TestDialects(t *testing.T) {
	tests := []struct {
		dialect         Dialect
		driver          string
		lastInsertID    bool
		migrationSubdir string
	}{
		{NewSQLiteDialect(), "sqlite3", true, "sqlite"},
		{NewPostgresDialect(), "postgres", false, "postgres"},
		{NewMySQLDialect(), "mysql", true, "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %v, want %v", got, tt.driver)
			}
			if got := tt.dialect.SupportsLastInsertId(); got != tt.lastInsertID {
				t.Errorf("SupportsLastInsertId() = %v, want %v", got, tt.lastInsertID)
			}
			if got := tt.dialect.MigrationsSubdir(); got != tt.migrationSubdir {
				t.Errorf("MigrationsSubdir() = %v, want %v", got, tt.migrationSubdir)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		config  DialectConfig
		want    string
	}{
		{"sqlite adds pragmas", NewSQLiteDialect(), DialectConfig{Path: "tutor.db"}, "tutor.db?_foreign_keys=on&_busy_timeout=5000"},
		{"sqlite keeps explicit options", NewSQLiteDialect(), DialectConfig{Path: "tutor.db?mode=ro"}, "tutor.db?mode=ro"},
		{"postgres url gets app name", NewPostgresDialect(), DialectConfig{URL: "postgres://u@h/db"}, "postgres://u@h/db?application_name=alphabettutor"},
		{"postgres url appends app name", NewPostgresDialect(), DialectConfig{URL: "postgres://u@h/db?sslmode=disable"}, "postgres://u@h/db?sslmode=disable&application_name=alphabettutor"},
		{"postgres keyword dsn", NewPostgresDialect(), DialectConfig{URL: "host=h dbname=db"}, "host=h dbname=db application_name=alphabettutor"},
		{"postgres keeps app name", NewPostgresDialect(), DialectConfig{URL: "postgres://u@h/db?application_name=x"}, "postgres://u@h/db?application_name=x"},
		{"mysql adds parseTime", NewMySQLDialect(), DialectConfig{URL: "u:p@tcp(h)/db"}, "u:p@tcp(h)/db?parseTime=true"},
		{"mysql appends parseTime", NewMySQLDialect(), DialectConfig{URL: "u:p@tcp(h)/db?tls=true"}, "u:p@tcp(h)/db?tls=true&parseTime=true"},
		{"mysql keeps parseTime", NewMySQLDialect(), DialectConfig{URL: "u:p@tcp(h)/db?parseTime=false"}, "u:p@tcp(h)/db?parseTime=false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DSN(tt.config); got != tt.want {
				t.Errorf("DSN() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM profiles WHERE id = ?",
			expected: "SELECT * FROM profiles WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM profiles WHERE id = ?",
			expected: "SELECT * FROM profiles WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO stars (profile_id, letter, confidence) VALUES (?, ?, ?)",
			expected: "INSERT INTO stars (profile_id, letter, confidence) VALUES ($1, $2, $3)",
		},
		{
			name:     "PostgreSQL skips quoted question marks",
			dialect:  NewPostgresDialect(),
			query:    "SELECT word FROM blocked_words WHERE word <> '?' AND word = ?",
			expected: "SELECT word FROM blocked_words WHERE word <> '?' AND word = $1",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE profiles SET child_name = ? WHERE id = ?",
			expected: "UPDATE profiles SET child_name = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestInsertIgnoreQuery(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{NewSQLiteDialect(), "INSERT OR IGNORE INTO badges (profile_id, badge_type) VALUES (?, ?)"},
		{NewPostgresDialect(), "INSERT INTO badges (profile_id, badge_type) VALUES (?, ?) ON CONFLICT DO NOTHING"},
		{NewMySQLDialect(), "INSERT IGNORE INTO badges (profile_id, badge_type) VALUES (?, ?)"},
	}

	for _, tt := range tests {
		if got := tt.dialect.InsertIgnoreQuery("badges", "profile_id", "badge_type"); got != tt.want {
			t.Errorf("%s InsertIgnoreQuery() = %v, want %v", tt.dialect.DriverName(), got, tt.want)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	content := `-- header comment
CREATE TABLE a (id INTEGER);

-- second
CREATE TABLE b (id INTEGER);
-- trailing comment only
`
	got := splitStatements(content)
	if len(got) != 2 {
		t.Fatalf("splitStatements() returned %d statements, want 2: %q", len(got), got)
	}
	if got[1] != "-- second\nCREATE TABLE b (id INTEGER)" {
		t.Errorf("second statement = %q", got[1])
	}
}
