package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := OpenSQLite("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// exerciseKV runs the shared KV contract against a backend.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "quiz_progress_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing: err = %v, want ErrNotFound", err)
	}

	if err := kv.Set(ctx, "quiz_progress_a", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "quiz_progress_a", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := kv.Get(ctx, "quiz_progress_a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("get = %s, want {\"v\":2}", got)
	}

	if err := kv.Set(ctx, "quiz_progress_b", []byte("x")); err != nil {
		t.Fatalf("set b: %v", err)
	}
	if err := kv.Set(ctx, "other_key", []byte("y")); err != nil {
		t.Fatalf("set other: %v", err)
	}

	keys, err := kv.List(ctx, "quiz_progress_")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"quiz_progress_a", "quiz_progress_b"}) {
		t.Errorf("list = %v, want [quiz_progress_a quiz_progress_b]", keys)
	}

	if err := kv.Remove(ctx, "quiz_progress_a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := kv.Get(ctx, "quiz_progress_a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after remove: err = %v, want ErrNotFound", err)
	}
	if err := kv.Remove(ctx, "quiz_progress_a"); err != nil {
		t.Errorf("remove twice: %v", err)
	}
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemory())
}

func TestSQLiteKV(t *testing.T) {
	exerciseKV(t, openTestSQLite(t))
}

func TestSQLiteListEscapesWildcards(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	// "_" is a LIKE wildcard; "quizXprogress" must not match "quiz_progress".
	if err := s.Set(ctx, "quizXprogressY1", []byte("x")); err != nil {
		t.Fatalf("set: %v", err)
	}
	keys, err := s.List(ctx, "quiz_progress_")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("list = %v, want none", keys)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kbquiz.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, "quiz_progress_q1", []byte("saved")); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "quiz_progress_q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "saved" {
		t.Errorf("get = %q, want %q", got, "saved")
	}

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestSQLite(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is checked with a file-based DB above.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestLLMRequestEvents(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	repo := s.EventRepo()

	events := []LLMRequestEventData{
		{Provider: "mock", Model: "mock", Purpose: "quiz-gen", InputTokens: 10, OutputTokens: 5, Success: true},
		{Provider: "mock", Model: "mock", Purpose: "quiz-gen", Success: false, ErrorMessage: "down"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	u, err := s.LLMUsage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Requests != 2 {
		t.Errorf("requests = %d, want 2", u.Requests)
	}
	if u.Failures != 1 {
		t.Errorf("failures = %d, want 1", u.Failures)
	}
	if u.InputTokens != 10 || u.OutputTokens != 5 {
		t.Errorf("tokens = %d/%d, want 10/5", u.InputTokens, u.OutputTokens)
	}
	if len(u.ByModel) != 1 || u.ByModel[0].Model != "mock" || u.ByModel[0].Requests != 2 {
		t.Errorf("by model = %+v, want one mock row with 2 requests", u.ByModel)
	}
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	kv, err := Open(ctx, Options{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := kv.(*Memory); !ok {
		t.Errorf("memory backend = %T", kv)
	}

	kv, err = Open(ctx, Options{Backend: BackendSQLite, DBPath: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer kv.Close()
	if _, ok := kv.(*SQLite); !ok {
		t.Errorf("sqlite backend = %T", kv)
	}

	if _, err := Open(ctx, Options{Backend: "etcd"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := Open(ctx, Options{Backend: BackendRedis}); err == nil {
		t.Error("expected error for redis without url")
	}
}

func TestDefaultDBPath_Env(t *testing.T) {
	want := filepath.Join(t.TempDir(), "nested", "db.sqlite")
	t.Setenv("KBQUIZ_DB", want)
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if got != want {
		t.Errorf("DefaultDBPath = %q, want %q", got, want)
	}
}

func TestDefaultDBPath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KBQUIZ_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	want := filepath.Join(dir, "kbquiz", "kbquiz.db")
	if got != want {
		t.Errorf("DefaultDBPath = %q, want %q", got, want)
	}
}

func TestNATSKeyEscaping(t *testing.T) {
	valid := regexp.MustCompile(`^[-/_=a-zA-Z0-9]+$`)
	tests := []struct {
		key  string
		want string
	}{
		{"quiz_progress_q1", "quiz_progress_q1"},
		{"quiz_progress_go basics: 1", "quiz_progress_go=20basics=3A=201"},
		{"quiz_progress_a.b=c", "quiz_progress_a=2Eb=3Dc"},
		{"quiz_progress_é", "quiz_progress_=C3=A9"},
	}
	for _, tt := range tests {
		got := natsKey(tt.key)
		if got != tt.want {
			t.Errorf("natsKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
		if !valid.MatchString(got) {
			t.Errorf("natsKey(%q) = %q is not a valid JetStream key", tt.key, got)
		}
		back, ok := keyFromNATS(got)
		if !ok || back != tt.key {
			t.Errorf("keyFromNATS(%q) = %q, %v, want %q", got, back, ok, tt.key)
		}
		if !strings.HasPrefix(got, natsKey("quiz_progress_")) {
			t.Errorf("escaped key %q lost the escaped prefix", got)
		}
	}

	for _, bad := range []string{"a.b", "x=4", "x=ZZ"} {
		if _, ok := keyFromNATS(bad); ok {
			t.Errorf("keyFromNATS(%q) accepted a foreign key", bad)
		}
	}
}

func TestSQLiteMigrationCreatesTables(t *testing.T) {
	db := openTestSQLite(t).DB()

	for _, table := range tables {
		rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table.Name)
		if err != nil {
			t.Fatalf("table_info(%s): %v", table.Name, err)
		}
		var got []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				t.Fatalf("scan: %v", err)
			}
			got = append(got, name)
		}
		rows.Close()

		for _, c := range table.Columns {
			if !slices.Contains(got, c.Name) {
				t.Errorf("table %s columns = %v, missing %s", table.Name, got, c.Name)
			}
		}
	}
}
