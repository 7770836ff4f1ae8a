package access

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nrowsell/doorlatch/internal/audit"
	"github.com/nrowsell/doorlatch/internal/credential"
	"github.com/nrowsell/doorlatch/internal/infrastructure/logging"
	"github.com/nrowsell/doorlatch/internal/infrastructure/mqtt"
	"github.com/nrowsell/doorlatch/internal/ratelimit"
	"github.com/nrowsell/doorlatch/internal/session"
	"github.com/nrowsell/doorlatch/internal/store"
)

// fakeAnnouncer captures published decisions for assertions.
type fakeAnnouncer struct {
	mu        sync.Mutex
	decisions []mqtt.Decision
}

func (f *fakeAnnouncer) AnnounceDecision(d mqtt.Decision) error {
	f.mu.Lock()
	f.decisions = append(f.decisions, d)
	f.mu.Unlock()
	return nil
}

func (f *fakeAnnouncer) last(t *testing.T) mqtt.Decision {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.decisions) == 0 {
		t.Fatal("no decisions announced")
	}
	return f.decisions[len(f.decisions)-1]
}

// testDB creates a temporary SQLite database with the full schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "access-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schemaSQL := `
		CREATE TABLE pins (
			id TEXT PRIMARY KEY,
			pin_hash TEXT NOT NULL,
			label TEXT,
			created_by TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE admins (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_by TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE access_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			subject TEXT,
			granted INTEGER NOT NULL DEFAULT 0,
			reason TEXT,
			client_ip TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("applying schema: %v", err)
	}

	return db
}

// testService wires a Service against a real SQLite database with fast
// hashing parameters and a small login window.
func testService(t *testing.T) (*Service, *fakeAnnouncer, audit.Recorder) {
	t.Helper()

	db := testDB(t)
	announcer := &fakeAnnouncer{}
	recorder := audit.NewSQLiteRecorder(db)
	logger := &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	svc := NewService(Deps{
		Pins:      store.NewPinRepository(db),
		Admins:    store.NewAdminRepository(db),
		Hasher:    credential.New(credential.Params{Time: 1, Memory: 8 * 1024, Threads: 1}),
		Authority: session.NewMemory(30 * time.Minute),
		Limiter: ratelimit.New(ratelimit.Config{
			Window:      15 * time.Minute,
			MaxAttempts: 3,
		}),
		Recorder:  recorder,
		Announcer: announcer,
		Logger:    logger,
	})
	return svc, announcer, recorder
}

func TestCheckPin_AddedPinGrants(t *testing.T) {
	svc, announcer, _ := testService(t)

	if _, err := svc.AddPin(context.Background(), "482913", "front door", "admin"); err != nil {
		t.Fatalf("AddPin() error = %v", err)
	}

	granted, err := svc.CheckPin(context.Background(), "482913", "192.168.1.10")
	if err != nil {
		t.Fatalf("CheckPin() error = %v", err)
	}
	if !granted {
		t.Error("CheckPin() = false for a stored pin")
	}

	d := announcer.last(t)
	if !d.Granted {
		t.Error("announced decision not granted")
	}
	if d.Subject == "" {
		t.Error("announced decision missing pin id")
	}
}

func TestCheckPin_UnknownPinDenied(t *testing.T) {
	svc, announcer, _ := testService(t)

	if _, err := svc.AddPin(context.Background(), "482913", "", "admin"); err != nil {
		t.Fatalf("AddPin() error = %v", err)
	}

	granted, err := svc.CheckPin(context.Background(), "000000", "192.168.1.10")
	if err != nil {
		t.Fatalf("CheckPin() error = %v", err)
	}
	if granted {
		t.Error("CheckPin() = true for an unknown pin")
	}
	if d := announcer.last(t); d.Granted {
		t.Error("announced decision granted for unknown pin")
	}
}

func TestCheckPin_EmptySetDenied(t *testing.T) {
	svc, _, _ := testService(t)

	granted, err := svc.CheckPin(context.Background(), "123456", "192.168.1.10")
	if err != nil {
		t.Fatalf("CheckPin() error = %v", err)
	}
	if granted {
		t.Error("CheckPin() = true with no pins stored")
	}
}

func TestCheckPin_MalformedInputDenied(t *testing.T) {
	svc, _, recorder := testService(t)

	tests := []string{"", "12ab34", "12345678901234567"}
	for _, pin := range tests {
		granted, err := svc.CheckPin(context.Background(), pin, "192.168.1.10")
		if err != nil {
			t.Fatalf("CheckPin(%q) error = %v", pin, err)
		}
		if granted {
			t.Errorf("CheckPin(%q) = true, want denial", pin)
		}
	}

	// Denials still land in the audit log.
	result, err := recorder.List(context.Background(), audit.Filter{EventType: audit.EventPinCheck})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != len(tests) {
		t.Errorf("audit log has %d pin checks, want %d", result.Total, len(tests))
	}
}

func TestCheckPin_RemovedPinDenied(t *testing.T) {
	svc, _, _ := testService(t)

	pin, err := svc.AddPin(context.Background(), "482913", "", "admin")
	if err != nil {
		t.Fatalf("AddPin() error = %v", err)
	}
	if err := svc.RemovePin(context.Background(), pin.ID, "admin"); err != nil {
		t.Fatalf("RemovePin() error = %v", err)
	}

	granted, err := svc.CheckPin(context.Background(), "482913", "192.168.1.10")
	if err != nil {
		t.Fatalf("CheckPin() error = %v", err)
	}
	if granted {
		t.Error("CheckPin() = true after pin removal")
	}
}

func TestCheckPin_CorruptHashIsError(t *testing.T) {
	svc, _, _ := testService(t)

	pin := &store.Pin{PinHash: "not-a-phc-hash"}
	if err := svc.pins.Create(context.Background(), pin); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.CheckPin(context.Background(), "123456", "192.168.1.10"); err == nil {
		t.Error("CheckPin() error = nil with a corrupt stored hash")
	}
}

func TestLogin_Success(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.AddAdmin(context.Background(), "alice", "hunter22", ""); err != nil {
		t.Fatalf("AddAdmin() error = %v", err)
	}

	token, err := svc.Login(context.Background(), "10.0.0.1", "alice", "hunter22")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Fatal("Login() returned empty token")
	}

	username, err := svc.Authorize(token)
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if username != "alice" {
		t.Errorf("Authorize() username = %q, want %q", username, "alice")
	}
}

func TestLogin_UniformCredentialError(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.AddAdmin(context.Background(), "alice", "hunter22", ""); err != nil {
		t.Fatalf("AddAdmin() error = %v", err)
	}

	// Wrong password and unknown user yield the identical error.
	_, wrongPass := svc.Login(context.Background(), "10.0.0.1", "alice", "wrong-password")
	_, unknownUser := svc.Login(context.Background(), "10.0.0.2", "nobody", "hunter22")

	if !errors.Is(wrongPass, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", wrongPass)
	}
	if !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", unknownUser)
	}
	if wrongPass.Error() != unknownUser.Error() {
		t.Errorf("error messages differ: %q vs %q", wrongPass, unknownUser)
	}
}

func TestLogin_Throttled(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.AddAdmin(context.Background(), "alice", "hunter22", ""); err != nil {
		t.Fatalf("AddAdmin() error = %v", err)
	}

	// Burn the three allowed attempts with bad passwords.
	for i := 0; i < 3; i++ {
		if _, err := svc.Login(context.Background(), "10.0.0.1", "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
		}
	}

	// The fourth attempt is throttled even with the right password.
	_, err := svc.Login(context.Background(), "10.0.0.1", "alice", "hunter22")
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("Login() error = %v, want ErrThrottled", err)
	}

	var throttled *ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatal("throttled error does not carry retry-after")
	}
	if throttled.RetryAfter <= 0 {
		t.Errorf("retry-after = %v, want > 0", throttled.RetryAfter)
	}

	// A different source address is unaffected.
	if _, err := svc.Login(context.Background(), "10.0.0.2", "alice", "hunter22"); err != nil {
		t.Errorf("Login() from other address error = %v", err)
	}
}

func TestLogin_SuccessResetsLimiter(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.AddAdmin(context.Background(), "alice", "hunter22", ""); err != nil {
		t.Fatalf("AddAdmin() error = %v", err)
	}

	// Two failures, then a success, then failures again. The success
	// must have cleared the counter so the later failures are not the
	// tail of the earlier window.
	for i := 0; i < 2; i++ {
		svc.Login(context.Background(), "10.0.0.1", "alice", "wrong") //nolint:errcheck // failure is the point
	}
	if _, err := svc.Login(context.Background(), "10.0.0.1", "alice", "hunter22"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.Login(context.Background(), "10.0.0.1", "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login() after reset error = %v, want ErrInvalidCredentials", err)
		}
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.AddAdmin(context.Background(), "alice", "hunter22", ""); err != nil {
		t.Fatalf("AddAdmin() error = %v", err)
	}
	token, err := svc.Login(context.Background(), "10.0.0.1", "alice", "hunter22")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	svc.Logout(token)
	if _, err := svc.Authorize(token); !errors.Is(err, session.ErrUnauthorized) {
		t.Errorf("Authorize() after Logout() error = %v, want ErrUnauthorized", err)
	}
}

func TestAddPin_InvalidInput(t *testing.T) {
	svc, _, _ := testService(t)

	tests := []string{"", "abc", "1234a", "12345678901234567"}
	for _, pin := range tests {
		if _, err := svc.AddPin(context.Background(), pin, "", "admin"); !errors.Is(err, store.ErrInvalidInput) {
			t.Errorf("AddPin(%q) error = %v, want ErrInvalidInput", pin, err)
		}
	}
}

func TestAddPin_DuplicatesPermitted(t *testing.T) {
	svc, _, _ := testService(t)

	first, err := svc.AddPin(context.Background(), "482913", "alice", "admin")
	if err != nil {
		t.Fatalf("AddPin() error = %v", err)
	}
	second, err := svc.AddPin(context.Background(), "482913", "bob", "admin")
	if err != nil {
		t.Fatalf("AddPin() duplicate error = %v", err)
	}
	if first.ID == second.ID {
		t.Error("duplicate pins share an ID")
	}

	pins, err := svc.ListPins(context.Background())
	if err != nil {
		t.Fatalf("ListPins() error = %v", err)
	}
	if len(pins) != 2 {
		t.Errorf("ListPins() returned %d pins, want 2", len(pins))
	}
}

func TestRemovePin_NotFound(t *testing.T) {
	svc, _, _ := testService(t)

	if err := svc.RemovePin(context.Background(), "pin-missing", "admin"); !errors.Is(err, store.ErrPinNotFound) {
		t.Errorf("RemovePin() error = %v, want ErrPinNotFound", err)
	}
}

func TestAddAdmin_DuplicateUsername(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.AddAdmin(context.Background(), "alice", "hunter22", ""); err != nil {
		t.Fatalf("AddAdmin() error = %v", err)
	}
	if _, err := svc.AddAdmin(context.Background(), "alice", "other-password", ""); !errors.Is(err, store.ErrUsernameExists) {
		t.Errorf("AddAdmin() duplicate error = %v, want ErrUsernameExists", err)
	}
}

func TestAddAdmin_InvalidInput(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.AddAdmin(context.Background(), "ab", "hunter22", ""); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("AddAdmin(short username) error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.AddAdmin(context.Background(), "alice", "short", ""); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("AddAdmin(short password) error = %v, want ErrInvalidInput", err)
	}
}

func TestRemoveAdmin_NotFound(t *testing.T) {
	svc, _, _ := testService(t)

	if err := svc.RemoveAdmin(context.Background(), "nobody", "admin"); !errors.Is(err, store.ErrAdminNotFound) {
		t.Errorf("RemoveAdmin() error = %v, want ErrAdminNotFound", err)
	}
}

func TestListEvents_RecordsHistory(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.AddPin(context.Background(), "482913", "", "admin"); err != nil {
		t.Fatalf("AddPin() error = %v", err)
	}
	if _, err := svc.CheckPin(context.Background(), "482913", "192.168.1.10"); err != nil {
		t.Fatalf("CheckPin() error = %v", err)
	}

	result, err := svc.ListEvents(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	// One pin_added plus one pin_check.
	if result.Total != 2 {
		t.Errorf("ListEvents() total = %d, want 2", result.Total)
	}
}
