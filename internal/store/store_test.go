package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already migrated; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
	if result.Dirty {
		t.Error("schema reported dirty")
	}
}

func TestCredentialsRoundTrip(t *testing.T) {
	db := testDB(t)

	c, err := db.LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Fatalf("LoadCredentials() on empty db = %+v, want nil", c)
	}

	in := &Credentials{UserID: "u1", AccessToken: "a1", RefreshToken: "r1", ExpiresAt: 1000}
	if err := db.SaveCredentials(in); err != nil {
		t.Fatal(err)
	}
	if in.UpdatedAt == 0 {
		t.Error("SaveCredentials did not stamp UpdatedAt")
	}

	// Second save replaces the single row.
	in.AccessToken = "a2"
	if err := db.SaveCredentials(in); err != nil {
		t.Fatal(err)
	}

	got, err := db.LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.AccessToken != "a2" || got.RefreshToken != "r1" || got.UserID != "u1" || got.ExpiresAt != 1000 {
		t.Errorf("LoadCredentials() = %+v", got)
	}

	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM credentials`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("credentials rows = %d, want 1", rows)
	}
}

func TestClearCredentials(t *testing.T) {
	db := testDB(t)
	if err := db.SaveCredentials(&Credentials{AccessToken: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearCredentials(); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("credentials after clear = %+v, want nil", got)
	}
}

func TestCheckpoints(t *testing.T) {
	db := testDB(t)

	cp, err := db.GetCheckpoint("poll.messages")
	if err != nil {
		t.Fatal(err)
	}
	if cp != nil {
		t.Fatalf("unset checkpoint = %+v, want nil", cp)
	}

	if err := db.PutCheckpoint("poll.messages", "1"); err != nil {
		t.Fatal(err)
	}
	if err := db.PutCheckpoint("poll.messages", "2"); err != nil {
		t.Fatal(err)
	}
	if err := db.PutCheckpoint("poll.notifications", "3"); err != nil {
		t.Fatal(err)
	}

	cp, err = db.GetCheckpoint("poll.messages")
	if err != nil {
		t.Fatal(err)
	}
	if cp == nil || cp.Value != "2" || cp.UpdatedAt == 0 {
		t.Errorf("GetCheckpoint() = %+v, want value 2", cp)
	}

	all, err := db.ListCheckpoints()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Key != "poll.messages" || all[1].Key != "poll.notifications" {
		t.Errorf("ListCheckpoints() = %+v", all)
	}
}
