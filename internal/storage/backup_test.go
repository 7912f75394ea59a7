package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBackupRestore_Plain(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "live.db")
	if err := os.WriteFile(dbPath, []byte("sqlite bytes"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	backupPath, err := BackupDatabase(dbPath, filepath.Join(dir, "backups"), BackupOptions{})
	if err != nil {
		t.Fatalf("BackupDatabase failed: %v", err)
	}

	restored := filepath.Join(dir, "restored.db")
	if err := RestoreDatabase(backupPath, restored, ""); err != nil {
		t.Fatalf("RestoreDatabase failed: %v", err)
	}

	data, err := os.ReadFile(restored)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if string(data) != "sqlite bytes" {
		t.Errorf("restored content mismatch: %q", data)
	}
}

func TestBackupRestore_Encrypted(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "live.db")
	if err := os.WriteFile(dbPath, []byte("secret catalog"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	backupPath, err := BackupDatabase(dbPath, filepath.Join(dir, "backups"), BackupOptions{Password: "hunter2"})
	if err != nil {
		t.Fatalf("BackupDatabase failed: %v", err)
	}

	raw, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(raw[:len(backupMagicHeader)]) != backupMagicHeader {
		t.Error("encrypted backup missing magic header")
	}

	restored := filepath.Join(dir, "restored.db")
	if err := RestoreDatabase(backupPath, restored, "hunter2"); err != nil {
		t.Fatalf("RestoreDatabase failed: %v", err)
	}
	data, _ := os.ReadFile(restored)
	if string(data) != "secret catalog" {
		t.Errorf("restored content mismatch: %q", data)
	}

	// Wrong password must fail, not corrupt.
	if err := RestoreDatabase(backupPath, filepath.Join(dir, "bad.db"), "wrong"); err == nil {
		t.Error("expected decryption failure with wrong password")
	}
}
