package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/argon2"
)

const (
	// backupMagicHeader marks an encrypted backup file.
	backupMagicHeader = "DFENC1"

	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32 // AES-256

	saltLength = 32
)

// BackupOptions controls database backups.
type BackupOptions struct {
	// Password enables encryption of the backup when non-empty.
	Password string
}

// BackupDatabase snapshots the sqlite file at dbPath into destDir, returning
// the backup path. The connection should be checkpointed or closed first so
// the WAL is folded into the main file.
func BackupDatabase(dbPath, destDir string, opts BackupOptions) (string, error) {
	data, err := os.ReadFile(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to read database file: %w", err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("deckforge-%s.db", time.Now().UTC().Format("20060102-150405"))
	if opts.Password != "" {
		data, err = encryptBackup(data, opts.Password)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt backup: %w", err)
		}
		name += ".enc"
	}

	destPath := filepath.Join(destDir, name)
	if err := os.WriteFile(destPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return destPath, nil
}

// RestoreDatabase writes a backup file back to dbPath, decrypting it when
// the backup carries the encryption header.
func RestoreDatabase(backupPath, dbPath, password string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	if len(data) >= len(backupMagicHeader) && string(data[:len(backupMagicHeader)]) == backupMagicHeader {
		if password == "" {
			return fmt.Errorf("backup is encrypted but no password was given")
		}
		data, err = decryptBackup(data, password)
		if err != nil {
			return fmt.Errorf("failed to decrypt backup: %w", err)
		}
	}

	if err := os.WriteFile(dbPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	return nil
}

// deriveBackupKey derives an AES key from a password using Argon2id.
func deriveBackupKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

// encryptBackup seals data with AES-256-GCM.
// Layout: magic || salt || nonce || ciphertext+tag.
func encryptBackup(plaintext []byte, password string) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	block, err := aes.NewCipher(deriveBackupKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	result := make([]byte, 0, len(backupMagicHeader)+len(salt)+len(nonce)+len(ciphertext))
	result = append(result, backupMagicHeader...)
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

func decryptBackup(encrypted []byte, password string) ([]byte, error) {
	encrypted = encrypted[len(backupMagicHeader):]

	if len(encrypted) < saltLength {
		return nil, fmt.Errorf("encrypted backup too short")
	}
	salt := encrypted[:saltLength]
	encrypted = encrypted[saltLength:]

	block, err := aes.NewCipher(deriveBackupKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(encrypted) < gcm.NonceSize() {
		return nil, fmt.Errorf("encrypted backup too short for nonce")
	}
	nonce := encrypted[:gcm.NonceSize()]
	ciphertext := encrypted[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong password or corrupted data): %w", err)
	}
	return plaintext, nil
}
