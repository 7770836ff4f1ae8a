package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/nrowsell/doorlatch/internal/credential"
)

// seedPasswordBytes is the number of random bytes for a generated bootstrap password.
const seedPasswordBytes = 16

// SeedAdmin creates the initial admin account on first boot if no admins
// exist. When username/password are empty, a random password is generated
// for the username "admin", logged once, and must be changed immediately.
// Returns the generated password (empty string if seeding was skipped or
// credentials came from configuration).
func SeedAdmin(ctx context.Context, repo AdminRepository, hasher *credential.Hasher, username, password string, logger *slog.Logger) (string, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking admin count: %w", err)
	}

	if count > 0 {
		logger.Info("admins exist, skipping bootstrap seed")
		return "", nil
	}

	generated := ""
	if username == "" {
		username = "admin"
	}
	if password == "" {
		passwordBytes := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
			return "", fmt.Errorf("generating seed password: %w", err)
		}
		password = hex.EncodeToString(passwordBytes)
		generated = password
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &Admin{
		Username:     username,
		PasswordHash: hash,
	}

	if err := repo.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	if generated != "" {
		logger.Warn("bootstrap admin account created",
			"username", username,
			"password", generated,
			"action_required", "change this password immediately",
		)
	} else {
		logger.Info("bootstrap admin account created", "username", username)
	}

	return generated, nil
}
