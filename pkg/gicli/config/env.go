package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
)

// EncryptionKey returns ENV_ENCRYPTION_KEY, generating and reporting a
// fresh one if unset -- spec §6: "if absent one is generated and
// reported." The generated key is not persisted; callers that need it
// to survive a restart must export it themselves.
func EncryptionKey() (key string, generated bool) {
	if v := os.Getenv("ENV_ENCRYPTION_KEY"); v != "" {
		return v, false
	}
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf), true
}

// Runtime bundles the ambient env-derived settings spec §6 recognizes
// outside of the document model: log level/silence/dir, and the
// encryption key.
type Runtime struct {
	EncryptionKey string
	LogLevel      string
	LogSilent     bool
	LogDir        string
}

// LoadRuntime reads the recognized environment variables from spec §6.
func LoadRuntime() Runtime {
	key, _ := EncryptionKey()
	return Runtime{
		EncryptionKey: key,
		LogLevel:      envOr("LOG_LEVEL", "INFO"),
		LogSilent:     os.Getenv("LOG_SILENT") == "true" || os.Getenv("LOG_SILENT") == "1",
		LogDir:        os.Getenv("LOG_DIR"),
	}
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
