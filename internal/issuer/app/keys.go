package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/issuer/pkg/cryptox"
	"github.com/aussiebroadwan/issuer/pkg/jwtx"
)

// payloadKeyEnv holds sealing key material when no key file is configured.
const payloadKeyEnv = "ISSUER_PAYLOAD_KEY"

// InitSessionKeys builds the session key manager. With a key file the
// signing key is pinned, otherwise a fresh key is generated per process.
func InitSessionKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{Issuer: cfg.SessionIssuer}

	if cfg.SessionKeyFile != "" {
		pemBytes, err := os.ReadFile(cfg.SessionKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read session key: %w", err)
		}
		opts.PrivateKeyPEM = pemBytes
		logger.Info("session signing key loaded", "path", cfg.SessionKeyFile)
	} else {
		logger.Warn("no SESSION_KEY_FILE set, sessions will not survive a restart")
	}

	return jwtx.NewKeyManager(opts)
}

// InitPayloadSealer loads the key that seals delegation payloads at rest.
// Ephemeral material is only tolerated outside prod.
func InitPayloadSealer(cfg Config, logger *slog.Logger) (*cryptox.Sealer, error) {
	material, ephemeral, err := cryptox.LoadKeyMaterial(cfg.PayloadKeyFile, payloadKeyEnv)
	if err != nil {
		return nil, err
	}
	if ephemeral {
		if cfg.Env == "prod" {
			return nil, fmt.Errorf("PAYLOAD_KEY_FILE or %s is required in prod", payloadKeyEnv)
		}
		logger.Warn("using an ephemeral payload key, stored delegations become unreadable on restart")
	}
	return cryptox.NewSealer(material)
}
