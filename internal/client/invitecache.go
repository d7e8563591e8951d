package client

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tobyns/CoveChat/internal/config"
)

// The invite cache carries a /join issued before authentication across the
// login step. It is a single-code scratch file, cleared once consumed.

func inviteCachePath(cfg config.ClientConfig) string {
	if cfg.InviteCache != "" {
		return cfg.InviteCache
	}
	return filepath.Join(os.TempDir(), "covechat-invite")
}

func loadPendingInvite(cfg config.ClientConfig) string {
	data, err := os.ReadFile(inviteCachePath(cfg))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func savePendingInvite(cfg config.ClientConfig, code string) {
	// Best effort: losing the cache only means retyping /join.
	_ = os.WriteFile(inviteCachePath(cfg), []byte(code+"\n"), 0o600)
}

func clearPendingInvite(cfg config.ClientConfig) {
	_ = os.Remove(inviteCachePath(cfg))
}
