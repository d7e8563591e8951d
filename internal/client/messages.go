package client

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tobyns/CoveChat/internal/gateway"
	"github.com/tobyns/CoveChat/internal/session"
)

// actionMsg carries a session store action produced by a subscription
// callback or a follow-up fetch.
type actionMsg struct {
	action session.Action
}

// typingMsg carries the typing-peer snapshot for the active scope.
type typingMsg struct {
	peers []gateway.TypingPeer
}

// authResultMsg is the outcome of a register or login attempt.
type authResultMsg struct {
	mode     string
	username string
	session  *gateway.Session
	err      error
}

// sendResultMsg is the outcome of a message or DM send. Content is retained
// so a failed send leaves the composer intact.
type sendResultMsg struct {
	scopeID string
	content string
	err     error
}

// opResultMsg is the outcome of a fire-and-forget or named operation.
type opResultMsg struct {
	op  string
	err error
}

// scopeMetaMsg delivers permissions and roster after a server change.
type scopeMetaMsg struct {
	serverID string
	perms    gateway.PermissionSet
	members  []gateway.Member
	err      error
}

// conversationReadyMsg resolves a /dm command into a conversation.
type conversationReadyMsg struct {
	conversation *gateway.DMConversation
	otherName    string
	err          error
}

type listKind int

const (
	listRoles listKind = iota
	listProfiles
	listReactions
)

// listResultMsg carries ad hoc list fetches rendered outside the store.
type listResultMsg struct {
	kind      listKind
	roles     []gateway.Role
	profiles  []gateway.Profile
	reactions []gateway.Reaction
	forID     string
	err       error
}

// uploadResultMsg is the outcome of an attachment upload.
type uploadResultMsg struct {
	result *gateway.UploadResult
	err    error
}

// bannerClearMsg expires a transient log banner.
type bannerClearMsg struct {
	seq int
}

// dmPollTickMsg drives the periodic DM unread refresh.
type dmPollTickMsg struct{}

type logLevel int

const (
	logLevelInfo logLevel = iota
	logLevelError
)

type logEntry struct {
	label string
	body  string
	level logLevel
}

func (a *App) logf(format string, args ...interface{}) {
	a.logLine = logEntry{label: "[info]", body: fmt.Sprintf(format, args...)}
}

// logErrorf shows an error banner that auto-clears after the banner TTL.
func (a *App) logErrorf(format string, args ...interface{}) tea.Cmd {
	a.logLine = logEntry{label: "[error]", body: fmt.Sprintf(format, args...), level: logLevelError}
	a.bannerSeq++
	seq := a.bannerSeq
	return tea.Tick(a.cfg.Limits.BannerTTL, func(time.Time) tea.Msg {
		return bannerClearMsg{seq: seq}
	})
}

func dmPollTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return dmPollTickMsg{}
	})
}
