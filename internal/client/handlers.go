package client

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tobyns/CoveChat/internal/gateway"
	"github.com/tobyns/CoveChat/internal/session"
	"github.com/tobyns/CoveChat/internal/unread"
)

const gatewayTimeout = 10 * time.Second

func gatewayContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), gatewayTimeout)
}

// handleAction routes a store action, reconciles subscriptions to the new
// selection, and schedules the follow-up fetches the transition implies.
func (a *App) handleAction(action session.Action) tea.Cmd {
	prev := a.store.State()
	a.store.Apply(action)
	state := a.store.State()
	a.coord.Sync(state)

	var cmds []tea.Cmd

	if state.User != nil && state.ActiveServerID != prev.ActiveServerID && state.ActiveServerID != "" {
		cmds = append(cmds, a.fetchScopeMeta(state.ActiveServerID, state.User.ID))
	}
	if state.ActiveScopeID() != prev.ActiveScopeID() {
		// Rate-limit bookkeeping is per scope; a stale edit target must not
		// survive a scope switch either.
		a.gate.Reset()
		a.typingPeers = nil
		a.editingID = ""
		a.editingOriginal = ""
		if state.ActiveScopeID() != "" {
			a.view = viewChat
		}
	}

	switch act := action.(type) {
	case session.MessagesLoaded:
		if state.User != nil && act.ChannelID == state.ActiveChannelID {
			cmds = append(cmds,
				a.advanceReadState(state.User.ID, act.ChannelID, act.Messages),
				a.refreshUnread(state.ActiveServerID, state.User.ID, channelIDs(state.Channels)),
			)
		}
	case session.DMMessagesLoaded:
		if state.User != nil && act.ConversationID == state.ActiveConversationID {
			cmds = append(cmds,
				a.advanceDMReadState(state.User.ID, act.ConversationID, act.Messages),
				a.refreshDMUnread(state.User.ID, conversationIDs(state.Conversations)),
			)
		}
	case session.ChannelsLoaded:
		if state.User != nil && act.ServerID == state.ActiveServerID {
			cmds = append(cmds, a.refreshUnread(act.ServerID, state.User.ID, channelIDs(act.Channels)))
		}
	case session.ConversationsLoaded:
		if state.User != nil {
			cmds = append(cmds, a.refreshDMUnread(state.User.ID, conversationIDs(act.Conversations)))
		}
	}

	a.updateViewportContent()
	return tea.Batch(cmds...)
}

func channelIDs(channels []gateway.Channel) []string {
	ids := make([]string, 0, len(channels))
	for _, c := range channels {
		ids = append(ids, c.ID)
	}
	return ids
}

func conversationIDs(conversations []gateway.DMConversation) []string {
	ids := make([]string, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.ID)
	}
	return ids
}

// advanceReadState moves the watermark for the active channel. Failure is
// non-fatal and must never block message display.
func (a *App) advanceReadState(userID, channelID string, messages []gateway.Message) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := gatewayContext()
		defer cancel()
		return opResultMsg{op: "read-state", err: unread.Advance(ctx, a.gw, userID, channelID, messages)}
	}
}

func (a *App) advanceDMReadState(userID, conversationID string, messages []gateway.DirectMessage) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := gatewayContext()
		defer cancel()
		return opResultMsg{op: "read-state", err: unread.AdvanceDM(ctx, a.gw, userID, conversationID, messages)}
	}
}

// refreshUnread fetches per-channel unread counts for one server.
func (a *App) refreshUnread(serverID, userID string, channelIDs []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := gatewayContext()
		defer cancel()
		counts, err := a.gw.UnreadCounts(ctx, userID, channelIDs)
		if err != nil {
			// Reads fail silently: a missing badge beats a broken view.
			return opResultMsg{op: "unread-counts"}
		}
		return actionMsg{action: session.UnreadLoaded{ServerID: serverID, Counts: counts}}
	}
}

func (a *App) refreshDMUnread(userID string, conversationIDs []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := gatewayContext()
		defer cancel()
		counts, err := a.gw.DMUnreadCounts(ctx, userID, conversationIDs)
		if err != nil {
			return opResultMsg{op: "dm-unread-counts"}
		}
		return actionMsg{action: session.DMUnreadLoaded{Counts: counts}}
	}
}

// fetchScopeMeta loads permissions and the member roster after a server change.
func (a *App) fetchScopeMeta(serverID, userID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := gatewayContext()
		defer cancel()
		perms, err := a.gw.UserPermissions(ctx, serverID, userID)
		if err != nil {
			return scopeMetaMsg{serverID: serverID, err: err}
		}
		members, err := a.gw.FetchMembers(ctx, serverID)
		if err != nil {
			return scopeMetaMsg{serverID: serverID, err: err}
		}
		return scopeMetaMsg{serverID: serverID, perms: perms, members: members}
	}
}

func (a *App) handleScopeMeta(msg scopeMetaMsg) tea.Cmd {
	if msg.err != nil {
		// Permission reads fail to the empty set; the gateway still enforces.
		return nil
	}
	first := a.handleAction(session.PermissionsLoaded{ServerID: msg.serverID, Permissions: msg.perms})
	second := a.handleAction(session.MembersLoaded{ServerID: msg.serverID, Members: msg.members})
	return tea.Batch(first, second)
}

func (a *App) handleAuthResult(msg authResultMsg) tea.Cmd {
	a.pendingAuth = ""
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, gateway.ErrUserExists):
			return a.logErrorf("Username %s is taken", msg.username)
		case errors.Is(msg.err, gateway.ErrUnauthorized):
			return a.logErrorf("Invalid credentials for %s", msg.username)
		default:
			return a.logErrorf("%s failed: %v", msg.mode, msg.err)
		}
	}

	a.token = msg.session.Token
	user := msg.session.User
	a.logf("Authenticated as %s", user.DisplayName)
	a.view = viewChat

	cmds := []tea.Cmd{
		a.handleAction(session.SetUser{User: &user}),
		dmPollTick(a.cfg.Limits.DMPollInterval),
	}
	if a.pendingInvite != "" {
		code := a.pendingInvite
		a.pendingInvite = ""
		clearPendingInvite(a.cfg.Client)
		a.logf("Authenticated as %s, joining invite %s", user.DisplayName, code)
		cmds = append(cmds, a.joinByInvite(code, user))
	}
	return tea.Batch(cmds...)
}

func (a *App) handleSendResult(msg sendResultMsg) tea.Cmd {
	if a.compose == composeSending {
		a.compose = composeComposing
	}
	if msg.err != nil {
		// Failure keeps the composer content so the user can see what was
		// rejected.
		if a.input.Value() == "" {
			a.input.SetValue(msg.content)
			a.input.CursorEnd()
		}
		return a.bannerForError("Send", msg.err)
	}
	if msg.scopeID == a.store.State().ActiveScopeID() {
		a.input.SetValue("")
		a.compose = composeIdle
		a.updateHelp()
	}
	return nil
}

func (a *App) handleOpResult(msg opResultMsg) tea.Cmd {
	if msg.err == nil {
		switch msg.op {
		case "read-state", "unread-counts", "dm-unread-counts":
			return nil
		}
		a.logf("%s done", msg.op)
		return nil
	}
	if msg.op == "read-state" {
		// Fire-and-forget: worst case an unread badge reappears later.
		return nil
	}
	return a.bannerForError(msg.op, msg.err)
}

func (a *App) bannerForError(op string, err error) tea.Cmd {
	switch {
	case errors.Is(err, gateway.ErrForbidden):
		return a.logErrorf("%s denied: %v", op, err)
	case errors.Is(err, gateway.ErrNotFound):
		return a.logErrorf("%s failed: no longer exists", op)
	default:
		return a.logErrorf("%s failed: %v", op, err)
	}
}

func (a *App) handleConversationReady(msg conversationReadyMsg) tea.Cmd {
	if msg.err != nil {
		return a.bannerForError("Open DM", msg.err)
	}
	a.dmNames[msg.conversation.ID] = msg.otherName
	a.logf("Direct messages with %s", msg.otherName)
	return a.handleAction(session.SelectConversation{ConversationID: msg.conversation.ID})
}

func (a *App) handleListResult(msg listResultMsg) tea.Cmd {
	if msg.err != nil {
		return a.bannerForError("List", msg.err)
	}
	a.view = viewChat
	switch msg.kind {
	case listRoles:
		a.viewport.SetContent(a.renderRoles(msg.roles))
	case listProfiles:
		a.viewport.SetContent(a.renderProfiles(msg.profiles))
	case listReactions:
		a.viewport.SetContent(a.renderReactions(msg.forID, msg.reactions))
	}
	return nil
}

func (a *App) handleUploadResult(msg uploadResultMsg) tea.Cmd {
	if msg.err != nil {
		return a.bannerForError("Upload", msg.err)
	}
	state := a.store.State()
	if state.User == nil || state.ActiveScopeID() == "" {
		return a.logErrorf("Upload finished but no active scope to post it in")
	}
	attachment := gateway.Attachment{
		URL:      msg.result.URL,
		Name:     msg.result.Name,
		MimeType: msg.result.MimeType,
		Size:     msg.result.Size,
	}
	content := attachmentMarkdown(attachment)
	return a.sendToActiveScope(state, content, []gateway.Attachment{attachment})
}

func (a *App) handleDMPollTick() tea.Cmd {
	state := a.store.State()
	if state.User == nil {
		return nil
	}
	// Best-effort reconciliation for conversations the user is not viewing,
	// in case a realtime event was missed.
	return tea.Batch(
		a.refreshDMUnread(state.User.ID, conversationIDs(state.Conversations)),
		dmPollTick(a.cfg.Limits.DMPollInterval),
	)
}

func (a *App) sendToActiveScope(state session.State, content string, attachments []gateway.Attachment) tea.Cmd {
	user := *state.User
	scopeID := state.ActiveScopeID()
	if state.Mode == session.ViewModeDM {
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			err := a.gw.SendDirectMessage(ctx, scopeID, content, user, attachments)
			return sendResultMsg{scopeID: scopeID, content: content, err: err}
		}
	}
	return func() tea.Msg {
		ctx, cancel := gatewayContext()
		defer cancel()
		err := a.gw.SendMessage(ctx, scopeID, content, user, attachments)
		return sendResultMsg{scopeID: scopeID, content: content, err: err}
	}
}

func (a *App) joinByInvite(code string, user gateway.User) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := gatewayContext()
		defer cancel()
		server, err := a.gw.ServerByInviteCode(ctx, code)
		if err != nil {
			return opResultMsg{op: "Join server", err: err}
		}
		if err := a.gw.JoinServer(ctx, server.ID, user.ID, user.DisplayName); err != nil {
			return opResultMsg{op: "Join server", err: err}
		}
		return actionMsg{action: session.SelectServer{ServerID: server.ID}}
	}
}
