package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tobyns/CoveChat/internal/admission"
	"github.com/tobyns/CoveChat/internal/gateway"
	"github.com/tobyns/CoveChat/internal/session"
)

type commandSpec struct {
	trigger     string
	usage       string
	description string
}

func buildCommandCatalog() []commandSpec {
	return []commandSpec{
		{"/register", "/register <username> <password>", "Create an account"},
		{"/login", "/login <username> <password>", "Authenticate"},
		{"/logout", "/logout", "Sign out and reset the session"},
		{"/servers", "/servers", "List your servers with unread badges"},
		{"/server", "/server <number|name>", "Switch the active server"},
		{"/create-server", "/create-server <name>", "Create a server"},
		{"/join", "/join <invite-code>", "Join a server by invite code"},
		{"/invite", "/invite", "Show the active server's invite code"},
		{"/channels", "/channels", "List channels with unread badges"},
		{"/channel", "/channel <number|name>", "Switch the active channel"},
		{"/create-channel", "/create-channel <name> [category]", "Create a text channel"},
		{"/dms", "/dms", "List DM conversations"},
		{"/dm", "/dm <username>", "Open (or start) a DM conversation"},
		{"/chat", "/chat", "Return to the chat view"},
		{"/edit", "/edit <message-number>", "Edit one of your messages"},
		{"/delete", "/delete <message-number>", "Delete a message"},
		{"/react", "/react <message-number> <emoji>", "React to a message"},
		{"/unreact", "/unreact <message-number> <emoji>", "Remove your reaction"},
		{"/reactions", "/reactions <message-number>", "List a message's reactions"},
		{"/roles", "/roles", "List the active server's roles"},
		{"/create-role", "/create-role <name> [color]", "Create a role"},
		{"/assign-role", "/assign-role <username> <role>", "Assign a role to a member"},
		{"/members", "/members", "List the active server's members"},
		{"/profile", "/profile [display-name]", "Show or update your profile"},
		{"/search", "/search <query>", "Search users by name"},
		{"/upload", "/upload <path>", "Attach a file to the active scope"},
		{"/help", "/help", "Browse all commands"},
		{"/quit", "/quit", "Exit CoveChat"},
	}
}

func (a *App) handleSubmit(value string) tea.Cmd {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	if isCommand(value, a.cfg.Client.CommandPrefix) {
		a.input.SetValue("")
		return a.executeCommand(value)
	}
	if a.editingID != "" {
		return a.submitEdit(value)
	}
	return a.submitMessage(value)
}

// submitMessage runs the admission gate and, on pass, moves the composer to
// Sending. A rejected send never reaches the gateway.
func (a *App) submitMessage(value string) tea.Cmd {
	state := a.store.State()
	if state.User == nil {
		return a.logErrorf("Not signed in. Use /login or /register first.")
	}
	if state.ActiveScopeID() == "" {
		return a.logErrorf("No active channel or conversation")
	}
	if a.compose == composeSending {
		return a.logErrorf("Still sending the previous message")
	}

	content, err := a.gate.Admit(value)
	if err != nil {
		var tooLong *admission.TooLongError
		var limited *admission.RateLimitedError
		switch {
		case errors.Is(err, admission.ErrEmpty):
			return nil
		case errors.As(err, &tooLong):
			return a.logErrorf("Message too long: %d characters (max %d)", tooLong.Length, tooLong.Max)
		case errors.As(err, &limited):
			return a.logErrorf("Slow down: max %d messages every %s", limited.Max, limited.Window)
		default:
			return a.logErrorf("Message rejected: %v", err)
		}
	}

	a.compose = composeSending
	if handle := a.coord.Typing(); handle != nil {
		handle.Untrack()
	}
	return a.sendToActiveScope(state, content, nil)
}

// submitEdit saves an in-place edit. Validation failure keeps the editor
// open; only the length policy applies, edits are not rate limited.
func (a *App) submitEdit(value string) tea.Cmd {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return a.logErrorf("Edited message cannot be empty")
	}
	if n := len([]rune(trimmed)); n > a.cfg.Limits.MaxMessageLength {
		return a.logErrorf("Message too long: %d characters (max %d)", n, a.cfg.Limits.MaxMessageLength)
	}
	state := a.store.State()
	if state.User == nil {
		return a.logErrorf("Not signed in")
	}
	messageID := a.editingID
	requesterID := state.User.ID
	a.editingID = ""
	a.editingOriginal = ""
	a.input.SetValue("")
	return func() tea.Msg {
		ctx, cancel := gatewayContext()
		defer cancel()
		return opResultMsg{op: "Edit", err: a.gw.EditMessage(ctx, messageID, trimmed, requesterID)}
	}
}

func (a *App) executeCommand(raw string) tea.Cmd {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	state := a.store.State()

	switch cmd {
	case "/help":
		a.view = viewHelp
		a.updateViewportContent()
		return nil
	case "/chat":
		a.view = viewChat
		a.updateViewportContent()
		return nil
	case "/quit", "/exit":
		a.quitting = true
		a.Close()
		return tea.Quit

	case "/register", "/login":
		if len(args) < 2 {
			return a.logErrorf("Usage: %s <username> <password>", cmd)
		}
		if a.pendingAuth != "" {
			return a.logErrorf("Authentication already in progress")
		}
		username := args[0]
		password := strings.Join(args[1:], " ")
		a.pendingAuth = username
		mode := strings.TrimPrefix(cmd, "/")
		a.logf("Authenticating as %s ...", username)
		return a.authCommand(mode, username, password)

	case "/logout":
		a.token = ""
		a.view = viewHome
		a.logf("Signed out")
		return a.handleAction(session.SetUser{User: nil})

	case "/servers":
		a.view = viewChat
		a.viewport.SetContent(a.renderServerList(state))
		return nil
	case "/server":
		if len(args) < 1 {
			return a.logErrorf("Usage: /server <number|name>")
		}
		server := pickServer(state.Servers, strings.Join(args, " "))
		if server == nil {
			return a.logErrorf("No such server: %s", strings.Join(args, " "))
		}
		a.logf("Switched to server %s", server.Name)
		return a.handleAction(session.SelectServer{ServerID: server.ID})
	case "/create-server":
		if state.User == nil {
			return a.logErrorf("Not signed in")
		}
		if len(args) < 1 {
			return a.logErrorf("Usage: /create-server <name>")
		}
		name := strings.Join(args, " ")
		user := *state.User
		a.logf("Creating server %s ...", name)
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			id, err := a.gw.CreateServer(ctx, name, "", user.ID, user.DisplayName)
			if err != nil {
				return opResultMsg{op: "Create server", err: err}
			}
			return actionMsg{action: session.SelectServer{ServerID: id}}
		}
	case "/join":
		if len(args) < 1 {
			return a.logErrorf("Usage: /join <invite-code>")
		}
		code := args[0]
		if state.User == nil {
			// Remember the invite until the user authenticates.
			a.pendingInvite = code
			savePendingInvite(a.cfg.Client, code)
			return a.logErrorf("Sign in first; invite %s will be applied after login", code)
		}
		a.logf("Joining with invite %s ...", code)
		return a.joinByInvite(code, *state.User)
	case "/invite":
		server := state.ActiveServer()
		if server == nil {
			return a.logErrorf("No active server")
		}
		a.logf("Invite code for %s: %s", server.Name, server.InviteCode)
		return nil

	case "/channels":
		a.view = viewChat
		a.viewport.SetContent(a.renderChannelList(state))
		return nil
	case "/channel":
		if len(args) < 1 {
			return a.logErrorf("Usage: /channel <number|name>")
		}
		channel := pickChannel(state.Channels, strings.Join(args, " "))
		if channel == nil {
			return a.logErrorf("No such channel: %s", strings.Join(args, " "))
		}
		a.logf("Switched to #%s", channel.Name)
		return a.handleAction(session.SelectChannel{ChannelID: channel.ID})
	case "/create-channel":
		if state.User == nil || state.ActiveServerID == "" {
			return a.logErrorf("Select a server first")
		}
		if len(args) < 1 {
			return a.logErrorf("Usage: /create-channel <name> [category]")
		}
		name := args[0]
		category := strings.Join(args[1:], " ")
		serverID := state.ActiveServerID
		userID := state.User.ID
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			id, err := a.gw.CreateChannel(ctx, serverID, name, category, userID)
			if err != nil {
				return opResultMsg{op: "Create channel", err: err}
			}
			return actionMsg{action: session.SelectChannel{ChannelID: id}}
		}

	case "/dms":
		cmd := a.handleAction(session.SetViewMode{Mode: session.ViewModeDM})
		a.view = viewChat
		a.viewport.SetContent(a.renderConversationList(a.store.State()))
		return cmd
	case "/dm":
		if state.User == nil {
			return a.logErrorf("Not signed in")
		}
		if len(args) < 1 {
			return a.logErrorf("Usage: /dm <username>")
		}
		return a.openDM(*state.User, strings.Join(args, " "))

	case "/edit":
		message := a.ownMessageFromArgs(state, args, "Usage: /edit <message-number>")
		if message == nil {
			return a.logErrorf("%s", a.logLine.body)
		}
		a.editingID = message.ID
		a.editingOriginal = message.Content
		a.input.SetValue(message.Content)
		a.input.CursorEnd()
		a.logf("Editing message; Enter saves, Esc cancels")
		return nil
	case "/delete":
		message := a.messageFromArgs(state, args, "Usage: /delete <message-number>")
		if message == nil {
			return a.logErrorf("%s", a.logLine.body)
		}
		userID := state.User.ID
		serverID := state.ActiveServerID
		messageID := message.ID
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			return opResultMsg{op: "Delete", err: a.gw.DeleteMessage(ctx, messageID, userID, serverID)}
		}
	case "/react", "/unreact":
		if len(args) < 2 {
			return a.logErrorf("Usage: %s <message-number> <emoji>", cmd)
		}
		message := a.messageFromArgs(state, args[:1], "")
		if message == nil {
			return a.logErrorf("No such message: %s", args[0])
		}
		emoji := args[1]
		userID := state.User.ID
		messageID := message.ID
		removing := cmd == "/unreact"
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			if removing {
				return opResultMsg{op: "Unreact", err: a.gw.RemoveReaction(ctx, messageID, userID, emoji)}
			}
			return opResultMsg{op: "React", err: a.gw.AddReaction(ctx, messageID, userID, emoji)}
		}
	case "/reactions":
		message := a.messageFromArgs(state, args, "Usage: /reactions <message-number>")
		if message == nil {
			return a.logErrorf("%s", a.logLine.body)
		}
		messageID := message.ID
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			reactions, err := a.gw.FetchReactions(ctx, messageID)
			return listResultMsg{kind: listReactions, reactions: reactions, forID: messageID, err: err}
		}

	case "/roles":
		if state.ActiveServerID == "" {
			return a.logErrorf("Select a server first")
		}
		serverID := state.ActiveServerID
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			roles, err := a.gw.FetchRoles(ctx, serverID)
			return listResultMsg{kind: listRoles, roles: roles, err: err}
		}
	case "/create-role":
		if state.User == nil || state.ActiveServerID == "" {
			return a.logErrorf("Select a server first")
		}
		if len(args) < 1 {
			return a.logErrorf("Usage: /create-role <name> [color]")
		}
		name := args[0]
		color := ""
		if len(args) > 1 {
			color = args[1]
		}
		serverID := state.ActiveServerID
		userID := state.User.ID
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			_, err := a.gw.CreateRole(ctx, serverID, name, color, gateway.PermissionSet{}, userID)
			return opResultMsg{op: "Create role", err: err}
		}
	case "/assign-role":
		if state.User == nil || state.ActiveServerID == "" {
			return a.logErrorf("Select a server first")
		}
		if len(args) < 2 {
			return a.logErrorf("Usage: /assign-role <username> <role>")
		}
		member := pickMember(state.Members, args[0])
		if member == nil {
			return a.logErrorf("No such member: %s", args[0])
		}
		serverID := state.ActiveServerID
		userID := state.User.ID
		targetID := member.UserID
		roleName := strings.Join(args[1:], " ")
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			roles, err := a.gw.FetchRoles(ctx, serverID)
			if err != nil {
				return opResultMsg{op: "Assign role", err: err}
			}
			for _, role := range roles {
				if strings.EqualFold(role.Name, roleName) {
					return opResultMsg{op: "Assign role", err: a.gw.AssignRole(ctx, serverID, targetID, role.ID, userID)}
				}
			}
			return opResultMsg{op: "Assign role", err: fmt.Errorf("role %s: %w", roleName, gateway.ErrNotFound)}
		}
	case "/members":
		a.view = viewChat
		a.viewport.SetContent(a.renderMembers(state))
		return nil

	case "/profile":
		if state.User == nil {
			return a.logErrorf("Not signed in")
		}
		userID := state.User.ID
		if len(args) == 0 {
			return func() tea.Msg {
				ctx, cancel := gatewayContext()
				defer cancel()
				profile, err := a.gw.UserProfile(ctx, userID)
				if err != nil {
					return listResultMsg{kind: listProfiles, err: err}
				}
				return listResultMsg{kind: listProfiles, profiles: []gateway.Profile{*profile}}
			}
		}
		name := strings.Join(args, " ")
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			return opResultMsg{op: "Update profile", err: a.gw.UpsertProfile(ctx, userID, gateway.Profile{Username: name})}
		}
	case "/search":
		if state.User == nil {
			return a.logErrorf("Not signed in")
		}
		if len(args) < 1 {
			return a.logErrorf("Usage: /search <query>")
		}
		query := strings.Join(args, " ")
		userID := state.User.ID
		return func() tea.Msg {
			ctx, cancel := gatewayContext()
			defer cancel()
			profiles, err := a.gw.SearchUsers(ctx, query, userID)
			return listResultMsg{kind: listProfiles, profiles: profiles, err: err}
		}

	case "/upload":
		if state.User == nil || state.ActiveScopeID() == "" {
			return a.logErrorf("Select a channel or conversation first")
		}
		if len(args) < 1 {
			return a.logErrorf("Usage: /upload <path>")
		}
		path := strings.Join(args, " ")
		userID := state.User.ID
		a.logf("Uploading %s ...", filepath.Base(path))
		return func() tea.Msg {
			file, err := os.Open(path)
			if err != nil {
				return uploadResultMsg{err: err}
			}
			defer file.Close()
			ctx, cancel := gatewayContext()
			defer cancel()
			result, err := a.gw.UploadFile(ctx, filepath.Base(path), file, userID)
			return uploadResultMsg{result: result, err: err}
		}

	default:
		return a.logErrorf("Unknown command: %s", cmd)
	}
}

func (a *App) authCommand(mode, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := gatewayContext()
		defer cancel()
		var (
			sess *gateway.Session
			err  error
		)
		if mode == "register" {
			sess, err = a.authGw.Register(ctx, username, password)
		} else {
			sess, err = a.authGw.Login(ctx, username, password)
		}
		return authResultMsg{mode: mode, username: username, session: sess, err: err}
	}
}

func (a *App) openDM(user gateway.User, username string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := gatewayContext()
		defer cancel()
		profiles, err := a.gw.SearchUsers(ctx, username, user.ID)
		if err != nil {
			return conversationReadyMsg{err: err}
		}
		var other *gateway.Profile
		for i := range profiles {
			if strings.EqualFold(profiles[i].Username, username) {
				other = &profiles[i]
				break
			}
		}
		if other == nil && len(profiles) == 1 {
			other = &profiles[0]
		}
		if other == nil {
			return conversationReadyMsg{err: fmt.Errorf("user %s: %w", username, gateway.ErrNotFound)}
		}
		conversation, err := a.gw.GetOrCreateConversation(ctx, user.ID, other.UserID)
		if err != nil {
			return conversationReadyMsg{err: err}
		}
		return conversationReadyMsg{conversation: conversation, otherName: other.Username}
	}
}

// messageFromArgs resolves a 1-based message number against the active scope.
func (a *App) messageFromArgs(state session.State, args []string, usage string) *gateway.Message {
	if len(args) < 1 {
		a.logLine = logEntry{body: usage}
		return nil
	}
	if state.User == nil || state.Mode != session.ViewModeServer {
		a.logLine = logEntry{body: "Message commands work in channel view"}
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(state.Messages) {
		a.logLine = logEntry{body: fmt.Sprintf("No message #%s in view", args[0])}
		return nil
	}
	message := state.Messages[n-1]
	return &message
}

func (a *App) ownMessageFromArgs(state session.State, args []string, usage string) *gateway.Message {
	message := a.messageFromArgs(state, args, usage)
	if message == nil {
		return nil
	}
	if state.User == nil || message.AuthorID != state.User.ID {
		a.logLine = logEntry{body: "You can only edit your own messages"}
		return nil
	}
	return message
}

func pickServer(servers []gateway.Server, arg string) *gateway.Server {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(servers) {
		return &servers[n-1]
	}
	for i := range servers {
		if strings.EqualFold(servers[i].Name, arg) {
			return &servers[i]
		}
	}
	return nil
}

func pickChannel(channels []gateway.Channel, arg string) *gateway.Channel {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(channels) {
		return &channels[n-1]
	}
	name := strings.TrimPrefix(arg, "#")
	for i := range channels {
		if strings.EqualFold(channels[i].Name, name) {
			return &channels[i]
		}
	}
	return nil
}

func pickMember(members []gateway.Member, arg string) *gateway.Member {
	for i := range members {
		if strings.EqualFold(members[i].DisplayName, arg) {
			return &members[i]
		}
	}
	return nil
}

func attachmentMarkdown(attachment gateway.Attachment) string {
	if strings.HasPrefix(attachment.MimeType, "image/") {
		return fmt.Sprintf("![%s](%s)", attachment.Name, attachment.URL)
	}
	return fmt.Sprintf("[%s](%s)", attachment.Name, attachment.URL)
}
