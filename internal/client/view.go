package client

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-runewidth"

	"github.com/tobyns/CoveChat/internal/gateway"
	"github.com/tobyns/CoveChat/internal/session"
)

// messageGroupWindow is the gap within which consecutive messages from the
// same author collapse under one header.
const messageGroupWindow = 5 * time.Minute

var homeContent = buildHomeContent()

type styleSet struct {
	title         lipgloss.Style
	view          lipgloss.Style
	label         lipgloss.Style
	value         lipgloss.Style
	author        lipgloss.Style
	timestamp     lipgloss.Style
	edited        lipgloss.Style
	unread        lipgloss.Style
	typing        lipgloss.Style
	logLabel      lipgloss.Style
	logBody       lipgloss.Style
	logLabelError lipgloss.Style
	logBodyError  lipgloss.Style
	help          lipgloss.Style
}

func buildStyles() styleSet {
	base := lipgloss.NewStyle()
	return styleSet{
		title:         base.Foreground(lipgloss.Color("13")).Bold(true),
		view:          base.Foreground(lipgloss.Color("14")).Bold(true),
		label:         base.Foreground(lipgloss.Color("8")),
		value:         base.Foreground(lipgloss.Color("15")),
		author:        base.Foreground(lipgloss.Color("12")).Bold(true),
		timestamp:     base.Foreground(lipgloss.Color("8")),
		edited:        base.Foreground(lipgloss.Color("8")).Italic(true),
		unread:        base.Foreground(lipgloss.Color("9")).Bold(true),
		typing:        base.Foreground(lipgloss.Color("10")).Italic(true),
		logLabel:      base.Foreground(lipgloss.Color("11")).Bold(true),
		logBody:       base.Foreground(lipgloss.Color("7")),
		logLabelError: base.Foreground(lipgloss.Color("9")).Bold(true),
		logBodyError:  base.Foreground(lipgloss.Color("9")),
		help:          base.Foreground(lipgloss.Color("12")),
	}
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(a.viewport.View())
	b.WriteString("\n")

	if a.showHelp && a.helpView != "" {
		b.WriteString(a.styles.help.Render(a.helpView))
		b.WriteString("\n")
	}

	b.WriteString(a.input.View())
	b.WriteString("\n")
	b.WriteString(a.logLineView())
	b.WriteString("\n")
	b.WriteString(a.statusLine())

	return b.String()
}

func (a *App) updateViewportContent() {
	switch a.view {
	case viewHome:
		a.viewport.SetContent(homeContent)
	case viewChat:
		state := a.store.State()
		if state.ActiveScopeID() == "" {
			a.viewport.SetContent(homeContent)
			return
		}
		width := a.viewport.Width
		if width <= 0 {
			width = a.width
		}
		lines := a.chatLines(state)
		if typing := a.typingLine(); typing != "" {
			lines = append(lines, "", typing)
		}
		if len(lines) == 0 {
			a.viewport.SetContent("No messages yet. Type and press Enter to send.")
		} else {
			a.viewport.SetContent(strings.Join(wrapLines(lines, width), "\n"))
		}
		a.viewport.GotoBottom()
	case viewHelp:
		a.viewport.SetContent(a.renderHelpView())
	}
}

// chatLines renders the active scope's messages with grouped author headers.
func (a *App) chatLines(state session.State) []string {
	if state.Mode == session.ViewModeDM {
		return a.dmLines(state.DMMessages)
	}
	return a.channelLines(state.Messages)
}

func (a *App) channelLines(messages []gateway.Message) []string {
	var lines []string
	var prevAuthor string
	var prevAt time.Time
	for i, m := range messages {
		if m.AuthorID != prevAuthor || m.CreatedAt.Sub(prevAt) > messageGroupWindow {
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, a.messageHeader(m.AuthorName, m.CreatedAt))
		}
		lines = append(lines, a.messageBody(fmt.Sprintf("%3d", i+1), m.Content, m.EditedAt))
		for _, att := range m.Attachments {
			lines = append(lines, "      "+attachmentMarkdown(att))
		}
		prevAuthor = m.AuthorID
		prevAt = m.CreatedAt
	}
	return lines
}

func (a *App) dmLines(messages []gateway.DirectMessage) []string {
	var lines []string
	var prevSender string
	var prevAt time.Time
	for _, m := range messages {
		if m.SenderID != prevSender || m.CreatedAt.Sub(prevAt) > messageGroupWindow {
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, a.messageHeader(m.SenderName, m.CreatedAt))
		}
		lines = append(lines, "      "+m.Content)
		for _, att := range m.Attachments {
			lines = append(lines, "      "+attachmentMarkdown(att))
		}
		prevSender = m.SenderID
		prevAt = m.CreatedAt
	}
	return lines
}

func (a *App) messageHeader(name string, at time.Time) string {
	return a.styles.author.Render(name) + " " + a.styles.timestamp.Render(at.Format("Jan 2 15:04"))
}

func (a *App) messageBody(prefix, content string, editedAt *time.Time) string {
	line := a.styles.label.Render(prefix) + "   " + content
	if editedAt != nil {
		line += " " + a.styles.edited.Render("(edited)")
	}
	return line
}

func (a *App) typingLine() string {
	names := make([]string, 0, len(a.typingPeers))
	for _, p := range a.typingPeers {
		names = append(names, p.DisplayName)
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return a.styles.typing.Render(names[0] + " is typing...")
	case 2:
		return a.styles.typing.Render(names[0] + " and " + names[1] + " are typing...")
	default:
		return a.styles.typing.Render("Several people are typing...")
	}
}

// badge formats an unread count, clamped at 99+.
func badge(count int) string {
	if count <= 0 {
		return ""
	}
	if count > 99 {
		return " (99+)"
	}
	return fmt.Sprintf(" (%d)", count)
}

func (a *App) renderServerList(state session.State) string {
	if len(state.Servers) == 0 {
		return "No servers yet. Use /create-server <name> or /join <invite-code>."
	}
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Servers"))
	b.WriteString("\n\n")
	for i, s := range state.Servers {
		marker := "  "
		if s.ID == state.ActiveServerID {
			marker = "* "
		}
		line := fmt.Sprintf("%s%2d. %s", marker, i+1, s.Name)
		if unreadText := badge(state.ServerUnreadTotal(s.ID)); unreadText != "" {
			line += a.styles.unread.Render(unreadText)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nUse /server <number|name> to switch.")
	return b.String()
}

func (a *App) renderChannelList(state session.State) string {
	if state.ActiveServerID == "" {
		return "No active server. Use /servers first."
	}
	if len(state.Channels) == 0 {
		return "No channels. Use /create-channel <name>."
	}
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Channels"))
	b.WriteString("\n")
	category := ""
	for i, c := range state.Channels {
		if c.Category != category {
			category = c.Category
			b.WriteString("\n")
			b.WriteString(a.styles.label.Render(strings.ToUpper(category)))
			b.WriteString("\n")
		}
		marker := "  "
		if c.ID == state.ActiveChannelID {
			marker = "* "
		}
		line := fmt.Sprintf("%s%2d. #%s", marker, i+1, c.Name)
		if unreadText := badge(state.ChannelUnreadCount(state.ActiveServerID, c.ID)); unreadText != "" {
			line += a.styles.unread.Render(unreadText)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nUse /channel <number|name> to switch.")
	return b.String()
}

func (a *App) renderConversationList(state session.State) string {
	if len(state.Conversations) == 0 {
		return "No conversations yet. Use /dm <username> to start one."
	}
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Direct Messages"))
	b.WriteString("\n\n")
	for i, c := range state.Conversations {
		marker := "  "
		if c.ID == state.ActiveConversationID {
			marker = "* "
		}
		line := fmt.Sprintf("%s%2d. %s", marker, i+1, a.conversationLabel(state, c))
		if unreadText := badge(state.DMUnread[c.ID]); unreadText != "" {
			line += a.styles.unread.Render(unreadText)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nUse /dm <username> to open a conversation.")
	return b.String()
}

// conversationLabel prefers a cached display name, falling back to a short
// form of the other participant's id.
func (a *App) conversationLabel(state session.State, c gateway.DMConversation) string {
	if name, ok := a.dmNames[c.ID]; ok {
		return "@" + name
	}
	other := c.ID
	if state.User != nil {
		if id := c.OtherParticipant(state.User.ID); id != "" {
			other = id
		}
	}
	if len(other) > 8 {
		other = other[:8]
	}
	return "@" + other
}

func (a *App) renderMembers(state session.State) string {
	if state.ActiveServerID == "" {
		return "No active server."
	}
	if len(state.Members) == 0 {
		return "Member list not loaded yet."
	}
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Members"))
	b.WriteString("\n\n")
	for _, m := range state.Members {
		roleName := "Member"
		roleColor := "#99aab5"
		if m.Role != nil {
			roleName = m.Role.Name
			roleColor = m.Role.Color
		}
		role := lipgloss.NewStyle().Foreground(lipgloss.Color(roleColor)).Render(roleName)
		b.WriteString(fmt.Sprintf("  %-24s %s\n", m.DisplayName, role))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderRoles(roles []gateway.Role) string {
	if len(roles) == 0 {
		return "No roles."
	}
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Roles"))
	b.WriteString("\n\n")
	for _, r := range roles {
		name := lipgloss.NewStyle().Foreground(lipgloss.Color(r.Color)).Bold(true).Render(r.Name)
		b.WriteString(fmt.Sprintf("  %s%s\n", name, permissionSummary(r.Permissions)))
	}
	b.WriteString("\nUse /assign-role <username> <role> to assign.")
	return b.String()
}

func permissionSummary(p gateway.PermissionSet) string {
	var caps []string
	if p.CreateChannels {
		caps = append(caps, "create-channels")
	}
	if p.DeleteMessages {
		caps = append(caps, "delete-messages")
	}
	if p.ManageRoles {
		caps = append(caps, "manage-roles")
	}
	if len(caps) == 0 {
		return ""
	}
	return "  [" + strings.Join(caps, ", ") + "]"
}

func (a *App) renderProfiles(profiles []gateway.Profile) string {
	if len(profiles) == 0 {
		return "No users found."
	}
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Users"))
	b.WriteString("\n\n")
	for _, p := range profiles {
		b.WriteString(fmt.Sprintf("  %s\n", p.Username))
	}
	b.WriteString("\nUse /dm <username> to start a conversation.")
	return b.String()
}

func (a *App) renderReactions(messageID string, reactions []gateway.Reaction) string {
	if len(reactions) == 0 {
		return "No reactions on that message."
	}
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, r := range reactions {
		if counts[r.Emoji] == 0 {
			order = append(order, r.Emoji)
		}
		counts[r.Emoji]++
	}
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Reactions"))
	b.WriteString("\n\n")
	for _, emoji := range order {
		b.WriteString(fmt.Sprintf("  %s %d\n", emoji, counts[emoji]))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderHelpView() string {
	var b strings.Builder
	b.WriteString("CoveChat Commands\n\n")
	for _, c := range a.commands {
		b.WriteString(fmt.Sprintf("%-34s %s\n", c.usage, c.description))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) updateViewportSize() {
	if a.height == 0 {
		return
	}
	const fixed = 3
	height := a.height - fixed - a.helpHeight
	if height < 3 {
		height = 3
	}
	a.viewport.Height = height
	a.viewport.Width = a.width
}

func (a *App) updateInputWidth() {
	width := a.width
	if width <= 0 {
		width = 60
	}
	promptWidth := lipgloss.Width(a.input.Prompt)
	usable := width - promptWidth - 1
	if usable < 10 {
		usable = 10
	}
	a.input.Width = usable
}

func (a *App) updateHelp() {
	value := a.input.Value()
	if value == "" || !strings.HasPrefix(value, string(a.cfg.Client.CommandPrefix)) {
		a.showHelp = false
		a.helpView = ""
		a.helpHeight = 0
		return
	}

	token := value
	if idx := strings.IndexAny(value, " \t"); idx >= 0 {
		token = value[:idx]
	}

	bindings := a.matchingBindings(token)
	if len(bindings) == 0 {
		a.showHelp = false
		a.helpView = ""
		a.helpHeight = 0
		return
	}

	a.showHelp = true
	a.helper.Width = a.width
	view := a.helper.View(dynamicKeyMap{keys: bindings})
	view = strings.TrimRight(view, "\n")
	a.helpView = view
	a.helpHeight = countLines(view)
}

func (a *App) matchingBindings(prefix string) []key.Binding {
	prefix = strings.ToLower(prefix)
	var bindings []key.Binding
	for _, c := range a.commands {
		if strings.HasPrefix(strings.ToLower(c.trigger), prefix) {
			bindings = append(bindings, key.NewBinding(
				key.WithKeys(c.usage),
				key.WithHelp(c.usage, c.description),
			))
		}
	}
	return bindings
}

func (a *App) statusLine() string {
	state := a.store.State()

	username := "-"
	if state.User != nil {
		username = state.User.DisplayName
	}
	serverName := "-"
	if server := state.ActiveServer(); server != nil {
		serverName = server.Name
	}
	scope := "-"
	if state.Mode == session.ViewModeDM {
		if conversation := state.ActiveConversation(); conversation != nil {
			scope = a.conversationLabel(state, *conversation)
		}
	} else if channel := state.ActiveChannel(); channel != nil {
		scope = "#" + channel.Name
	}

	parts := []string{
		a.styles.title.Render("CoveChat"),
		a.styles.view.Render(strings.ToUpper(a.view.String())),
		a.styles.label.Render("User") + ": " + a.styles.value.Render(username),
		a.styles.label.Render("Server") + ": " + a.styles.value.Render(serverName),
		a.styles.label.Render("Scope") + ": " + a.styles.value.Render(scope),
	}

	unreadTotal := state.ServerUnreadTotal(state.ActiveServerID) + state.DMUnreadTotal()
	if unreadText := badge(unreadTotal); unreadText != "" {
		parts = append(parts, a.styles.unread.Render("Unread"+unreadText))
	}

	return strings.Join(parts, " | ")
}

func (a *App) logLineView() string {
	labelStyle := a.styles.logLabel
	bodyStyle := a.styles.logBody
	if a.logLine.level == logLevelError {
		labelStyle = a.styles.logLabelError
		bodyStyle = a.styles.logBodyError
	}
	return labelStyle.Render(a.logLine.label) + " " + bodyStyle.Render(a.logLine.body)
}

func buildHomeContent() string {
	fig := figure.NewColorFigure("COVE CHAT", "3-d", "cyan", true)
	art := strings.TrimRight(fig.String(), "\n")
	info := []string{
		"Use /register or /login to authenticate.",
		"Use /servers and /channels to move around.",
		"Use /join <invite-code> to join a server.",
		"Use /dm <username> to message someone directly.",
		"Use /help to browse all commands.",
	}

	var b strings.Builder
	b.WriteString(art)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(info, "\n"))
	return b.String()
}

func wrapLines(lines []string, width int) []string {
	if width <= 0 {
		return lines
	}
	const minWidth = 10
	if width < minWidth {
		width = minWidth
	}

	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		segment := line
		if segment == "" {
			wrapped = append(wrapped, "")
			continue
		}
		for len(segment) > 0 {
			if runewidth.StringWidth(segment) <= width {
				wrapped = append(wrapped, segment)
				break
			}
			cut := wrapCutIndex(segment, width)
			part := strings.TrimRight(segment[:cut], " ")
			if part == "" && cut > 0 {
				part = segment[:cut]
			}
			wrapped = append(wrapped, part)
			segment = strings.TrimLeft(segment[cut:], " ")
			if segment == "" {
				break
			}
		}
	}
	return wrapped
}

func wrapCutIndex(s string, limit int) int {
	var width int
	lastSpace := -1
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if width+rw > limit {
			if lastSpace >= 0 {
				return lastSpace + 1
			}
			if width == 0 {
				return i + 1
			}
			return i
		}
		width += rw
		if unicode.IsSpace(r) {
			lastSpace = i
		}
	}
	return len(s)
}

type dynamicKeyMap struct {
	keys []key.Binding
}

func (d dynamicKeyMap) ShortHelp() []key.Binding {
	return d.keys
}

func (d dynamicKeyMap) FullHelp() [][]key.Binding {
	if len(d.keys) == 0 {
		return [][]key.Binding{}
	}
	return [][]key.Binding{d.keys}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
