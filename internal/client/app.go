package client

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tobyns/CoveChat/internal/admission"
	"github.com/tobyns/CoveChat/internal/config"
	"github.com/tobyns/CoveChat/internal/gateway"
	"github.com/tobyns/CoveChat/internal/session"
)

// primaryView enumerates main content panels.
type primaryView int

const (
	viewHome primaryView = iota
	viewChat
	viewHelp
)

func (v primaryView) String() string {
	switch v {
	case viewHome:
		return "home"
	case viewChat:
		return "chat"
	case viewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// composeState tracks the message composer's lifecycle for the active scope.
type composeState int

const (
	composeIdle composeState = iota
	composeComposing
	composeSending
)

// App implements the bubbletea tea.Model interface for the terminal client.
// It owns the session store, the subscription coordinator, and the admission
// gate; every async operation is a tea.Cmd whose result re-enters Update as a
// typed message.
type App struct {
	cfg    config.Config
	gw     gateway.Gateway
	authGw gateway.AuthGateway

	store *session.Store
	coord *session.Coordinator
	gate  *admission.Controller

	senderMu sync.Mutex
	sender   func(tea.Msg)

	token       string
	pendingAuth string

	input    textinput.Model
	viewport viewport.Model
	helper   help.Model
	styles   styleSet
	commands []commandSpec

	view       primaryView
	width      int
	height     int
	showHelp   bool
	helpView   string
	helpHeight int

	compose         composeState
	editingID       string
	editingOriginal string

	typingPeers  []gateway.TypingPeer
	lastTypingAt time.Time

	// dmNames caches the other participant's display name per conversation.
	dmNames map[string]string

	logLine   logEntry
	bannerSeq int

	pendingInvite string
	quitting      bool
}

// New builds the client model around a gateway pair.
func New(cfg config.Config, gw gateway.Gateway, authGw gateway.AuthGateway) *App {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Message, or / for commands"
	input.Focus()
	input.CharLimit = 0

	a := &App{
		cfg:      cfg,
		gw:       gw,
		authGw:   authGw,
		store:    session.NewStore(),
		gate:     admission.NewController(cfg.Limits.MaxMessageLength, cfg.Limits.RateLimitMaxSends, cfg.Limits.RateLimitWindow),
		input:    input,
		viewport: viewport.New(0, 0),
		helper:   help.New(),
		styles:   buildStyles(),
		view:     viewHome,
		dmNames:  make(map[string]string),
	}
	a.commands = buildCommandCatalog()
	a.coord = session.NewCoordinator(gw, a.dispatchFromGateway, a.typingFromGateway)
	a.pendingInvite = loadPendingInvite(cfg.Client)
	a.updateViewportContent()
	return a
}

// AttachSender wires the running program's Send func so gateway goroutines
// can push messages into the update loop. Must be called before any
// subscription exists, i.e. before authentication.
func (a *App) AttachSender(send func(tea.Msg)) {
	a.senderMu.Lock()
	a.sender = send
	a.senderMu.Unlock()
}

func (a *App) dispatchFromGateway(action session.Action) {
	a.send(actionMsg{action: action})
}

func (a *App) typingFromGateway(peers []gateway.TypingPeer) {
	a.send(typingMsg{peers: peers})
}

func (a *App) send(msg tea.Msg) {
	a.senderMu.Lock()
	send := a.sender
	a.senderMu.Unlock()
	if send != nil {
		send(msg)
	}
}

// Close tears down every live subscription.
func (a *App) Close() {
	a.coord.Close()
}

// Init is part of the tea.Model interface.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles user input and internal events.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.height = m.Height
		a.updateViewportSize()
		a.updateInputWidth()
		a.updateViewportContent()
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case actionMsg:
		return a, a.handleAction(m.action)
	case typingMsg:
		a.typingPeers = m.peers
		a.updateViewportContent()
		return a, nil
	case authResultMsg:
		return a, a.handleAuthResult(m)
	case sendResultMsg:
		return a, a.handleSendResult(m)
	case opResultMsg:
		return a, a.handleOpResult(m)
	case scopeMetaMsg:
		return a, a.handleScopeMeta(m)
	case conversationReadyMsg:
		return a, a.handleConversationReady(m)
	case listResultMsg:
		return a, a.handleListResult(m)
	case uploadResultMsg:
		return a, a.handleUploadResult(m)
	case bannerClearMsg:
		if m.seq == a.bannerSeq {
			a.logLine = logEntry{}
		}
		return a, nil
	case dmPollTickMsg:
		return a, a.handleDMPollTick()
	default:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		a.quitting = true
		a.Close()
		return a, tea.Quit
	case tea.KeyPgUp:
		a.viewport.LineUp(a.viewport.Height)
		return a, nil
	case tea.KeyPgDown:
		a.viewport.LineDown(a.viewport.Height)
		return a, nil
	case tea.KeyEsc:
		if a.editingID != "" {
			// Cancel the edit, discarding changes.
			a.editingID = ""
			a.editingOriginal = ""
			a.input.SetValue("")
			a.compose = composeIdle
			a.logf("Edit cancelled")
			return a, nil
		}
		a.input.SetValue("")
		a.compose = composeIdle
		a.updateHelp()
		return a, nil
	case tea.KeyTab:
		a.handleTabCompletion()
		return a, nil
	case tea.KeyEnter:
		value := a.input.Value()
		a.updateHelp()
		return a, a.handleSubmit(value)
	}

	before := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	after := a.input.Value()
	if after != before {
		a.updateHelp()
		a.trackComposition(after)
	}
	return a, cmd
}

// trackComposition moves the composer state machine and broadcasts typing
// presence, throttled so at most one track per rebroadcast interval.
func (a *App) trackComposition(value string) {
	if value == "" {
		if a.compose == composeComposing {
			a.compose = composeIdle
		}
		return
	}
	if isCommand(value, a.cfg.Client.CommandPrefix) {
		return
	}
	if a.compose == composeIdle {
		a.compose = composeComposing
	}

	state := a.store.State()
	if state.User == nil || state.ActiveScopeID() == "" {
		return
	}
	now := time.Now()
	if now.Sub(a.lastTypingAt) < a.cfg.Limits.TypingRebroadcast {
		return
	}
	a.lastTypingAt = now
	if handle := a.coord.Typing(); handle != nil {
		handle.Track(state.User.DisplayName)
	}
}

func isCommand(value string, prefix rune) bool {
	return len(value) > 0 && []rune(value)[0] == prefix
}
