package twitch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tugochat/tugochat/internal/domains/entities"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

const (
	ircUrl         = "wss://irc-ws.chat.twitch.tv:443"
	reconnectDelay = 5 * time.Second
)

var ErrChatLoginFailed = errors.New("chat login rejected")

// PullHandler receives every accepted pull command, keyed by the channel it
// was typed in.
type PullHandler func(channel, viewerId string, at time.Time)

// ircConn is the outbound half of the gateway connection. Satisfied by
// *websocket.Conn.
type ircConn interface {
	WriteMessage(messageType int, data []byte) error
}

// ChatMonitor follows one streamer's chat over the Twitch IRC gateway and
// reports pull commands that clear the per-viewer cooldown. All state is
// owned by the read loop.
type ChatMonitor struct {
	channel  string
	token    string
	command  string
	cooldown time.Duration
	onPull   PullHandler

	cooldowns map[string]time.Time // last accepted pull per viewer
}

func NewChatMonitor(
	channel string,
	token string,
	command string,
	cooldown time.Duration,
	onPull PullHandler,
) *ChatMonitor {
	return &ChatMonitor{
		channel:   channel,
		token:     token,
		command:   command,
		cooldown:  cooldown,
		onPull:    onPull,
		cooldowns: make(map[string]time.Time),
	}
}

// Start method    runs the monitor until ctx is cancelled
func (m *ChatMonitor) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := m.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrChatLoginFailed) {
			return err
		}
		logging.Error("chat session dropped, reconnecting",
			zap.String("channel", m.channel),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// session dials the gateway, authenticates, joins the channel and reads
// until the connection drops or ctx is cancelled.
func (m *ChatMonitor) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ircUrl, nil)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	if err := m.login(conn); err != nil {
		return err
	}
	logging.Info("chat monitor joined channel", zap.String("channel", m.channel))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		for _, line := range strings.Split(string(data), "\r\n") {
			if err := m.handleLine(conn, line); err != nil {
				return err
			}
		}
	}
}

func (m *ChatMonitor) login(conn ircConn) error {
	for _, line := range []string{
		"PASS oauth:" + m.token,
		"NICK " + m.channel,
		"JOIN #" + m.channel,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return err
		}
	}
	return nil
}

func (m *ChatMonitor) handleLine(conn ircConn, line string) error {
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "PING") {
		return conn.WriteMessage(
			websocket.TextMessage,
			[]byte(strings.Replace(line, "PING", "PONG", 1)),
		)
	}
	if strings.Contains(line, "NOTICE * :Login authentication failed") {
		return ErrChatLoginFailed
	}

	viewer, channel, text, ok := parsePrivmsg(line)
	if !ok || !isPullCommand(text, m.command) {
		return nil
	}
	now := time.Now()
	if !m.allowPull(viewer, now) {
		return nil
	}
	m.onPull(channel, viewer, now)
	return nil
}

// allowPull enforces the per-viewer cooldown. A denied pull does not reset
// the clock; only accepted pulls do.
func (m *ChatMonitor) allowPull(viewer string, at time.Time) bool {
	last, seen := m.cooldowns[viewer]
	if seen && at.Sub(last) < m.cooldown {
		return false
	}
	m.cooldowns[viewer] = at
	return true
}

/*
parsePrivmsg extracts the sender, channel and text of a PRIVMSG line:

	:viewer!viewer@viewer.tmi.twitch.tv PRIVMSG #channel :!pull

A leading IRCv3 tag block is skipped, not parsed.
*/
func parsePrivmsg(line string) (viewer, channel, text string, ok bool) {
	if strings.HasPrefix(line, "@") {
		_, rest, found := strings.Cut(line, " ")
		if !found {
			return "", "", "", false
		}
		line = rest
	}
	if !strings.HasPrefix(line, ":") {
		return "", "", "", false
	}
	prefix, rest, found := strings.Cut(line[1:], " ")
	if !found {
		return "", "", "", false
	}
	command, rest, found := strings.Cut(rest, " ")
	if !found || command != "PRIVMSG" {
		return "", "", "", false
	}
	target, message, found := strings.Cut(rest, " :")
	if !found {
		return "", "", "", false
	}
	viewer, _, found = strings.Cut(prefix, "!")
	if !found {
		return "", "", "", false
	}
	return viewer, strings.TrimPrefix(target, "#"), message, true
}

func isPullCommand(text, command string) bool {
	fields := strings.Fields(text)
	return len(fields) > 0 && strings.EqualFold(fields[0], command)
}

type monitorHandle struct {
	monitor *ChatMonitor
	cancel  context.CancelFunc
}

// ChatManager owns one chat monitor per watched session and tears each down
// when its session leaves the match.
type ChatManager struct {
	config   Config
	cooldown time.Duration

	mu       sync.Mutex
	monitors map[string]*monitorHandle
}

func NewChatManager(config Config, cooldown time.Duration) *ChatManager {
	return &ChatManager{
		config:   config,
		cooldown: cooldown,
		monitors: make(map[string]*monitorHandle),
	}
}

// Watch starts a monitor for the player's own channel, keyed by session.
// Watching an already watched session is a no-op.
func (cm *ChatManager) Watch(sessionId string, player entities.Player, onPull PullHandler) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if _, exist := cm.monitors[sessionId]; exist {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	monitor := NewChatMonitor(
		player.ChannelName,
		player.AccessToken,
		cm.config.PullCommand,
		cm.cooldown,
		onPull,
	)
	cm.monitors[sessionId] = &monitorHandle{monitor: monitor, cancel: cancel}

	go func() {
		if err := monitor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("chat monitor failed",
				zap.String("channel", player.ChannelName),
				zap.Error(err),
			)
		}
	}()
	logging.Info("chat monitor started",
		zap.String("channel", player.ChannelName),
		zap.String("session_id", sessionId),
	)
}

// Stop cancels the session's monitor if one is running.
func (cm *ChatManager) Stop(sessionId string) {
	cm.mu.Lock()
	handle, exist := cm.monitors[sessionId]
	if exist {
		delete(cm.monitors, sessionId)
	}
	cm.mu.Unlock()

	if exist {
		handle.cancel()
		logging.Info("chat monitor stopped",
			zap.String("channel", handle.monitor.channel),
			zap.String("session_id", sessionId),
		)
	}
}
