// Package logind talks to systemd-logind over the system bus: it
// publishes the session's LockedHint and delivers the session's Lock
// and Unlock requests (as sent by "loginctl lock-session").
package logind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	busName          = "org.freedesktop.login1"
	managerPath      = dbus.ObjectPath("/org/freedesktop/login1")
	managerInterface = "org.freedesktop.login1.Manager"
	sessionInterface = "org.freedesktop.login1.Session"
)

// ErrNoSession is returned when the session cannot be resolved.
var ErrNoSession = errors.New("logind: session not found")

// Request is a lock or unlock request from logind.
type Request int

const (
	LockRequest Request = iota
	UnlockRequest
)

func (r Request) String() string {
	if r == UnlockRequest {
		return "unlock"
	}
	return "lock"
}

// Client is a connection to logind bound to one session.
type Client struct {
	conn    *dbus.Conn
	session dbus.BusObject
	logger  *slog.Logger

	mu      sync.Mutex
	matched bool
}

// Connect opens the system bus and resolves sessionID. An empty
// sessionID resolves the session of this process (XDG_SESSION_ID first).
func Connect(sessionID string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("logind: connect system bus: %w", err)
	}

	if sessionID == "" {
		sessionID = os.Getenv("XDG_SESSION_ID")
	}

	manager := conn.Object(busName, managerPath)
	var path dbus.ObjectPath
	if sessionID != "" {
		err = manager.Call(managerInterface+".GetSession", 0, sessionID).Store(&path)
	} else {
		err = manager.Call(managerInterface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path)
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %q: %v", ErrNoSession, sessionID, err)
	}

	return &Client{
		conn:    conn,
		session: conn.Object(busName, path),
		logger:  logger.With("component", "logind"),
	}, nil
}

// SessionPath returns the object path of the bound session.
func (c *Client) SessionPath() dbus.ObjectPath { return c.session.Path() }

// SetLocked publishes the session's LockedHint.
func (c *Client) SetLocked(locked bool) error {
	if err := c.session.Call(sessionInterface+".SetLockedHint", 0, locked).Err; err != nil {
		return fmt.Errorf("logind: set locked hint: %w", err)
	}
	return nil
}

// Locked reads the session's LockedHint.
func (c *Client) Locked() (bool, error) {
	variant, err := c.session.GetProperty(sessionInterface + ".LockedHint")
	if err != nil {
		return false, fmt.Errorf("logind: get locked hint: %w", err)
	}
	locked, ok := variant.Value().(bool)
	if !ok {
		return false, fmt.Errorf("logind: LockedHint is %T, not bool", variant.Value())
	}
	return locked, nil
}

func (c *Client) matchOptions(member string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(c.session.Path()),
		dbus.WithMatchInterface(sessionInterface),
		dbus.WithMatchSender(busName),
		dbus.WithMatchMember(member),
	}
}

// Requests delivers Lock and Unlock requests for the session until ctx
// is cancelled, then closes the returned channel.
func (c *Client) Requests(ctx context.Context) (<-chan Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.matched {
		for _, member := range []string{"Lock", "Unlock"} {
			if err := c.conn.AddMatchSignal(c.matchOptions(member)...); err != nil {
				return nil, fmt.Errorf("logind: match %s signal: %w", member, err)
			}
		}
		c.matched = true
	}

	signals := make(chan *dbus.Signal, 8)
	c.conn.Signal(signals)

	out := make(chan Request, 1)
	go func() {
		defer close(out)
		defer c.conn.RemoveSignal(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				req, ok := classifySignal(sig, c.session.Path())
				if !ok {
					continue
				}
				c.logger.Debug("session request", "request", req.String())
				select {
				case out <- req:
				default:
					// Only the latest request matters.
					select {
					case <-out:
					default:
					}
					out <- req
				}
			}
		}
	}()
	return out, nil
}

// classifySignal maps a session signal to a Request.
func classifySignal(sig *dbus.Signal, path dbus.ObjectPath) (Request, bool) {
	if sig == nil || sig.Path != path {
		return 0, false
	}
	switch sig.Name {
	case sessionInterface + ".Lock":
		return LockRequest, true
	case sessionInterface + ".Unlock":
		return UnlockRequest, true
	default:
		return 0, false
	}
}

// Close removes the signal matches and closes the bus connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.matched {
		for _, member := range []string{"Lock", "Unlock"} {
			if err := c.conn.RemoveMatchSignal(c.matchOptions(member)...); err != nil {
				c.logger.Debug("remove signal match", "member", member, "error", err)
			}
		}
		c.matched = false
	}
	return c.conn.Close()
}
