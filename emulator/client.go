package emulator

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds how long a query waits for the emulator to answer
const DefaultTimeout = 2 * time.Second

// Status is the parsed answer to GET_STATUS
type Status struct {
	Playing bool
	Paused  bool
	Core    string
	Content string
	CRC     string
	Raw     string
}

// HasContent reports whether a game is loaded
func (s Status) HasContent() bool {
	return s.Playing || s.Paused
}

// Client speaks RetroArch's network command protocol: one UDP datagram per
// command, with a reply datagram only for GET_* queries.
type Client struct {
	logger  *slog.Logger
	addr    string
	timeout time.Duration
}

func NewClient(logger *slog.Logger, host string, port int) *Client {
	return &Client{
		logger:  logger.With("component", "retroarch"),
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		timeout: DefaultTimeout,
	}
}

// Addr returns the host:port commands are sent to
func (c *Client) Addr() string {
	return c.addr
}

// Send delivers a command without waiting for a reply
func (c *Client) Send(command string) error {
	conn, err := net.DialTimeout("udp", c.addr, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to reach emulator at %s: %w", c.addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command)); err != nil {
		c.logger.Error("Command failed", "command", command, "error", err)
		return fmt.Errorf("failed to send %q: %w", command, err)
	}
	c.logger.Debug("Command sent", "command", command)
	return nil
}

// Query sends a command and waits for its reply
func (c *Client) Query(ctx context.Context, command string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", c.addr)
	if err != nil {
		return "", fmt.Errorf("failed to reach emulator at %s: %w", c.addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	conn.SetDeadline(deadline)

	if _, err := conn.Write([]byte(command)); err != nil {
		return "", fmt.Errorf("failed to send %q: %w", command, err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("no reply to %q: %w", command, err)
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

// Status queries what the emulator is running. An unreachable emulator
// yields an empty status and the error.
func (c *Client) Status(ctx context.Context) (Status, error) {
	reply, err := c.Query(ctx, "GET_STATUS")
	if err != nil {
		return Status{}, err
	}
	return ParseStatus(reply), nil
}

// ShowMessage puts a notification on the emulator's on-screen display
func (c *Client) ShowMessage(text string) error {
	return c.Send("SHOW_MSG " + text)
}

// Screenshot asks the emulator to write a screenshot to its screenshot directory
func (c *Client) Screenshot() error {
	return c.Send("SCREENSHOT")
}

// SaveState selects slot and saves to it
func (c *Client) SaveState(slot int) error {
	if err := c.Send(fmt.Sprintf("SAVE_STATE_SLOT %d", slot)); err != nil {
		return err
	}
	return c.Send("SAVE_STATE")
}

// LoadState selects slot and loads from it
func (c *Client) LoadState(slot int) error {
	if err := c.Send(fmt.Sprintf("LOAD_STATE_SLOT %d", slot)); err != nil {
		return err
	}
	return c.Send("LOAD_STATE")
}

func (c *Client) PauseToggle() error {
	return c.Send("PAUSE_TOGGLE")
}

// ParseStatus decodes "GET_STATUS PLAYING core,content,crc32=xxxx".
// "GET_STATUS CONTENTLESS" and anything unrecognised decode to no content.
func ParseStatus(reply string) Status {
	s := Status{Raw: reply}

	parts := strings.Fields(reply)
	if len(parts) < 2 {
		return s
	}
	s.Playing = parts[1] == "PLAYING"
	s.Paused = parts[1] == "PAUSED"

	if len(parts) < 3 {
		return s
	}
	info := strings.Join(parts[2:], " ")
	fields := strings.SplitN(info, ",", 3)
	if len(fields) == 1 {
		s.Content = info
		return s
	}
	s.Core = fields[0]
	s.Content = fields[1]
	if len(fields) == 3 {
		s.CRC = strings.TrimPrefix(fields[2], "crc32=")
	}
	return s
}
