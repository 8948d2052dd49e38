package emulator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeRetroArch answers GET_STATUS and records every other command
type fakeRetroArch struct {
	conn     *net.UDPConn
	status   string
	commands chan string
}

func startFakeRetroArch(t *testing.T, status string) *fakeRetroArch {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	f := &fakeRetroArch{conn: conn, status: status, commands: make(chan string, 16)}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 4096)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			cmd := string(buf[:n])
			if cmd == "GET_STATUS" {
				if f.status != "" {
					conn.WriteToUDP([]byte(f.status+"\n"), addr)
				}
				continue
			}
			f.commands <- cmd
		}
	}()
	return f
}

func (f *fakeRetroArch) client() *Client {
	addr := f.conn.LocalAddr().(*net.UDPAddr)
	c := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), "127.0.0.1", addr.Port)
	c.timeout = 300 * time.Millisecond
	return c
}

func (f *fakeRetroArch) next(t *testing.T) string {
	t.Helper()
	select {
	case cmd := <-f.commands:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatalf("no command received")
		return ""
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		reply string
		want  Status
	}{
		{
			"GET_STATUS PLAYING snes9x,Super Metroid (USA),crc32=d63ed5f8",
			Status{Playing: true, Core: "snes9x", Content: "Super Metroid (USA)", CRC: "d63ed5f8"},
		},
		{
			"GET_STATUS PAUSED genesis_plus_gx,Sonic",
			Status{Paused: true, Core: "genesis_plus_gx", Content: "Sonic"},
		},
		{"GET_STATUS CONTENTLESS", Status{}},
		{"", Status{}},
		{"GET_STATUS PLAYING justcontent", Status{Playing: true, Content: "justcontent"}},
	}

	for _, tt := range tests {
		got := ParseStatus(tt.reply)
		got.Raw = ""
		if got != tt.want {
			t.Fatalf("ParseStatus(%q) = %+v, want %+v", tt.reply, got, tt.want)
		}
	}
}

func TestGameInfo(t *testing.T) {
	tests := []struct {
		core, content        string
		wantSystem, wantGame string
	}{
		{"snes9x", "Chrono Trigger.sfc", "SNES", "Chrono Trigger"},
		{"Mesen-S", "x", "SNES", "x"},
		{"mesen", "Zelda", "NES", "Zelda"},
		{"commodore_amiga", "/roms/amiga/Lemmings.adf", "Amiga", "Lemmings"},
		{"vice_x64", "Boulder Dash", "C64", "Boulder Dash"},
		{"", "", UnknownSystem, UnknownGame},
		{"something_new", "Game.bin", UnknownSystem, "Game"},
	}

	for _, tt := range tests {
		system, game := GameInfo(Status{Core: tt.core, Content: tt.content})
		if system != tt.wantSystem || game != tt.wantGame {
			t.Fatalf("GameInfo(%q, %q) = %q, %q, want %q, %q", tt.core, tt.content, system, game, tt.wantSystem, tt.wantGame)
		}
	}
}

func TestClientStatus(t *testing.T) {
	f := startFakeRetroArch(t, "GET_STATUS PLAYING mgba,Golden Sun,crc32=1")

	st, err := f.client().Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !st.HasContent() || st.Core != "mgba" || st.Content != "Golden Sun" {
		t.Fatalf("Status() = %+v", st)
	}
}

func TestClientStatusTimeout(t *testing.T) {
	f := startFakeRetroArch(t, "")

	st, err := f.client().Status(context.Background())
	if err == nil {
		t.Fatalf("Status() error = nil, want timeout")
	}
	if st.HasContent() {
		t.Fatalf("Status() = %+v, want no content", st)
	}
}

func TestClientSaveLoadState(t *testing.T) {
	f := startFakeRetroArch(t, "")
	c := f.client()

	if err := c.SaveState(9); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	if err := c.LoadState(9); err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if err := c.ShowMessage("Hint Ready!"); err != nil {
		t.Fatalf("ShowMessage() error = %v", err)
	}

	want := []string{"SAVE_STATE_SLOT 9", "SAVE_STATE", "LOAD_STATE_SLOT 9", "LOAD_STATE", "SHOW_MSG Hint Ready!"}
	for _, w := range want {
		if got := f.next(t); got != w {
			t.Fatalf("command = %q, want %q", got, w)
		}
	}
}

type writeOnScreenshot struct {
	dir string
	err error
}

func (w writeOnScreenshot) Screenshot() error {
	if w.err != nil {
		return w.err
	}
	return os.WriteFile(filepath.Join(w.dir, "Game-260301-120000.png"), []byte("png"), 0644)
}

func TestCapturePicksNewScreenshot(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.png")
	if err := os.WriteFile(old, []byte("png"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	c := NewCapturer(writeOnScreenshot{dir: dir}, dir, 10*time.Millisecond)
	path, err := c.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if filepath.Base(path) != "Game-260301-120000.png" {
		t.Fatalf("Capture() = %s, want the new screenshot", path)
	}
}

func TestCaptureFailed(t *testing.T) {
	dir := t.TempDir()

	// emulator accepted the command but wrote nothing
	c := NewCapturer(writeOnScreenshot{dir: t.TempDir()}, dir, 10*time.Millisecond)
	if _, err := c.Capture(context.Background()); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("Capture() error = %v, want ErrCaptureFailed", err)
	}

	c = NewCapturer(writeOnScreenshot{err: errors.New("unreachable")}, dir, 10*time.Millisecond)
	if _, err := c.Capture(context.Background()); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("Capture() error = %v, want ErrCaptureFailed", err)
	}
}
