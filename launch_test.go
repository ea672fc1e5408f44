package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	eventuallyTimeout = 5 * time.Second
	eventuallyTick    = 10 * time.Millisecond
)

// syncBuffer is a bytes.Buffer safe for one writer and one polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// uiClient speaks the bridge protocol with untyped frames.
type uiClient struct {
	t    *testing.T
	conn *websocket.Conn
	seq  int
}

func dialUI(t *testing.T, url string) *uiClient {
	t.Helper()

	conn, _, err := websocket.Dial(context.Background(), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	return &uiClient{t: t, conn: conn}
}

func (c *uiClient) read() map[string]any {
	c.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), eventuallyTimeout)
	defer cancel()

	var frame map[string]any
	require.NoError(c.t, wsjson.Read(ctx, c.conn, &frame))

	return frame
}

func (c *uiClient) send(command, path string) {
	c.t.Helper()

	c.seq++

	ctx, cancel := context.WithTimeout(context.Background(), eventuallyTimeout)
	defer cancel()

	require.NoError(c.t, wsjson.Write(ctx, c.conn, map[string]any{
		"type":    "invoke",
		"id":      string(rune('a' + c.seq)),
		"command": command,
		"args":    map[string]string{"path": path},
	}))
}

func (c *uiClient) invoke(command, path string) map[string]any {
	c.t.Helper()

	c.send(command, path)

	for {
		frame := c.read()
		if frame["type"] == "result" {
			return frame
		}
	}
}

func (c *uiClient) nextEvent() (string, string) {
	c.t.Helper()

	frame := c.read()
	require.Equal(c.t, "event", frame["type"])

	return frame["event"].(string), frame["payload"].(string)
}

func TestRunShell_StartupFileAndForwardedLaunch(t *testing.T) {
	cc := testCLIContext(t)

	out := &syncBuffer{}
	done := make(chan error, 1)

	go func() {
		done <- runShell(context.Background(), cc, []string{"markflow", "/notes/first.md"}, out)
	}()

	require.Eventually(t, func() bool {
		return strings.HasPrefix(out.String(), "ws://")
	}, eventuallyTimeout, eventuallyTick)

	ui := dialUI(t, strings.TrimSpace(out.String()))

	res := ui.invoke("get_startup_file", "")
	assert.Equal(t, "/notes/first.md", res["result"])

	res = ui.invoke("get_startup_file", "")
	assert.Nil(t, res["result"])

	res = ui.invoke("record_recent_file", "/notes/first.md")
	assert.Empty(t, res["error"])

	// Second launch: same lock, so it hands off and returns.
	second := &syncBuffer{}
	require.NoError(t, runShell(context.Background(), cc, []string{"markflow", "/notes/second.md"}, second))
	assert.Empty(t, second.String())

	name, payload := ui.nextEvent()
	assert.Equal(t, "focus-window", name)
	assert.Empty(t, payload)

	name, payload = ui.nextEvent()
	assert.Equal(t, "open-file-request", name)
	assert.Equal(t, "/notes/second.md", payload)

	// The forwarded file never reaches the mailbox.
	res = ui.invoke("get_startup_file", "")
	assert.Nil(t, res["result"])

	res = ui.invoke("recent_files", "")
	assert.Equal(t, []any{"/notes/first.md"}, res["result"])

	ui.send("exit_app", "")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(eventuallyTimeout):
		t.Fatal("runShell did not stop after exit_app")
	}
}

func TestRunShell_FlagArgumentIsNotStartupFile(t *testing.T) {
	cc := testCLIContext(t)

	out := &syncBuffer{}
	done := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		done <- runShell(ctx, cc, []string{"markflow", "-psn_0_4242"}, out)
	}()

	require.Eventually(t, func() bool {
		return strings.HasPrefix(out.String(), "ws://")
	}, eventuallyTimeout, eventuallyTick)

	ui := dialUI(t, strings.TrimSpace(out.String()))
	res := ui.invoke("get_startup_file", "")
	assert.Nil(t, res["result"])

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(eventuallyTimeout):
		t.Fatal("runShell did not stop on cancel")
	}
}

func TestRunShell_ListenFailure(t *testing.T) {
	cc := testCLIContext(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cc.Cfg.Bridge.Listen = ln.Addr().String()

	err = runShell(context.Background(), cc, []string{"markflow"}, &syncBuffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting ui bridge")
}

func TestAnnounceBridge(t *testing.T) {
	t.Parallel()

	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4242}

	var text bytes.Buffer
	require.NoError(t, announceBridge(&text, addr, false))
	assert.Equal(t, "ws://127.0.0.1:4242/ws\n", text.String())

	var js bytes.Buffer
	require.NoError(t, announceBridge(&js, addr, true))
	assert.Contains(t, js.String(), `"url":"ws://127.0.0.1:4242/ws"`)
}
