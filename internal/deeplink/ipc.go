package deeplink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	portFileName   = "deeplink.port"
	forwardTimeout = 5 * time.Second
	// maxURLBytes bounds a forwarded line; callback URLs are small.
	maxURLBytes = 64 * 1024
)

// portFilePathFunc locates the file recording the listener's port.
// It can be overridden for testing using SetPortFilePathFunc.
var portFilePathFunc = defaultPortFilePath

func defaultPortFilePath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "addie", portFileName), nil
}

// SetPortFilePathFunc overrides the port file location for tests.
// Returns the original function so it can be restored.
func SetPortFilePathFunc(fn func() (string, error)) func() (string, error) {
	orig := portFilePathFunc
	if fn == nil {
		portFilePathFunc = defaultPortFilePath
	} else {
		portFilePathFunc = fn
	}
	return orig
}

// Listener receives callback URLs forwarded from other shell processes.
// It binds a loopback TCP port and records it in the port file so that
// Forward can find it. Loopback TCP is used instead of a unix socket to
// keep Windows builds working without build tags.
type Listener struct {
	ln       net.Listener
	portFile string
	urls     chan string
	done     chan struct{}
	handlers sync.WaitGroup
}

// Listen starts a loopback listener and advertises it in the port file.
func Listen() (*Listener, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start deep link listener: %w", err)
	}

	path, err := portFilePathFunc()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		_ = ln.Close()
		return nil, err
	}

	port := ln.Addr().(*net.TCPAddr).Port
	if err := os.WriteFile(path, []byte(strconv.Itoa(port)), 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("failed to record listener port: %w", err)
	}

	l := &Listener{
		ln:       ln,
		portFile: path,
		urls:     make(chan string, 4),
		done:     make(chan struct{}),
	}
	go l.acceptLoop()
	return l, nil
}

// acceptLoop is the sole closer of l.urls: it closes the channel only
// after every in-flight handleConn has returned, so a connection racing
// with Close can never send on a closed channel.
func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			l.handlers.Wait()
			close(l.urls)
			return
		}
		l.handlers.Add(1)
		go l.handleConn(conn)
	}
}

// handleConn reads a single newline-terminated URL from the connection.
func (l *Listener) handleConn(conn net.Conn) {
	defer l.handlers.Done()
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(forwardTimeout))

	reader := bufio.NewReaderSize(io.LimitReader(conn, maxURLBytes), 4096)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return
	}

	raw := strings.TrimSpace(line)
	if raw == "" {
		return
	}

	select {
	case l.urls <- raw:
		_, _ = conn.Write([]byte("ok\n"))
	case <-l.done:
	}
}

// URLs returns the channel of forwarded callback URLs.
// The channel is closed when the listener shuts down.
func (l *Listener) URLs() <-chan string {
	return l.urls
}

// Addr returns the bound loopback address, for logging.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Close stops the listener and removes the port file.
func (l *Listener) Close() error {
	close(l.done)
	err := l.ln.Close()
	if rmErr := os.Remove(l.portFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	return err
}

// Forward delivers a callback URL to a listener in another process.
// Returns (false, nil) when no listener is running, including when the
// port file is stale; the caller then handles the URL itself.
func Forward(raw string) (bool, error) {
	path, err := portFilePathFunc()
	if err != nil {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, nil
	}

	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || port <= 0 || port > 65535 {
		return false, nil
	}

	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), forwardTimeout)
	if err != nil {
		// Stale port file from a crashed process.
		return false, nil
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(forwardTimeout))
	if _, err := fmt.Fprintln(conn, strings.TrimSpace(raw)); err != nil {
		return false, fmt.Errorf("failed to forward deep link: %w", err)
	}

	// Wait for the ack so the receiving process has the URL before we exit.
	reply := make([]byte, 3)
	if _, err := conn.Read(reply); err != nil {
		return false, fmt.Errorf("no acknowledgement from listener: %w", err)
	}
	return true, nil
}
