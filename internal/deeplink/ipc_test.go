package deeplink

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func setupPortFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), portFileName)
	orig := SetPortFilePathFunc(func() (string, error) { return path, nil })
	t.Cleanup(func() { SetPortFilePathFunc(orig) })
	return path
}

func TestForwardAndReceive(t *testing.T) {
	setupPortFile(t)

	l, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer func() { _ = l.Close() }()

	raw := "addie://auth/callback?sealed_session=s&user_id=u&email=e%40x.com"
	delivered, err := Forward(raw)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if !delivered {
		t.Fatal("expected Forward to reach the listener")
	}

	select {
	case got := <-l.URLs():
		if got != raw {
			t.Errorf("received %q, want %q", got, raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded URL")
	}
}

func TestForward_NoListener(t *testing.T) {
	setupPortFile(t)

	delivered, err := Forward("addie://auth/callback?sealed_session=s&user_id=u&email=e")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivered {
		t.Error("expected delivered=false with no listener running")
	}
}

func TestForward_StalePortFile(t *testing.T) {
	path := setupPortFile(t)

	// A port nothing is listening on.
	if err := os.WriteFile(path, []byte("1"), 0o600); err != nil {
		t.Fatalf("failed to write port file: %v", err)
	}

	delivered, err := Forward("addie://auth/callback?sealed_session=s&user_id=u&email=e")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivered {
		t.Error("expected delivered=false for stale port file")
	}
}

func TestForward_GarbagePortFile(t *testing.T) {
	path := setupPortFile(t)

	if err := os.WriteFile(path, []byte("not-a-port"), 0o600); err != nil {
		t.Fatalf("failed to write port file: %v", err)
	}

	delivered, err := Forward("addie://auth/callback?x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivered {
		t.Error("expected delivered=false for unparseable port file")
	}
}

func TestListener_CloseRemovesPortFile(t *testing.T) {
	path := setupPortFile(t)

	l, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected port file while listening: %v", err)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected port file removed after close")
	}
}

func TestListener_CloseWhileDelivering(t *testing.T) {
	setupPortFile(t)

	l, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	// Connect first so a handler goroutine is already running, then close
	// the listener before the URL arrives. The late delivery must not
	// crash the listener's process.
	conn, err := net.Dial("tcp", l.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	closed := make(chan error, 1)
	go func() { closed <- l.Close() }()

	_, _ = fmt.Fprintln(conn, "addie://auth/callback?sealed_session=s&user_id=u&email=e%40x.com")

	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return; handler goroutine is stuck")
	}

	// The channel must end up closed, with any delivered URL drained first.
	for {
		select {
		case _, ok := <-l.URLs():
			if !ok {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("URLs channel never closed after Close")
		}
	}
}

func TestListener_ConcurrentCloseAndForwards(t *testing.T) {
	setupPortFile(t)

	l, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Errors are expected once the listener goes away.
			_, _ = Forward("addie://auth/callback?sealed_session=s&user_id=u&email=e%40x.com")
		}()
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	wg.Wait()

	for range l.URLs() {
	}
}

func TestListener_MultipleForwards(t *testing.T) {
	setupPortFile(t)

	l, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer func() { _ = l.Close() }()

	urls := []string{
		"addie://auth/callback?sealed_session=a&user_id=1&email=a%40x.com",
		"addie://auth/callback?sealed_session=b&user_id=2&email=b%40x.com",
	}
	for _, raw := range urls {
		if delivered, err := Forward(raw); err != nil || !delivered {
			t.Fatalf("Forward(%q) = %v, %v", raw, delivered, err)
		}
	}

	received := map[string]bool{}
	for range urls {
		select {
		case got := <-l.URLs():
			received[got] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for forwarded URLs")
		}
	}
	for _, raw := range urls {
		if !received[raw] {
			t.Errorf("did not receive %q", raw)
		}
	}
}
