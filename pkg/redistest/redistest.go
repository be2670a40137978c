// Package redistest contains utilities for unit tests with Redis.
package redistest

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a Redis server and client for use in end-to-end unit tests.
type Redis struct {
	Cmd    *exec.Cmd
	Client *redis.Client
	Socket string

	wg      sync.WaitGroup
	done    chan struct{}
	err     error
	tempDir string
}

// NewRedis starts an ephemeral Redis server and returns a client.
// Skips the test if no redis-server is installed.
func NewRedis(ctx context.Context, t testing.TB) *Redis {
	if _, err := exec.LookPath("redis-server"); err != nil {
		t.Skip("redistest: redis-server not installed")
	}
	// Run Redis server as subprocess.
	dir, err := ioutil.TempDir("", "redistest-")
	if err != nil {
		t.Fatal("Failed to get temp dir:", err)
	}
	socket := filepath.Join(dir, "redis.sock")
	redisCmd := exec.CommandContext(ctx, "redis-server",
		"--port", "0",
		"--unixsocket", socket,
		"--unixsocketperm", "700",
		"--loglevel", "verbose")
	redisCmd.Dir = dir
	redisCmd.Stdout = &logWriter{tb: t, prefix: "redis: "}
	redisCmd.Stderr = &logWriter{tb: t, prefix: "redis: "}
	r := &Redis{
		Cmd:     redisCmd,
		Socket:  socket,
		done:    make(chan struct{}),
		tempDir: dir,
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(r.done)
		r.err = redisCmd.Run()
	}()
	// Create Redis client.
	r.Client = redis.NewClient(r.Options())
	// Give Redis a few seconds to start up.
	startupTicker := time.NewTicker(100 * time.Millisecond)
	defer startupTicker.Stop()
	var pingErr error
tryLoop:
	for try := 0; try < 30; try++ {
		if try > 0 {
			select {
			case <-startupTicker.C:
				break
			case <-r.done:
				break tryLoop
			}
		}
		pingErr = r.Client.Ping(ctx).Err()
		if errors.Is(pingErr, redis.ErrClosed) {
			continue // Redis still not up
		} else if errors.Is(pingErr, os.ErrNotExist) {
			continue // Redis hasn't even created the socket yet
		} else if pingErr != nil {
			t.Fatal("Failed to ping Redis:", pingErr.Error())
		}
		t.Log("redistest: Redis is up")
		return r
	}
	r.Close(t)
	if r.err != nil {
		t.Fatal("Subprocess failed:", r.err)
	}
	t.Fatal("Failed to ping Redis:", pingErr)
	return nil
}

// Options returns client options for connecting to the server.
func (r *Redis) Options() *redis.Options {
	return &redis.Options{
		Network: "unix",
		Addr:    r.Socket,
	}
}

// Close shuts down the server and client.
func (r *Redis) Close(t testing.TB) {
	if r.Client != nil {
		_ = r.Client.Close()
	}
	if r.Cmd.Process != nil {
		_ = r.Cmd.Process.Kill()
	}
	r.wg.Wait()
	t.Log("redistest: Removing", r.tempDir)
	_ = os.RemoveAll(r.tempDir)
}

// logWriter forwards subprocess output lines to the test log.
type logWriter struct {
	tb     testing.TB
	prefix string
	mu     sync.Mutex
	buf    bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the incomplete line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		w.tb.Log(w.prefix + line[:len(line)-1])
	}
}
