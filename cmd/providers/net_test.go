package providers

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"
)

type failingServer struct{}

func (failingServer) Serve(net.Listener) error { return errors.New("accept: too many open files") }
func (failingServer) Stop()                    {}

type recordingShutdowner struct {
	called chan struct{}
}

func (s *recordingShutdowner) Shutdown(...fx.ShutdownOption) error {
	close(s.called)
	return nil
}

func TestLifecycleServe_Failure(t *testing.T) {
	log := zaptest.NewLogger(t)
	sock, err := Listen(log, "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer sock.Close()

	lc := fxtest.NewLifecycle(t)
	shutdown := &recordingShutdowner{called: make(chan struct{})}
	status := new(ExitStatus)
	LifecycleServe(log, lc, shutdown, status, sock, failingServer{})
	lc.RequireStart()
	select {
	case <-shutdown.called:
	case <-time.After(5 * time.Second):
		t.Fatal("app was not shut down")
	}
	assert.Equal(t, 1, status.Get())
	lc.RequireStop()
}

func TestExitStatus_Nil(t *testing.T) {
	var status *ExitStatus
	status.Set(1)
	assert.Equal(t, 0, status.Get())
}
