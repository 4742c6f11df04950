package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/config"
)

type fakeService struct {
	name     string
	startErr error
	block    bool

	mu      sync.Mutex
	stopped bool
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return nil
	}
	return s.startErr
}

func (s *fakeService) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeService) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func TestRunnerStopsAllServicesWhenOneFails(t *testing.T) {
	boom := errors.New("listen failed")
	failing := &fakeService{name: "http", startErr: boom}
	blocking := &fakeService{name: "worker", block: true}

	var order []string
	runner := NewRunner(failing, blocking).
		OnShutdown(func() { order = append(order, "first") }).
		OnShutdown(func() { order = append(order, "second") })

	err := runner.Run(context.Background(), time.Second, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	if !failing.wasStopped() || !blocking.wasStopped() {
		t.Fatalf("expected every service stopped")
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("cleanups must run in reverse order, got %v", order)
	}
}

func TestRunnerReturnsNilOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeService{name: "http", block: true}
	done := make(chan error, 1)
	go func() {
		done <- NewRunner(svc).Run(ctx, time.Second, nil)
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop after cancel")
	}
	if !svc.wasStopped() {
		t.Fatalf("expected service stopped")
	}
}

func TestRunnerStopsWhenServiceExitsEarly(t *testing.T) {
	finished := &fakeService{name: "http"}
	blocking := &fakeService{name: "worker", block: true}
	cleaned := false
	runner := NewRunner(finished, blocking).OnShutdown(func() { cleaned = true })

	if err := runner.Run(context.Background(), time.Second, nil); err != nil {
		t.Fatalf("expected nil after normal exit, got %v", err)
	}
	if !blocking.wasStopped() || !cleaned {
		t.Fatalf("expected remaining services stopped and cleanup run")
	}
}

func TestRunnerWithoutServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("expected error without services")
	}
	if err := NewRunner(nil).Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}

func TestNewHTTPServiceTimeouts(t *testing.T) {
	svc := NewHTTPService(config.ServerConfig{Host: "127.0.0.1", Port: "0", ReadHeaderTimeoutSeconds: 5, IdleTimeoutSeconds: -1}, nil)
	if svc.server.Addr != "127.0.0.1:0" {
		t.Fatalf("unexpected addr %s", svc.server.Addr)
	}
	if svc.server.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("unexpected read header timeout %v", svc.server.ReadHeaderTimeout)
	}
	if svc.server.IdleTimeout != 0 || svc.server.WriteTimeout != 0 {
		t.Fatalf("unset timeouts should stay zero")
	}
}
