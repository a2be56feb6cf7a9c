package testkit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/minigrep/internal/app"
	"github.com/sha1n/minigrep/internal/config"
	"github.com/spf13/pflag"
)

// Service represents a test service that can be started and stopped
type Service interface {
	Start() (map[string]any, error)
	Stop() error
	GetName() string
}

// TestEnv manages the lifecycle of test services
type TestEnv interface {
	Start() (map[string]any, error)
	Stop() error
	GetProperty(name string) (any, bool)
}

type testEnvImpl struct {
	services   []Service
	properties map[string]any
}

// NewTestEnv creates a new test environment with the given services
func NewTestEnv(services ...Service) TestEnv {
	return &testEnvImpl{
		services:   services,
		properties: make(map[string]any),
	}
}

func (e *testEnvImpl) Start() (map[string]any, error) {
	for _, s := range e.services {
		props, err := s.Start()
		if err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", s.GetName(), err)
		}
		for k, v := range props {
			e.properties[k] = v
		}
	}
	return e.properties, nil
}

func (e *testEnvImpl) Stop() error {
	var errs []error
	// Stop in reverse order
	for i := len(e.services) - 1; i >= 0; i-- {
		if err := e.services[i].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *testEnvImpl) GetProperty(name string) (any, bool) {
	val, ok := e.properties[name]
	return val, ok
}

// GetFreePort returns a free port from the kernel
func GetFreePort() (int, error) {
	return getFreePortWithAddr("localhost:0")
}

// MustGetFreePort returns a free port or fails the test
func MustGetFreePort(t testing.TB) int {
	t.Helper()
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}
	return port
}

func getFreePortWithAddr(addrStr string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", addrStr)
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FlagOptions configures NewTestFlags
type FlagOptions struct {
	Port     int      // Uses free port if 0
	AuthType string   // Defaults to "none"
	Host     string   // Defaults to "localhost"
	RootDir  string   // Defaults to "."
	APIKeys  []string // Only used with AuthType "apikey"
}

// NewTestFlags creates a configured serve pflag.FlagSet for an SSE server
func NewTestFlags(t testing.TB, opts *FlagOptions) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	app.RegisterServeFlags(flags)

	o := FlagOptions{AuthType: config.AuthTypeNone, Host: "localhost", RootDir: "."}
	if opts != nil {
		if opts.Port != 0 {
			o.Port = opts.Port
		}
		if opts.AuthType != "" {
			o.AuthType = opts.AuthType
		}
		if opts.Host != "" {
			o.Host = opts.Host
		}
		if opts.RootDir != "" {
			o.RootDir = opts.RootDir
		}
		o.APIKeys = opts.APIKeys
	}
	if o.Port == 0 {
		o.Port = MustGetFreePort(t)
	}

	_ = flags.Set("port", fmt.Sprintf("%d", o.Port))
	_ = flags.Set("transport", config.TransportSSE)
	_ = flags.Set("auth-type", o.AuthType)
	_ = flags.Set("host", o.Host)
	_ = flags.Set("root-dir", o.RootDir)
	if len(o.APIKeys) > 0 {
		_ = flags.Set("auth-api-keys", strings.Join(o.APIKeys, ","))
	}

	return flags
}

// SSEServerService runs the serve command's SSE server in the background
type SSEServerService struct {
	flags *pflag.FlagSet

	mu     sync.Mutex
	srv    *http.Server
	done   chan error
	ready  chan struct{}
	closed bool
}

// NewSSEServerService creates a service that serves with the given flags
func NewSSEServerService(flags *pflag.FlagSet) *SSEServerService {
	return &SSEServerService{
		flags: flags,
		done:  make(chan error, 1),
		ready: make(chan struct{}),
	}
}

func (s *SSEServerService) GetName() string {
	return "minigrep-sse"
}

// Start runs the server and waits until /health answers. It reports the
// server's base URL under "base_url".
func (s *SSEServerService) Start() (map[string]any, error) {
	params := app.DefaultServeParams()
	params.StartSSEServer = func(server *mcp.Server, settings *config.ServeSettings) error {
		srv, err := app.NewSSEServer(server, settings)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.srv = srv
		s.mu.Unlock()
		close(s.ready)
		return srv.ListenAndServe()
	}

	go func() {
		s.done <- app.RunServeWithDeps(context.Background(), params, s.flags, "test")
	}()

	select {
	case <-s.ready:
	case err := <-s.done:
		return nil, fmt.Errorf("server exited before listening: %w", err)
	case <-time.After(5 * time.Second):
		return nil, errors.New("timed out waiting for server")
	}

	s.mu.Lock()
	baseURL := "http://" + s.srv.Addr
	s.mu.Unlock()

	if err := waitForHealth(baseURL+"/health", 5*time.Second); err != nil {
		return nil, err
	}
	return map[string]any{"base_url": baseURL}, nil
}

// Stop shuts the server down
func (s *SSEServerService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil || s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-s.done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func waitForHealth(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("health check at %s did not succeed within %s", url, timeout)
}
