package cache

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ConnectivityMonitor abstracts platform connectivity detection so the
// retry layer can be tested without a real network. Events delivers online
// (true) and offline (false) transitions.
type ConnectivityMonitor interface {
	Online() bool
	Events() <-chan bool
}

// AlwaysOnline is the monitor used when no probe is configured: the network
// is assumed reachable and no transitions are ever reported.
type AlwaysOnline struct{}

// Online always reports true.
func (AlwaysOnline) Online() bool { return true }

// Events returns a channel that never delivers.
func (AlwaysOnline) Events() <-chan bool { return nil }

// ManualMonitor is a monitor whose state is driven by explicit SetOnline
// calls. Used by tests and by callers that receive connectivity signals
// from elsewhere.
type ManualMonitor struct {
	mu     sync.RWMutex
	online bool
	events chan bool
}

// NewManualMonitor creates a manual monitor in the given initial state.
func NewManualMonitor(online bool) *ManualMonitor {
	return &ManualMonitor{
		online: online,
		events: make(chan bool, 16),
	}
}

// Online reports the current state.
func (m *ManualMonitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Events returns the transition channel.
func (m *ManualMonitor) Events() <-chan bool {
	return m.events
}

// SetOnline updates the state and publishes the transition when it changed.
func (m *ManualMonitor) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()
	if changed {
		select {
		case m.events <- online:
		default:
		}
	}
}

// ProbeMonitor detects connectivity by periodically issuing a HEAD request
// against a known-reachable URL.
type ProbeMonitor struct {
	manual   *ManualMonitor
	client   *http.Client
	probeURL string
	interval time.Duration
	logger   *logrus.Logger
}

// NewProbeMonitor creates a probe-driven monitor. The initial state is
// online; the first probe corrects it if needed.
func NewProbeMonitor(probeURL string, interval time.Duration, logger *logrus.Logger) *ProbeMonitor {
	return &ProbeMonitor{
		manual:   NewManualMonitor(true),
		client:   &http.Client{Timeout: 5 * time.Second},
		probeURL: probeURL,
		interval: interval,
		logger:   logger,
	}
}

// Online reports the last probed state.
func (p *ProbeMonitor) Online() bool { return p.manual.Online() }

// Events returns the transition channel.
func (p *ProbeMonitor) Events() <-chan bool { return p.manual.Events() }

// Start runs the probe loop until the context is canceled.
func (p *ProbeMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				online := p.probe(ctx)
				if online != p.manual.Online() {
					p.logger.WithFields(logrus.Fields{"online": online}).Info("Connectivity changed")
				}
				p.manual.SetOnline(online)
			}
		}
	}()
}

func (p *ProbeMonitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}
