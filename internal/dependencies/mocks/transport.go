package mocks

import (
	"sync"

	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/session"
)

// DisconnectCall records one Disconnect request
type DisconnectCall struct {
	Identity model.Identity
	Pathway  model.Pathway
}

// MockTransport is a scriptable session.Transport for testing.
// Fields may be set directly between calls.
type MockTransport struct {
	mu sync.Mutex

	Session   bool
	Authority bool
	Local     model.Identity
	Current   model.Phase
	Connected []model.Participant
	Ranks     map[string]string

	// DisconnectErr is returned from every Disconnect call when set
	DisconnectErr error
	// NeutralizeErr is returned from every Neutralize call when set
	NeutralizeErr error
	// NeutralizePanicOn makes the Nth Neutralize call panic when non-zero
	NeutralizePanicOn int
	// RemoveOnDisconnect drops the participant from Connected when set
	RemoveOnDisconnect bool

	neutralizeCalls int

	Disconnects []DisconnectCall
	Neutralized []model.Identity
}

// Ensure MockTransport implements Transport
var _ session.Transport = (*MockTransport)(nil)

// NewMockTransport creates a transport for a hosted lobby owned by local
func NewMockTransport(local model.Identity) *MockTransport {
	return &MockTransport{
		Session:   true,
		Authority: true,
		Local:     local,
		Current:   model.PhaseLobby,
		Connected: []model.Participant{{DisplayName: "Host", Identity: local}},
		Ranks:     map[string]string{},
	}
}

func (m *MockTransport) InSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Session
}

func (m *MockTransport) IsAuthority() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Authority
}

func (m *MockTransport) LocalIdentity() model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Local
}

func (m *MockTransport) Phase() model.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Current
}

func (m *MockTransport) Members() []model.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Participant(nil), m.Connected...)
}

func (m *MockTransport) Disconnect(identity model.Identity, pathway model.Pathway) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Disconnects = append(m.Disconnects, DisconnectCall{Identity: identity, Pathway: pathway})
	if m.DisconnectErr != nil {
		return m.DisconnectErr
	}
	if m.RemoveOnDisconnect {
		m.removeLocked(identity)
	}
	return nil
}

func (m *MockTransport) Neutralize(identity model.Identity, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neutralizeCalls++
	if m.NeutralizePanicOn > 0 && m.neutralizeCalls == m.NeutralizePanicOn {
		panic("neutralize: transport fault")
	}
	if m.NeutralizeErr != nil {
		return m.NeutralizeErr
	}
	m.Neutralized = append(m.Neutralized, identity)
	return nil
}

func (m *MockTransport) RankText(displayName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rank, ok := m.Ranks[displayName]
	return rank, ok
}

// Add connects a participant with the given rank text
func (m *MockTransport) Add(identity model.Identity, displayName, rank string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Connected = append(m.Connected, model.Participant{DisplayName: displayName, Identity: identity})
	m.Ranks[displayName] = rank
}

// Remove disconnects a participant
func (m *MockTransport) Remove(identity model.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(identity)
}

// SetPhase changes the session phase
func (m *MockTransport) SetPhase(phase model.Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Current = phase
}

// SetAuthority changes whether the local participant is the host
func (m *MockTransport) SetAuthority(authority bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Authority = authority
}

// DisconnectCount returns how many Disconnect calls targeted identity
func (m *MockTransport) DisconnectCount(identity model.Identity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Disconnects {
		if c.Identity == identity {
			n++
		}
	}
	return n
}

// NeutralizeCount returns how many Neutralize calls succeeded for identity
func (m *MockTransport) NeutralizeCount(identity model.Identity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range m.Neutralized {
		if id == identity {
			n++
		}
	}
	return n
}

func (m *MockTransport) removeLocked(identity model.Identity) {
	for i, p := range m.Connected {
		if p.Identity == identity {
			m.Connected = append(m.Connected[:i], m.Connected[i+1:]...)
			return
		}
	}
}
