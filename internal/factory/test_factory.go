package factory

import (
	"time"

	"github.com/mcoot/hostguard/internal/config"
	"github.com/mcoot/hostguard/internal/dependencies/mocks"
	"github.com/mcoot/hostguard/internal/services/auth"
	"github.com/mcoot/hostguard/internal/storage/memory"
	"github.com/mcoot/hostguard/internal/testutil"
)

// TestLocalID is the local participant of a TestApp's session
const TestLocalID = "local"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
	Events     *testutil.EventRecorder
}

// TestConfig returns the server defaults without reading the environment
func TestConfig() config.Config {
	return config.Config{
		Host:             "127.0.0.1",
		Port:             8080,
		Storage:          config.StorageMemory,
		MaxKickAttempts:  3,
		KickCooldown:     3 * time.Second,
		SoftlockInterval: 500 * time.Millisecond,
		RemovalGrace:     10 * time.Second,
		SaveInterval:     5 * time.Second,
		PollInterval:     time.Second,
		LoadChunk:        200,
		SimLocalID:       TestLocalID,
		SimLocalName:     "Host",
	}
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// The engine is not started, so every engine call runs inline.
func NewTestApp() *TestApp {
	return NewTestAppWithAuth(auth.DefaultConfig())
}

// NewTestAppWithAuth is NewTestApp with a custom auth configuration
func NewTestAppWithAuth(authCfg auth.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app, err := newWithDependencies(TestConfig(), store, mockClock, mockRandom, authCfg, nil, testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	events := &testutil.EventRecorder{}
	app.Engine.Subscribe(events)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
		Events:     events,
	}
}
