package factory

import (
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/battleship-server/internal/config"
	"github.com/mcoot/battleship-server/internal/dependencies/mocks"
	"github.com/mcoot/battleship-server/internal/events"
	"github.com/mcoot/battleship-server/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockRandom    *mocks.MockRandom
	MockPublisher *events.MemoryPublisher
	MemoryStorage *memory.Storage
}

// NewTestApp creates an App on memory storage with mocked clock, random and
// publisher. The game server binds an ephemeral localhost port.
func NewTestApp() *TestApp {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.StatsInterval = 0

	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	publisher := events.NewMemoryPublisher()

	app := newWithDependencies(cfg, store, publisher, mockClock, mockRandom, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		MockPublisher: publisher,
		MemoryStorage: store,
	}
}
