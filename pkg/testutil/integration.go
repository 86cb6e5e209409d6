package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// WorkspaceSuite gives each test a fresh directory laid out like a profile
// repository: builder.yaml at the root, documents under profiles/.
type WorkspaceSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	dir    string
	logger *zap.Logger
}

// SetupTest runs before each test in the suite
func (s *WorkspaceSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), time.Minute)
	s.dir = s.T().TempDir()
	s.logger = zaptest.NewLogger(s.T())
}

// TearDownTest runs after each test in the suite
func (s *WorkspaceSuite) TearDownTest() {
	s.cancel()
}

// Context returns the test context
func (s *WorkspaceSuite) Context() context.Context {
	return s.ctx
}

// Dir returns the workspace root
func (s *WorkspaceSuite) Dir() string {
	return s.dir
}

// Logger returns a logger writing to the test output
func (s *WorkspaceSuite) Logger() *zap.Logger {
	return s.logger
}

// WriteConfig writes builder.yaml and returns its path
func (s *WorkspaceSuite) WriteConfig(content string) string {
	return WriteFile(s.T(), s.dir, "builder.yaml", Dedent(content))
}

// WriteProfile writes a document under profiles/ and returns its path
func (s *WorkspaceSuite) WriteProfile(name, content string) string {
	return WriteFile(s.T(), filepath.Join(s.dir, "profiles"), name, Dedent(content))
}

// Path joins elements onto the workspace root
func (s *WorkspaceSuite) Path(elem ...string) string {
	return filepath.Join(append([]string{s.dir}, elem...)...)
}

// IntegrationTest skips the calling test in short mode
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}
