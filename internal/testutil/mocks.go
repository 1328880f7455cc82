package testutil

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
)

// MockHooks provides a mock implementation of the scanner.Hooks interface.
// Configure expectations using testify/mock methods. The scanner calls
// OnDirStatusUpdate concurrently, so tests asserting call counts should use
// mock.Anything matchers rather than ordered expectations.
type MockHooks struct {
	mock.Mock
}

// OnDirDiscovered mocks the discovery callback.
func (m *MockHooks) OnDirDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// OnDirStatusUpdate mocks the per-directory status callback.
func (m *MockHooks) OnDirStatusUpdate(path string, status scanner.Status, reason string, duration time.Duration) error {
	args := m.Called(path, status, reason, duration)
	return args.Error(0)
}

// OnRunComplete mocks the completion callback.
func (m *MockHooks) OnRunComplete(report scanner.Report) error {
	args := m.Called(report)
	return args.Error(0)
}
