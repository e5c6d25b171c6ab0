package video

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/celestiaorg/vidbatch/internal/errs"
)

const mockPrefix = "mock/operations/"

// MockClient generates no video. Every submission completes after a fixed
// delay with a placeholder URL. Used in development and tests.
type MockClient struct {
	mu            sync.Mutex
	completeAfter time.Duration
	now           func() time.Time
	operations    map[string]mockOperation
}

type mockOperation struct {
	submittedAt time.Time
}

// NewMockClient creates a MockClient whose operations finish after completeAfter
func NewMockClient(completeAfter time.Duration) *MockClient {
	return &MockClient{
		completeAfter: completeAfter,
		now:           time.Now,
		operations:    make(map[string]mockOperation),
	}
}

// Submit records the request and returns a fresh operation name
func (m *MockClient) Submit(_ context.Context, prompt string, opts Options) (OperationHandle, error) {
	if _, err := checkRequest(prompt, opts); err != nil {
		return OperationHandle{}, err
	}

	name := mockPrefix + uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[name] = mockOperation{submittedAt: m.now()}
	return OperationHandle{Name: name}, nil
}

// Poll reports the operation done once completeAfter has passed
func (m *MockClient) Poll(_ context.Context, handle OperationHandle) (PollResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, ok := m.operations[handle.Name]
	if !ok {
		return PollResult{}, errs.NewStatusError(http.StatusNotFound, fmt.Sprintf("operation %q not found", handle.Name))
	}
	if m.now().Sub(op.submittedAt) < m.completeAfter {
		return PollResult{}, nil
	}
	id := strings.TrimPrefix(handle.Name, mockPrefix)
	return PollResult{Done: true, VideoURL: fmt.Sprintf("https://videos.example.com/%s.mp4", id)}, nil
}

// Submitted returns the number of accepted submissions
func (m *MockClient) Submitted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.operations)
}
