package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSweeper is a mock implementation of Sweeper
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) Sweep(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRetentionStore is a mock implementation of RetentionStore
type MockRetentionStore struct {
	mock.Mock
}

func (m *MockRetentionStore) PruneConversations(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockSweeper := new(MockSweeper)
	mockSweeper.On("Sweep", mock.Anything).Return(nil)

	worker := NewWorker(mockSweeper, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let it run for a bit
	time.Sleep(250 * time.Millisecond)

	// Stop worker
	worker.Stop()
	wg.Wait()

	// Verify Sweep was called at least once
	mockSweeper.AssertCalled(t, "Sweep", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockSweeper := new(MockSweeper)
	mockSweeper.On("Sweep", mock.Anything).Return(nil)

	worker := NewWorker(mockSweeper, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	// Start worker in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let it run for a bit
	time.Sleep(150 * time.Millisecond)

	// Cancel context
	cancel()
	wg.Wait()

	// Verify Sweep was called
	mockSweeper.AssertCalled(t, "Sweep", mock.Anything)
}

// TestRetentionSweeper_Sweep_PrunesIdleConversations tests a normal sweep
func TestRetentionSweeper_Sweep_PrunesIdleConversations(t *testing.T) {
	mockStore := new(MockRetentionStore)
	maxAge := 24 * time.Hour

	mockStore.On("PruneConversations", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return time.Since(cutoff) >= maxAge && time.Since(cutoff) < maxAge+time.Minute
	})).Return(3, nil)

	sweeper := NewRetentionSweeper(mockStore, maxAge)
	err := sweeper.Sweep(context.Background())

	assert.NoError(t, err)
	mockStore.AssertExpectations(t)
}

// TestRetentionSweeper_Sweep_NothingToPrune tests an empty sweep
func TestRetentionSweeper_Sweep_NothingToPrune(t *testing.T) {
	mockStore := new(MockRetentionStore)

	mockStore.On("PruneConversations", mock.Anything, mock.Anything).Return(0, nil)

	sweeper := NewRetentionSweeper(mockStore, time.Hour)
	err := sweeper.Sweep(context.Background())

	assert.NoError(t, err)
	mockStore.AssertExpectations(t)
}

// TestRetentionSweeper_Sweep_Disabled tests that zero maxAge is a no-op
func TestRetentionSweeper_Sweep_Disabled(t *testing.T) {
	mockStore := new(MockRetentionStore)

	sweeper := NewRetentionSweeper(mockStore, 0)
	err := sweeper.Sweep(context.Background())

	assert.NoError(t, err)
	mockStore.AssertNotCalled(t, "PruneConversations", mock.Anything, mock.Anything)
}

// TestRetentionSweeper_Sweep_StoreError tests store error handling
func TestRetentionSweeper_Sweep_StoreError(t *testing.T) {
	mockStore := new(MockRetentionStore)

	mockStore.On("PruneConversations", mock.Anything, mock.Anything).Return(0, errors.New("disk error"))

	sweeper := NewRetentionSweeper(mockStore, time.Hour)
	err := sweeper.Sweep(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to prune conversations")
	mockStore.AssertExpectations(t)
}
