package testutil

import (
	"context"

	"github.com/optionfolio/backend/internal/pricefeed"
)

// MockFeedClient is a mock implementation of pricefeed.Client for testing.
// It returns predefined data instead of making actual provider calls.
type MockFeedClient struct {
	// MockListings is returned from Listings.
	MockListings []pricefeed.Listing
	// MockHistory maps an exercise reference to the history returned for it.
	MockHistory map[float64][]pricefeed.HistoryPoint
	// MockError is the error to return from both methods.
	MockError error
	// ListingsCount and HistoryCount track how often each method was called.
	ListingsCount int
	HistoryCount  int
}

// NewMockFeedClient creates a mock feed with no data configured.
func NewMockFeedClient() *MockFeedClient {
	return &MockFeedClient{
		MockHistory: make(map[float64][]pricefeed.HistoryPoint),
	}
}

// WithListings configures the listings the mock serves.
func (m *MockFeedClient) WithListings(listings ...pricefeed.Listing) *MockFeedClient {
	m.MockListings = listings
	return m
}

// WithHistory configures the history served for one exercise reference.
func (m *MockFeedClient) WithHistory(exerciseReference float64, points ...pricefeed.HistoryPoint) *MockFeedClient {
	m.MockHistory[exerciseReference] = points
	return m
}

// WithError configures the mock to fail every call with err.
func (m *MockFeedClient) WithError(err error) *MockFeedClient {
	m.MockError = err
	return m
}

// Listings implements pricefeed.Client.
func (m *MockFeedClient) Listings(_ context.Context) ([]pricefeed.Listing, error) {
	m.ListingsCount++
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockListings, nil
}

// History implements pricefeed.Client.
func (m *MockFeedClient) History(_ context.Context, exerciseReference float64) ([]pricefeed.HistoryPoint, error) {
	m.HistoryCount++
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockHistory[exerciseReference], nil
}
