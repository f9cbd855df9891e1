// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/desertthunder/anisync/internal/models"
)

// MockService is a configurable test double for services.Service.
type MockService struct {
	ServiceName models.ServiceName
	Snapshot    *models.ListSnapshot
	FetchErrs   []error            // consumed in order, nil means success
	ApplyErrs   map[string][]error // keyed by entry key, consumed in order

	Token      models.TokenRecord
	FetchCalls int
	Applied    []models.ListEntry
}

func (m *MockService) Name() models.ServiceName {
	if m.ServiceName == "" {
		return "mock"
	}
	return m.ServiceName
}

func (m *MockService) Authorize(token models.TokenRecord) {
	m.Token = token
}

func (m *MockService) FetchSnapshot(ctx context.Context) (*models.ListSnapshot, error) {
	call := m.FetchCalls
	m.FetchCalls++
	if call < len(m.FetchErrs) && m.FetchErrs[call] != nil {
		return nil, m.FetchErrs[call]
	}
	if m.Snapshot != nil {
		return m.Snapshot, nil
	}
	return &models.ListSnapshot{Service: m.Name(), FetchedAt: time.Now()}, nil
}

func (m *MockService) ApplyUpdate(ctx context.Context, entry models.ListEntry) error {
	if errs := m.ApplyErrs[entry.Key]; len(errs) > 0 {
		err := errs[0]
		m.ApplyErrs[entry.Key] = errs[1:]
		if err != nil {
			return err
		}
	}
	m.Applied = append(m.Applied, entry)
	return nil
}

// MockTokenProvider is a test double for tasks.TokenProvider.
type MockTokenProvider struct {
	Tokens      map[models.ServiceName]models.TokenRecord
	TokenErrs   map[models.ServiceName]error
	ReauthErrs  map[models.ServiceName]error
	ReauthCalls []models.ServiceName
}

func (m *MockTokenProvider) Token(ctx context.Context, service models.ServiceName) (models.TokenRecord, error) {
	if err := m.TokenErrs[service]; err != nil {
		return models.TokenRecord{}, err
	}
	return m.Tokens[service], nil
}

func (m *MockTokenProvider) Reauthenticate(ctx context.Context, service models.ServiceName) (models.TokenRecord, error) {
	m.ReauthCalls = append(m.ReauthCalls, service)
	if err := m.ReauthErrs[service]; err != nil {
		return models.TokenRecord{}, err
	}
	return models.TokenRecord{AccessToken: "reauthed-" + string(service)}, nil
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
