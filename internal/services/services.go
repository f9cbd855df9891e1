package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

// Service defines the interface for tracking services (AniList, MyAnimeList)
// that can snapshot and update a user's anime list.
type Service interface {
	// Authorize installs the credential used for subsequent calls.
	Authorize(token models.TokenRecord)

	// FetchSnapshot retrieves the user's full normalized list.
	FetchSnapshot(ctx context.Context) (*models.ListSnapshot, error)

	// ApplyUpdate writes one normalized entry to the service.
	ApplyUpdate(ctx context.Context, entry models.ListEntry) error

	// Name returns the service identity.
	Name() models.ServiceName
}

// classifyStatus maps an HTTP response status to the error taxonomy.
//
// Authorization failures route to the re-authentication path and are never
// retried; transient failures are eligible for backoff; rejections are a
// permanent verdict on one entry; everything else unexpected is a protocol
// failure that ends the cycle.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", shared.ErrAuthFailed, code)
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: status %d", shared.ErrTransient, code)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: status %d", shared.ErrRejected, code)
	default:
		return fmt.Errorf("%w: unexpected status %d", shared.ErrProtocol, code)
	}
}

// classifyTransportErr wraps network-level failures as transient so the
// retry policy can handle timeouts and connection resets.
func classifyTransportErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrTransient, err)
}
