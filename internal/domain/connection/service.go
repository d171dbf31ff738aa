package connection

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"fluxo/internal/infrastructure/pluggy"
)

// Provider item statuses, as delivered by the items API and webhooks.
const (
	itemStatusUpdated          = "UPDATED"
	itemStatusUpdating         = "UPDATING"
	itemStatusWaitingUserInput = "WAITING_USER_INPUT"
	itemStatusLoginError       = "LOGIN_ERROR"
	itemStatusOutdated         = "OUTDATED"
	itemStatusError            = "ERROR"
)

// statusFromItem maps a provider item status onto a connection status.
func statusFromItem(itemStatus string) string {
	switch strings.ToUpper(itemStatus) {
	case itemStatusUpdated:
		return StatusActive
	case itemStatusUpdating:
		return StatusSyncing
	case itemStatusWaitingUserInput, itemStatusLoginError:
		return StatusLoginError
	case itemStatusOutdated:
		return StatusOutdated
	case itemStatusError:
		return StatusError
	default:
		return StatusError
	}
}

// Service manages the connection lifecycle: linking new bank sessions,
// reacting to provider webhook events, and disconnecting.
type Service struct {
	repo   Repository
	client pluggy.ClientInterface
	now    func() time.Time
}

// NewService creates a new connection service
func NewService(repo Repository, client pluggy.ClientInterface) *Service {
	return &Service{
		repo:   repo,
		client: client,
		now:    time.Now,
	}
}

// CreateConnectToken issues a widget token. connectionID may be empty for a
// fresh link; when set, the token re-authenticates that connection's item
// and ownership is enforced.
func (s *Service) CreateConnectToken(ctx context.Context, userID, connectionID string) (string, error) {
	itemID := ""
	if connectionID != "" {
		conn, err := s.repo.GetByID(ctx, connectionID)
		if err != nil {
			return "", fmt.Errorf("failed to get connection: %w", err)
		}
		if conn == nil {
			return "", ErrNotFound
		}
		if conn.UserID != userID {
			return "", ErrForbidden
		}
		itemID = conn.ItemID
	}

	resp, err := s.client.CreateConnectToken(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("failed to create connect token: %w", err)
	}
	return resp.AccessToken, nil
}

// RegisterItem records a freshly linked provider item as a connection for
// the user. Called after the connect widget completes.
func (s *Service) RegisterItem(ctx context.Context, userID, itemID string) (*Connection, error) {
	item, err := s.client.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item from provider: %w", err)
	}

	params := UpsertParams{
		UserID:   userID,
		ItemID:   item.ID,
		BankName: item.BankName(),
		Status:   statusFromItem(item.Status),
	}
	conn, err := s.repo.Upsert(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert connection: %w", err)
	}

	log.Printf("Registered connection %s for user %s (bank %s, status %s)", conn.ID, userID, conn.BankName, conn.Status)
	return conn, nil
}

// ListConnections returns the user's connections.
func (s *Service) ListConnections(ctx context.Context, userID string) ([]*Connection, error) {
	return s.repo.ListByUserID(ctx, userID)
}

// HandleItemEvent applies a provider webhook event to the matching
// connection. Events for unknown items are ignored so webhook replays after
// a disconnect stay harmless.
func (s *Service) HandleItemEvent(ctx context.Context, event, itemID string) error {
	conn, err := s.repo.GetByItemID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to look up connection for item %s: %w", itemID, err)
	}
	if conn == nil {
		log.Printf("Webhook for unknown item %s (%s), ignoring", itemID, event)
		return nil
	}

	switch event {
	case "item/deleted":
		if err := s.repo.UpdateStatus(ctx, conn.ID, StatusDisconnected); err != nil {
			return fmt.Errorf("failed to mark connection disconnected: %w", err)
		}
	case "item/updated":
		if err := s.repo.UpdateStatus(ctx, conn.ID, StatusActive); err != nil {
			return fmt.Errorf("failed to mark connection active: %w", err)
		}
		if err := s.repo.TouchLastSync(ctx, conn.ID, s.now()); err != nil {
			log.Printf("Warning: failed to update last sync for connection %s: %v", conn.ID, err)
		}
	case "item/error", "item/login_succeeded", "item/waiting_user_input", "item/created":
		item, err := s.client.GetItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("failed to fetch item %s: %w", itemID, err)
		}
		if err := s.repo.UpdateStatus(ctx, conn.ID, statusFromItem(item.Status)); err != nil {
			return fmt.Errorf("failed to update connection status: %w", err)
		}
	default:
		log.Printf("Ignoring webhook event %s for item %s", event, itemID)
	}

	return nil
}

// Disconnect removes a connection. The provider item is deleted first so the
// bank session is revoked even if local deletion fails; local deletion
// cascades to the connection's stored data.
func (s *Service) Disconnect(ctx context.Context, userID, connectionID string) error {
	conn, err := s.repo.GetByID(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	if conn == nil {
		return ErrNotFound
	}
	if conn.UserID != userID {
		return ErrForbidden
	}

	if err := s.client.DeleteItem(ctx, conn.ItemID); err != nil {
		return fmt.Errorf("failed to delete provider item: %w", err)
	}
	if err := s.repo.Delete(ctx, conn.ID); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	log.Printf("Disconnected connection %s for user %s", connectionID, userID)
	return nil
}
