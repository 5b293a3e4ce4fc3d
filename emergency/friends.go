package emergency

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"safecircle/apperr"
	"safecircle/models"
	"safecircle/store"
	"safecircle/utils"
)

// Friend is one edge as seen from the caller's side.
type Friend struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Incoming bool      `json:"incoming"`
	Since    time.Time `json:"since"`
}

// RequestFriend sends a pending request from -> to. A pending request in the
// other direction is accepted instead, which makes the pair friends.
func (s *Service) RequestFriend(ctx context.Context, fromID, toID string) (string, error) {
	if fromID == "" || toID == "" {
		return "", apperr.Validation("user id is required")
	}
	if fromID == toID {
		return "", apperr.Validation("cannot add yourself as friend")
	}
	if _, err := s.store.GetUser(ctx, toID); err != nil {
		return "", storeErr(err, "user not found", "failed to load user")
	}

	friends, err := s.store.ListFriendships(ctx, fromID, models.FriendAccepted)
	if err != nil {
		return "", apperr.Transient("failed to load friends", err)
	}
	for _, e := range friends {
		if e.Other(fromID) == toID {
			return "", apperr.Conflict("already friends")
		}
	}

	err = s.store.SetFriendRequestStatus(ctx, toID, fromID, models.FriendAccepted)
	if err == nil {
		zap.L().Info("friend request accepted", zap.String("user_id", fromID), zap.String("friend_id", toID))
		return models.FriendAccepted, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", apperr.Transient("failed to accept friend request", err)
	}

	now := s.now()
	f := &models.Friendship{
		ID:        utils.GenerateUUID(),
		UserID:    fromID,
		FriendID:  toID,
		Status:    models.FriendPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateFriendRequest(ctx, f); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", apperr.Conflict("friend request already sent")
		}
		return "", apperr.Transient("failed to send friend request", err)
	}
	return models.FriendPending, nil
}

// RespondFriend accepts or declines the pending request fromID sent to userID.
func (s *Service) RespondFriend(ctx context.Context, userID, fromID string, accept bool) error {
	if userID == "" || fromID == "" {
		return apperr.Validation("user id is required")
	}
	status := models.FriendDeclined
	if accept {
		status = models.FriendAccepted
	}
	if err := s.store.SetFriendRequestStatus(ctx, fromID, userID, status); err != nil {
		return storeErr(err, "friend request not found", "failed to update friend request")
	}
	return nil
}

func (s *Service) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if err := s.store.DeleteFriendship(ctx, userID, friendID); err != nil {
		return storeErr(err, "friendship not found", "failed to delete friend")
	}
	return nil
}

// Friends lists userID's edges with the given status.
func (s *Service) Friends(ctx context.Context, userID, status string) ([]Friend, error) {
	switch status {
	case models.FriendAccepted, models.FriendPending:
	default:
		return nil, apperr.Validation("status must be accepted or pending")
	}

	edges, err := s.store.ListFriendships(ctx, userID, status)
	if err != nil {
		return nil, apperr.Transient("failed to load friends", err)
	}
	out := make([]Friend, 0, len(edges))
	for _, e := range edges {
		other := e.Other(userID)
		out = append(out, Friend{
			UserID:   other,
			Name:     s.userName(ctx, other),
			Status:   e.Status,
			Incoming: e.FriendID == userID,
			Since:    e.UpdatedAt,
		})
	}
	return out, nil
}
