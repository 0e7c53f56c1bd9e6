package service

import (
	"context"
	"errors"
	"time"

	"canteen/pkg/domain/model"
)

var ErrEmailRequired = errors.New("identity email is required")

type AccountService interface {
	// EnsureUser upserts the local user row for a signed-in identity.
	// A user record is created lazily on the first sign-in for an email.
	EnsureUser(ctx context.Context, identity model.Identity) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Actor(ctx context.Context, email string) (model.Actor, error)
}

func NewAccountService(repo model.UserRepository, dispatcher EventDispatcher) AccountService {
	return &accountService{repo: repo, dispatcher: dispatcher}
}

type accountService struct {
	repo       model.UserRepository
	dispatcher EventDispatcher
}

func (s *accountService) EnsureUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	if identity.Email == "" {
		return nil, ErrEmailRequired
	}

	user, err := s.repo.FindByEmail(ctx, identity.Email)
	if err == nil {
		if user.DisplayName != identity.DisplayName || user.PhotoURL != identity.PhotoURL {
			user.DisplayName = identity.DisplayName
			user.PhotoURL = identity.PhotoURL
			if err := s.repo.Update(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	userID, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}

	user = &model.User{
		ID:          userID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.UserSignedIn{UserID: userID, Email: identity.Email})
	return user, nil
}

func (s *accountService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.repo.FindByEmail(ctx, email)
}

func (s *accountService) Actor(ctx context.Context, email string) (model.Actor, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return model.Actor{}, err
	}
	return model.Actor{UserID: user.ID, IsStaff: user.IsStaff, IsAdmin: user.IsAdmin}, nil
}
