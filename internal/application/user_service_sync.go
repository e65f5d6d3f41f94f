package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/dmarkov/user-microservice/internal/domain/entity"
	repo "github.com/dmarkov/user-microservice/internal/domain/repository"
)

// Notifier is the gateway to the external email service used by the sync
// profile. Implementations fail with ErrServiceUnavailable when their
// circuit is open.
type Notifier interface {
	NotifyCreated(ctx context.Context, email, name string) error
	NotifyDeleted(ctx context.Context, email, name string) error
}

// SyncService is the synchronous strategy: instead of recording broker
// events, create and delete call the email service directly. The call runs
// inside the transaction, so a notification that ultimately fails rolls the
// mutation back.
type SyncService struct {
	Repo     repo.UserRepository
	Tx       TxScope
	Notifier Notifier
	Logger   *logrus.Logger
}

func NewSyncService(userRepo repo.UserRepository, tx TxScope, notifier Notifier, logger *logrus.Logger) *SyncService {
	return &SyncService{Repo: userRepo, Tx: tx, Notifier: notifier, Logger: logger}
}

func (s *SyncService) Create(ctx context.Context, in UserIn) (UserOut, error) {
	u := &entity.User{}
	ApplyInput(in, u)

	err := s.Tx.RepeatableRead(ctx, func(ctx context.Context) error {
		if err := s.Repo.Insert(ctx, u); err != nil {
			return err
		}
		return s.Notifier.NotifyCreated(ctx, u.Email, u.Name)
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return UserOut{}, ErrEmailTaken
		}
		return UserOut{}, err
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user created, email service notified")
	}
	return ToOutput(u), nil
}

func (s *SyncService) Find(ctx context.Context, id int64) (UserOut, error) {
	var u *entity.User
	err := s.Tx.ReadOnly(ctx, func(ctx context.Context) error {
		var ferr error
		u, ferr = s.Repo.FindByID(ctx, id)
		return ferr
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return UserOut{}, &NotFoundError{ID: id}
		}
		return UserOut{}, err
	}
	return ToOutput(u), nil
}

func (s *SyncService) Update(ctx context.Context, id int64, in UserIn) (UserOut, error) {
	var u *entity.User
	err := s.Tx.RepeatableRead(ctx, func(ctx context.Context) error {
		var ferr error
		u, ferr = s.Repo.FindByID(ctx, id)
		if ferr != nil {
			return ferr
		}
		ApplyInput(in, u)
		return s.Repo.Save(ctx, u)
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return UserOut{}, &NotFoundError{ID: id}
		case errors.Is(err, repo.ErrDuplicateEmail):
			return UserOut{}, ErrEmailTaken
		}
		return UserOut{}, err
	}
	return ToOutput(u), nil
}

func (s *SyncService) Delete(ctx context.Context, id int64) error {
	err := s.Tx.ReadCommitted(ctx, func(ctx context.Context) error {
		u, ferr := s.Repo.FindByID(ctx, id)
		if ferr != nil {
			return ferr
		}
		if ferr := s.Repo.DeleteByID(ctx, u.ID); ferr != nil {
			return ferr
		}
		return s.Notifier.NotifyDeleted(ctx, u.Email, u.Name)
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return err
	}

	if s.Logger != nil {
		s.Logger.WithField("user_id", id).Info("user deleted, email service notified")
	}
	return nil
}

func (s *SyncService) GetAll(ctx context.Context, offset, limit int) ([]UserOut, error) {
	if offset < 0 || limit < 0 {
		return nil, ErrInvalidArgument
	}
	var users []*entity.User
	err := s.Tx.ReadOnly(ctx, func(ctx context.Context) error {
		var ferr error
		users, ferr = s.Repo.Scan(ctx, offset, limit)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return ToOutputList(users), nil
}

func (s *SyncService) GetAllCount(ctx context.Context) (int, error) {
	var n int
	err := s.Tx.ReadOnly(ctx, func(ctx context.Context) error {
		var ferr error
		n, ferr = s.Repo.Count(ctx)
		return ferr
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

var _ UserService = (*SyncService)(nil)
