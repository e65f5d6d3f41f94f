package application

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dmarkov/user-microservice/internal/domain/entity"
	"github.com/dmarkov/user-microservice/internal/domain/event"
	repo "github.com/dmarkov/user-microservice/internal/domain/repository"
	"github.com/dmarkov/user-microservice/pkg/helpers"
)

// UserService is the single contract both deployment profiles implement.
// Every operation runs inside an explicit transaction boundary.
type UserService interface {
	Create(ctx context.Context, in UserIn) (UserOut, error)
	Find(ctx context.Context, id int64) (UserOut, error)
	Update(ctx context.Context, id int64, in UserIn) (UserOut, error)
	Delete(ctx context.Context, id int64) error
	GetAll(ctx context.Context, offset, limit int) ([]UserOut, error)
	GetAllCount(ctx context.Context) (int, error)
}

// TxScope runs a function inside a transaction at the requested isolation
// level, committing on nil return and rolling back otherwise.
type TxScope interface {
	RepeatableRead(ctx context.Context, fn func(ctx context.Context) error) error
	ReadCommitted(ctx context.Context, fn func(ctx context.Context) error) error
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the event-driven strategy: create/delete record a lifecycle
// event in the outbox within the same transaction as the user mutation; a
// background dispatcher delivers it to the broker. Redis and Elasticsearch
// are optional best-effort side channels, never failing an operation.
type Service struct {
	Repo         repo.UserRepository
	Outbox       repo.OutboxRepository
	Tx           TxScope
	Redis        *redis.Client
	CacheTTL     time.Duration
	ES           *elasticsearch.Client
	ESUsersIndex string
	Logger       *logrus.Logger
}

func NewService(userRepo repo.UserRepository, outbox repo.OutboxRepository, tx TxScope, rdb *redis.Client, cacheTTL time.Duration, es *elasticsearch.Client, esUsersIndex string, logger *logrus.Logger) *Service {
	return &Service{
		Repo:         userRepo,
		Outbox:       outbox,
		Tx:           tx,
		Redis:        rdb,
		CacheTTL:     cacheTTL,
		ES:           es,
		ESUsersIndex: esUsersIndex,
		Logger:       logger,
	}
}

// Create persists a new user and appends a UserCreated outbox record in one
// repeatable-read transaction, so the event cannot outlive a rolled-back
// insert and the insert cannot commit without its event.
func (s *Service) Create(ctx context.Context, in UserIn) (UserOut, error) {
	u := &entity.User{}
	ApplyInput(in, u)

	err := s.Tx.RepeatableRead(ctx, func(ctx context.Context) error {
		if err := s.Repo.Insert(ctx, u); err != nil {
			return err
		}
		return s.Outbox.Append(ctx, &entity.OutboxRecord{
			Key:       entity.OutboxKey(u.ID, event.UserCreated),
			EventType: event.UserCreated,
			UserID:    u.ID,
			Name:      u.Name,
			Email:     u.Email,
		})
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return UserOut{}, ErrEmailTaken
		}
		return UserOut{}, err
	}

	s.cacheUser(ctx, u)
	_ = s.indexUser(ctx, u)
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user created")
	}
	return ToOutput(u), nil
}

func (s *Service) Find(ctx context.Context, id int64) (UserOut, error) {
	if u, ok := s.cachedUser(ctx, id); ok {
		return ToOutput(u), nil
	}

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

	s.cacheUser(ctx, u)
	return ToOutput(u), nil
}

// Update overwrites name/email/age of an existing user. ID and CreatedAt are
// preserved. No event is emitted for updates.
func (s *Service) Update(ctx context.Context, id int64, in UserIn) (UserOut, error) {
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

	s.cacheUser(ctx, u)
	_ = s.indexUser(ctx, u)
	return ToOutput(u), nil
}

// Delete physically removes the user and appends a UserDeleted outbox record
// in one read-committed transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.Tx.ReadCommitted(ctx, func(ctx context.Context) error {
		u, ferr := s.Repo.FindByID(ctx, id)
		if ferr != nil {
			return ferr
		}
		if ferr := s.Repo.DeleteByID(ctx, u.ID); ferr != nil {
			return ferr
		}
		return s.Outbox.Append(ctx, &entity.OutboxRecord{
			Key:       entity.OutboxKey(u.ID, event.UserDeleted),
			EventType: event.UserDeleted,
			UserID:    u.ID,
			Name:      u.Name,
			Email:     u.Email,
		})
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return err
	}

	s.dropCachedUser(ctx, id)
	_ = s.removeUserIndex(ctx, id)
	if s.Logger != nil {
		s.Logger.WithField("user_id", id).Info("user deleted")
	}
	return nil
}

func (s *Service) GetAll(ctx context.Context, offset, limit int) ([]UserOut, error) {
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

func (s *Service) GetAllCount(ctx context.Context) (int, error) {
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

func userCacheKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

func (s *Service) cacheUser(ctx context.Context, u *entity.User) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisSetJSON(ctx, s.Redis, userCacheKey(u.ID), u, s.CacheTTL); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("user cache write failed")
	}
}

func (s *Service) cachedUser(ctx context.Context, id int64) (*entity.User, bool) {
	if s.Redis == nil {
		return nil, false
	}
	var u entity.User
	ok, err := helpers.RedisGetJSON(ctx, s.Redis, userCacheKey(id), &u)
	if err != nil || !ok {
		return nil, false
	}
	return &u, true
}

func (s *Service) dropCachedUser(ctx context.Context, id int64) {
	if s.Redis == nil {
		return
	}
	_ = helpers.RedisDel(ctx, s.Redis, userCacheKey(id))
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"age":        u.Age,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: strconv.FormatInt(u.ID, 10), Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}

func (s *Service) removeUserIndex(ctx context.Context, id int64) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: strconv.FormatInt(id, 10)}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	return nil
}

// SearchUsers performs a simple multi_match search on email and name.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

var _ UserService = (*Service)(nil)
