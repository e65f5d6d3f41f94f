package application

import (
	"context"
	"sort"
	"time"

	"github.com/dmarkov/user-microservice/internal/domain/entity"
	repo "github.com/dmarkov/user-microservice/internal/domain/repository"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

// stubTx satisfies TxScope. It tracks isolation levels used and restores the
// repository snapshot on error, mimicking a rollback.
type stubTx struct {
	repo   *stubUserRepo
	levels []string
}

func newStubTx(r *stubUserRepo) *stubTx {
	return &stubTx{repo: r}
}

func (s *stubTx) run(ctx context.Context, level string, fn func(ctx context.Context) error) error {
	s.levels = append(s.levels, level)
	var snapshot map[int64]entity.User
	if s.repo != nil {
		snapshot = s.repo.snapshot()
	}
	if err := fn(ctx); err != nil {
		if s.repo != nil {
			s.repo.restore(snapshot)
		}
		return err
	}
	return nil
}

func (s *stubTx) RepeatableRead(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, "repeatable-read", fn)
}

func (s *stubTx) ReadCommitted(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, "read-committed", fn)
}

func (s *stubTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, "read-only", fn)
}

type stubUserRepo struct {
	users  map[int64]entity.User
	nextID int64
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]entity.User), nextID: 1}
}

func (r *stubUserRepo) snapshot() map[int64]entity.User {
	cp := make(map[int64]entity.User, len(r.users))
	for id, u := range r.users {
		cp[id] = u
	}
	return cp
}

func (r *stubUserRepo) restore(snapshot map[int64]entity.User) {
	r.users = snapshot
}

func (r *stubUserRepo) emailTaken(email string, exceptID int64) bool {
	for id, u := range r.users {
		if u.Email == email && id != exceptID {
			return true
		}
	}
	return false
}

func (r *stubUserRepo) Insert(_ context.Context, u *entity.User) error {
	if r.emailTaken(u.Email, 0) {
		return repo.ErrDuplicateEmail
	}
	u.ID = r.nextID
	u.CreatedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(r.nextID) * time.Minute)
	r.nextID++
	r.users[u.ID] = *u
	return nil
}

func (r *stubUserRepo) Save(_ context.Context, u *entity.User) error {
	stored, ok := r.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return repo.ErrDuplicateEmail
	}
	stored.Name, stored.Email, stored.Age = u.Name, u.Email, u.Age
	r.users[u.ID] = stored
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	clone := u
	return &clone, nil
}

func (r *stubUserRepo) DeleteByID(_ context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) Scan(_ context.Context, offset, limit int) ([]*entity.User, error) {
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*entity.User
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) == limit {
			break
		}
		u := r.users[id]
		out = append(out, &u)
	}
	return out, nil
}

func (r *stubUserRepo) Count(_ context.Context) (int, error) {
	return len(r.users), nil
}

type stubOutbox struct {
	records   []entity.OutboxRecord
	appendErr error
}

func (o *stubOutbox) Append(_ context.Context, rec *entity.OutboxRecord) error {
	if o.appendErr != nil {
		return o.appendErr
	}
	for _, existing := range o.records {
		if existing.Key == rec.Key {
			return nil
		}
	}
	rec.ID = int64(len(o.records) + 1)
	o.records = append(o.records, *rec)
	return nil
}

func (o *stubOutbox) Pending(_ context.Context, limit int) ([]*entity.OutboxRecord, error) {
	var out []*entity.OutboxRecord
	for i := range o.records {
		if len(out) == limit {
			break
		}
		rec := o.records[i]
		out = append(out, &rec)
	}
	return out, nil
}

func (o *stubOutbox) MarkDispatched(_ context.Context, _ int64) error { return nil }
func (o *stubOutbox) MarkFailed(_ context.Context, _ int64) error     { return nil }

type stubNotifier struct {
	createErr   error
	deleteErr   error
	createCalls []string // emails
	deleteCalls []string
}

func (n *stubNotifier) NotifyCreated(_ context.Context, email, _ string) error {
	if n.createErr != nil {
		return n.createErr
	}
	n.createCalls = append(n.createCalls, email)
	return nil
}

func (n *stubNotifier) NotifyDeleted(_ context.Context, email, _ string) error {
	if n.deleteErr != nil {
		return n.deleteErr
	}
	n.deleteCalls = append(n.deleteCalls, email)
	return nil
}
