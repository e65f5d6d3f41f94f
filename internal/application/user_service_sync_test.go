package application

import (
	"context"
	"errors"
	"testing"
)

func newSyncTestService() (*SyncService, *stubUserRepo, *stubNotifier) {
	userRepo := newStubUserRepo()
	notifier := &stubNotifier{}
	svc := NewSyncService(userRepo, newStubTx(userRepo), notifier, nil)
	return svc, userRepo, notifier
}

func TestSyncCreateNotifiesEmailService(t *testing.T) {
	svc, _, notifier := newSyncTestService()

	out, err := svc.Create(context.Background(), UserIn{Name: "Ivanov Ivan", Email: "abc@gmail.com", Age: 30})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.ID == 0 {
		t.Fatal("expected a storage-assigned id")
	}
	if len(notifier.createCalls) != 1 || notifier.createCalls[0] != "abc@gmail.com" {
		t.Fatalf("notify calls = %v, want exactly [abc@gmail.com]", notifier.createCalls)
	}
}

func TestSyncCreateRollsBackWhenNotifyFails(t *testing.T) {
	userRepo := newStubUserRepo()
	notifier := &stubNotifier{createErr: errors.New("email service down")}
	svc := NewSyncService(userRepo, newStubTx(userRepo), notifier, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, UserIn{Name: "Ivanov Ivan", Email: "abc@gmail.com", Age: 30})
	if err == nil {
		t.Fatal("expected create to fail")
	}
	if n, _ := userRepo.Count(ctx); n != 0 {
		t.Fatalf("insert must roll back when notification fails, found %d users", n)
	}
}

func TestSyncCreatePropagatesServiceUnavailable(t *testing.T) {
	userRepo := newStubUserRepo()
	notifier := &stubNotifier{createErr: ErrServiceUnavailable}
	svc := NewSyncService(userRepo, newStubTx(userRepo), notifier, nil)

	_, err := svc.Create(context.Background(), UserIn{Name: "Ivanov Ivan", Email: "abc@gmail.com", Age: 30})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestSyncCreateDuplicateEmailConflict(t *testing.T) {
	svc, _, notifier := newSyncTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, UserIn{Name: "First", Email: "dup@example.com", Age: 20}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := svc.Create(ctx, UserIn{Name: "Second", Email: "dup@example.com", Age: 21})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(notifier.createCalls) != 1 {
		t.Fatalf("conflicting create must not notify, got calls %v", notifier.createCalls)
	}
}

func TestSyncDeleteNotifiesAndRemoves(t *testing.T) {
	svc, _, notifier := newSyncTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, UserIn{Name: "Gone Soon", Email: "gone@example.com", Age: 40})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(notifier.deleteCalls) != 1 || notifier.deleteCalls[0] != "gone@example.com" {
		t.Fatalf("delete notify calls = %v, want exactly [gone@example.com]", notifier.deleteCalls)
	}
	var nf *NotFoundError
	if _, err := svc.Find(ctx, created.ID); !errors.As(err, &nf) {
		t.Fatalf("Find after delete: expected NotFoundError, got %v", err)
	}
}

func TestSyncDeleteRollsBackWhenNotifyFails(t *testing.T) {
	userRepo := newStubUserRepo()
	notifier := &stubNotifier{}
	svc := NewSyncService(userRepo, newStubTx(userRepo), notifier, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, UserIn{Name: "Stays Put", Email: "stays@example.com", Age: 30})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	notifier.deleteErr = errors.New("email service down")
	if err := svc.Delete(ctx, created.ID); err == nil {
		t.Fatal("expected delete to fail")
	}
	if _, err := svc.Find(ctx, created.ID); err != nil {
		t.Fatalf("user must survive a failed delete, got %v", err)
	}
}

func TestSyncReadsAndUpdatesWork(t *testing.T) {
	svc, _, notifier := newSyncTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, UserIn{Name: "Before", Email: "rw@example.com", Age: 25})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, UserIn{Name: "After", Email: "rw@example.com", Age: 26})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "After" || updated.ID != created.ID {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	all, err := svc.GetAll(ctx, 0, 10)
	if err != nil || len(all) != 1 {
		t.Fatalf("GetAll = %v (%v), want one user", all, err)
	}
	n, err := svc.GetAllCount(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count = %d (%v), want 1", n, err)
	}

	// Neither update nor reads touch the email service.
	if len(notifier.createCalls) != 1 || len(notifier.deleteCalls) != 0 {
		t.Fatalf("unexpected notifications: create=%v delete=%v", notifier.createCalls, notifier.deleteCalls)
	}
}
