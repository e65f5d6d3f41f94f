package application

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dmarkov/user-microservice/internal/domain/entity"
)

func TestToOutputProjection(t *testing.T) {
	created := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	u := &entity.User{ID: 7, Name: "Ivanov Ivan", Email: "abc@gmail.com", Age: 30, CreatedAt: created}

	out := ToOutput(u)
	if out.ID != 7 || out.Name != "Ivanov Ivan" || out.Email != "abc@gmail.com" || out.Age != 30 {
		t.Fatalf("unexpected projection: %+v", out)
	}
	if !out.CreatedAt.Time().Equal(created) {
		t.Fatalf("created_at = %v, want %v", out.CreatedAt.Time(), created)
	}
}

func TestToOutputJSONShape(t *testing.T) {
	u := &entity.User{ID: 7, Name: "Ivanov Ivan", Email: "abc@gmail.com", Age: 30,
		CreatedAt: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)}

	b, err := json.Marshal(ToOutput(u))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"created_at":"15-03-2024 09:30:00"`) {
		t.Errorf("timestamp not in wire format: %s", s)
	}
	for _, key := range []string{`"id":7`, `"name":"Ivanov Ivan"`, `"email":"abc@gmail.com"`, `"age":30`} {
		if !strings.Contains(s, key) {
			t.Errorf("missing %s in %s", key, s)
		}
	}
}

func TestApplyInputLeavesIdentityAlone(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u := &entity.User{ID: 3, Name: "Old", Email: "old@example.com", Age: 20, CreatedAt: created}

	ApplyInput(UserIn{Name: "New", Email: "new@example.com", Age: 40}, u)

	if u.ID != 3 || !u.CreatedAt.Equal(created) {
		t.Fatalf("identity fields touched: %+v", u)
	}
	if u.Name != "New" || u.Email != "new@example.com" || u.Age != 40 {
		t.Fatalf("mutable fields not applied: %+v", u)
	}
}

func TestToOutputListPreservesOrder(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	users := []*entity.User{
		{ID: 2, Name: "B", Email: "b@x.com", Age: 21, CreatedAt: ts},
		{ID: 1, Name: "A", Email: "a@x.com", Age: 20, CreatedAt: ts},
	}

	out := ToOutputList(users)
	if len(out) != 2 || out[0].ID != 2 || out[1].ID != 1 {
		t.Fatalf("order not preserved: %+v", out)
	}

	if got := ToOutputList(nil); len(got) != 0 || got == nil {
		t.Fatalf("nil input must map to an empty non-nil slice, got %#v", got)
	}
}
