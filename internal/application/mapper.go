package application

import (
	"github.com/dmarkov/user-microservice/internal/domain/entity"
	"github.com/dmarkov/user-microservice/pkg/timefmt"
)

// Pure mapping between the inbound shape, the persisted entity and the
// outbound projection. No I/O, no side effects.

// ToOutput projects a persisted user onto the response shape.
func ToOutput(u *entity.User) UserOut {
	return UserOut{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: timefmt.Timestamp(u.CreatedAt),
		Age:       u.Age,
	}
}

// ApplyInput overwrites the mutable fields of u from in.
// ID and CreatedAt are never touched.
func ApplyInput(in UserIn, u *entity.User) {
	u.Name = in.Name
	u.Email = in.Email
	u.Age = in.Age
}

// ToOutputList projects a slice of users, preserving input order.
func ToOutputList(users []*entity.User) []UserOut {
	out := make([]UserOut, 0, len(users))
	for _, u := range users {
		out = append(out, ToOutput(u))
	}
	return out
}
