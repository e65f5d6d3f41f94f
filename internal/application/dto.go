package application

import (
	"github.com/dmarkov/user-microservice/pkg/timefmt"
)

// UserIn is the inbound creation/update shape. Field constraints
// (name 3-25 chars, valid email, age 18-65) are enforced at the HTTP
// boundary before the service is invoked.
type UserIn struct {
	Name  string
	Email string
	Age   int
}

// UserOut is the read-only response projection of a persisted user.
type UserOut struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	CreatedAt timefmt.Timestamp `json:"created_at"`
	Age       int               `json:"age"`
}
