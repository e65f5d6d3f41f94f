package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/dmarkov/user-microservice/internal/interface/http"
)

// Module wires user CRUD handlers into routes under the given RouterGroup
// (usually /api):
//
//	POST   /api/users
//	GET    /api/users
//	GET    /api/users/count
//	GET    /api/users/search   (events profile only)
//	GET    /api/users/:id
//	PUT    /api/users/:id
//	DELETE /api/users/:id
type Module struct {
	Handler *handlers.UserHandler
}

func New(h *handlers.UserHandler) *Module {
	return &Module{Handler: h}
}

func (m *Module) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.POST("", m.Handler.Create)
		users.GET("", m.Handler.List)
		users.GET("/count", m.Handler.Count)
		if m.Handler.Searcher != nil {
			users.GET("/search", m.Handler.Search)
		}
		users.GET("/:id", m.Handler.Find)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
}
