package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/dmarkov/user-microservice/internal/application"
	"github.com/dmarkov/user-microservice/pkg/response"
	"github.com/dmarkov/user-microservice/pkg/validation"
)

// UserSearcher is implemented by the event-driven service only; the search
// route is registered when it is available.
type UserSearcher interface {
	SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error)
}

type UserHandler struct {
	Svc      userapp.UserService
	Searcher UserSearcher
	Logger   *logrus.Logger
}

func NewUserHandler(svc userapp.UserService, searcher UserSearcher, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Searcher: searcher, Logger: logger}
}

type userRequest struct {
	Name  string `json:"name" binding:"required,min=3,max=25"`
	Email string `json:"email" binding:"required,email"`
	Age   int    `json:"age" binding:"required,gte=18,lte=65"`
}

func (r userRequest) toInput() userapp.UserIn {
	return userapp.UserIn{Name: r.Name, Email: r.Email, Age: r.Age}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	out, err := h.Svc.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, out, "user created", nil)
}

func (h *UserHandler) Find(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.Svc.Find(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out, "user", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	out, err := h.Svc.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out, "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) List(c *gin.Context) {
	offset, err1 := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, err2 := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err1 != nil || err2 != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid pagination", map[string]string{"offset/limit": "must be integers"})
		return
	}

	out, err := h.Svc.GetAll(c.Request.Context(), offset, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out, "users", map[string]any{"offset": offset, "limit": limit, "returned": len(out)})
}

func (h *UserHandler) Count(c *gin.Context) {
	n, err := h.Svc.GetAllCount(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, map[string]int{"count": n}, "user count", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	if h.Searcher == nil {
		response.Error[any](c, http.StatusNotFound, "search is not available in this profile", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	out, err := h.Searcher.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out, "search results", nil)
}

// fail maps service errors onto transport status codes. Internal detail is
// logged, never returned to the caller.
func (h *UserHandler) fail(c *gin.Context, err error) {
	var nf *userapp.NotFoundError
	var pe *userapp.PublishError
	switch {
	case errors.As(err, &nf):
		response.Error[any](c, http.StatusNotFound, nf.Error(), nil)
	case errors.Is(err, userapp.ErrEmailTaken):
		response.Error[any](c, http.StatusConflict, userapp.ErrEmailTaken.Error(), nil)
	case errors.Is(err, userapp.ErrInvalidArgument):
		response.Error[any](c, http.StatusBadRequest, userapp.ErrInvalidArgument.Error(), nil)
	case errors.Is(err, userapp.ErrServiceUnavailable):
		response.Error[any](c, http.StatusServiceUnavailable, "user service is currently down, please try again later", nil)
	case errors.As(err, &pe):
		if h.Logger != nil {
			h.Logger.WithError(pe.Err).WithField("at", pe.At).Error("event delivery not confirmed")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).Error("unhandled service error")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid user id", map[string]string{"id": "must be an integer"})
		return 0, false
	}
	return id, true
}
