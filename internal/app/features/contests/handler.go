// internal/app/features/contests/handler.go
package contests

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	apierr "github.com/dalemusser/contesthub/internal/app/features/errors"
	"github.com/dalemusser/contesthub/internal/app/system/auth"
	"github.com/dalemusser/contesthub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/contesthub/internal/app/system/timeouts"
	"github.com/dalemusser/contesthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	msgCreateFailed = "Error in contest creation"
	msgListFailed   = "Error listing contests"

	maxNameLen        = 100
	maxDescriptionLen = 2000
)

// Store is the contest persistence the handler needs.
type Store interface {
	Create(ctx context.Context, c *models.Contest) error
	List(ctx context.Context) ([]models.Contest, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Contest, error)
}

type Handler struct {
	Contests Store
	Now      func() time.Time
	Log      *zap.Logger
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{
		Contests: store,
		Now:      time.Now,
		Log:      logger,
	}
}

type createRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// ServeCreate handles POST /contest. The signed-in user becomes the owner.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Message(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	owner, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		h.Log.Warn("contest create: bad session user id", zap.String("user_id", u.ID))
		apierr.Message(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createRequest
	if err := apierr.Decode(w, r, &req); err != nil {
		apierr.Message(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	name := htmlsanitize.PlainText(req.Name)
	desc := htmlsanitize.Sanitize(req.Description)
	if utf8.RuneCountInString(name) > maxNameLen {
		apierr.Message(w, http.StatusBadRequest, "Contest name is too long.")
		return
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		apierr.Message(w, http.StatusBadRequest, "Contest description is too long.")
		return
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		apierr.Message(w, http.StatusBadRequest, "Contest end date is before its start date.")
		return
	}

	c := models.NewContest(name, desc, owner, h.Now())
	if req.StartDate != nil {
		c.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		c.EndDate = req.EndDate.UTC()
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Contests.Create(ctx, c); err != nil {
		h.Log.Error("contest create failed", zap.String("user_id", u.ID), zap.Error(err))
		apierr.Message(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}
	h.Log.Info("contest created", zap.String("contest_id", c.ID), zap.String("user_id", u.ID))
	apierr.JSON(w, http.StatusCreated, c)
}

// ServeList handles GET /contest. Admins see every contest; everyone else
// sees the contests they created or joined.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Message(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		list []models.Contest
		err  error
	)
	if u.Role.AtLeast(models.RoleAdmin) {
		list, err = h.Contests.List(ctx)
	} else {
		oid, perr := primitive.ObjectIDFromHex(u.ID)
		if perr != nil {
			apierr.Message(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		list, err = h.Contests.ListForUser(ctx, oid)
	}
	if err != nil {
		h.Log.Error("contest list failed", zap.String("user_id", u.ID), zap.Error(err))
		apierr.Message(w, http.StatusInternalServerError, msgListFailed)
		return
	}
	apierr.JSON(w, http.StatusOK, list)
}
