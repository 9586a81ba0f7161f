// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"time"

	apierr "github.com/dalemusser/contesthub/internal/app/features/errors"
	"github.com/dalemusser/contesthub/internal/app/store/audit"
	"github.com/dalemusser/contesthub/internal/app/system/inputval"
	"github.com/dalemusser/contesthub/internal/app/system/normalize"
	"github.com/dalemusser/contesthub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type listResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

// ServeList handles GET /audit. Query parameters narrow the result:
// user (account id), category, event_type, since (YYYY-MM-DD or RFC 3339)
// and limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, msg := parseFilter(r)
	if msg != "" {
		apierr.Message(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		apierr.Message(w, http.StatusInternalServerError, "Error reading audit log")
		return
	}

	apierr.JSON(w, http.StatusOK, listResponse{Events: events, Count: len(events)})
}

func parseFilter(r *http.Request) (audit.QueryFilter, string) {
	q := r.URL.Query()
	filter := audit.QueryFilter{
		Category:  normalize.QueryParam(q.Get("category")),
		EventType: normalize.QueryParam(q.Get("event_type")),
		Limit:     defaultLimit,
	}

	if s := normalize.QueryParam(q.Get("user")); s != "" {
		if !inputval.IsValidObjectID(s) {
			return filter, "Invalid user id"
		}
		oid, _ := primitive.ObjectIDFromHex(s)
		filter.UserID = &oid
	}

	if s := normalize.QueryParam(q.Get("since")); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return filter, "Invalid since date"
		}
		filter.Since = &t
	}

	if s := normalize.QueryParam(q.Get("limit")); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			return filter, "Invalid limit"
		}
		if n > maxLimit {
			n = maxLimit
		}
		filter.Limit = n
	}

	return filter, ""
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
