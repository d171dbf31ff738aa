package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fluxo/internal/domain/snapshot"
	"fluxo/internal/shared/middleware"
)

// SnapshotBuilder computes a dashboard snapshot for a user as of a point in time.
type SnapshotBuilder interface {
	Build(ctx context.Context, userID string, now time.Time) (*snapshot.Snapshot, error)
}

type DashboardHandler struct {
	snapshots SnapshotBuilder
	now       func() time.Time
}

func NewDashboardHandler(snapshots SnapshotBuilder) *DashboardHandler {
	return &DashboardHandler{
		snapshots: snapshots,
		now:       time.Now,
	}
}

// HandleGetDashboard returns the full dashboard snapshot for the
// authenticated user. The snapshot is recomputed on every request.
func (h *DashboardHandler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	snap, err := h.snapshots.Build(r.Context(), userID, h.now())
	if err != nil {
		log.Printf("Error building dashboard snapshot for user %s: %v", userID, err)
		http.Error(w, "Failed to build dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}
