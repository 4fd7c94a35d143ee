package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"summerfest/internal/badge"
	"summerfest/internal/models"
	"summerfest/internal/pricing"
	"summerfest/internal/service"
)

// CheckInHandler serves the scan desk and manual sign-in screens
type CheckInHandler struct {
	checkins *service.CheckInService
	families *service.FamilyService
	badges   *badge.Codec
}

// NewCheckInHandler creates a new check-in handler
func NewCheckInHandler(checkins *service.CheckInService, families *service.FamilyService, badges *badge.Codec) *CheckInHandler {
	return &CheckInHandler{
		checkins: checkins,
		families: families,
		badges:   badges,
	}
}

type checkInRequest struct {
	Badge       string `json:"badge"`
	ChildID     int64  `json:"child_id"`
	Date        string `json:"date"`
	CheckedInBy string `json:"checked_in_by"`
	Notes       string `json:"notes"`
}

// CheckIn handles POST /checkin. A repeat scan is not an error for the desk:
// it answers 200 with status already_checked_in. A charge against a frozen
// account answers 423 with status account_frozen and a warning for staff.
func (h *CheckInHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDate, "", err)
		return
	}
	childID, err := h.resolveChild(r.Context(), req.Badge, req.ChildID)
	if err != nil {
		respondWithServiceError(w, "Error resolving child", err)
		return
	}

	result, err := h.checkins.ProcessCheckIn(r.Context(), service.CheckInRequest{
		ChildID:     childID,
		Date:        date,
		CheckedInBy: req.CheckedInBy,
		Notes:       req.Notes,
	})
	var dup *service.DuplicateCheckInError
	if errors.As(err, &dup) {
		view := CheckInView{
			Status: StatusAlreadyCheckedIn,
			Amount: "0.00",
			Reason: pricing.ReasonAlreadyCheckedIn,
		}
		if dup.Existing != nil {
			view.Attendance = newAttendanceView(*dup.Existing)
		}
		respondJSON(w, http.StatusOK, view)
		return
	}
	if errors.Is(err, service.ErrAccountFrozen) {
		slog.Warn("check-in held for frozen account", "child_id", childID, "error", err)
		respondJSON(w, http.StatusLocked, CheckInView{
			Status:  StatusAccountFrozen,
			Warning: WarnAccountFrozen,
		})
		return
	}
	if err != nil {
		respondWithServiceError(w, "Error checking in", err)
		return
	}

	respondJSON(w, http.StatusCreated, newCheckInView(result))
}

// Preview handles GET /checkin/preview?child_id=|badge=&date=
func (h *CheckInHandler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var childID int64
	if s := q.Get("child_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", err)
			return
		}
		childID = id
	}
	date, err := parseDate(q.Get("date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDate, "", err)
		return
	}
	childID, err = h.resolveChild(r.Context(), q.Get("badge"), childID)
	if err != nil {
		respondWithServiceError(w, "Error resolving child", err)
		return
	}

	if date.IsZero() {
		date = h.checkins.Today()
	}
	charge, err := h.checkins.CalculateCharge(r.Context(), childID, date)
	if err != nil {
		respondWithServiceError(w, "Error calculating charge", err)
		return
	}

	respondJSON(w, http.StatusOK, ChargeView{
		ChildID: childID,
		Date:    models.DateKey(date),
		Amount:  charge.Amount.StringFixed(2),
		Reason:  charge.Reason,
	})
}

type checkOutRequest struct {
	Date         string `json:"date"`
	CheckedOutBy string `json:"checked_out_by"`
	Notes        string `json:"notes"`
}

// CheckOut handles POST /attendance/{childID}/checkout
func (h *CheckInHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", err)
		return
	}
	var req checkOutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDate, "", err)
		return
	}

	rec, err := h.checkins.CheckOut(r.Context(), childID, date, req.CheckedOutBy, req.Notes)
	if err != nil {
		respondWithServiceError(w, "Error checking out", err)
		return
	}
	respondJSON(w, http.StatusOK, newAttendanceView(*rec))
}

type statusRequest struct {
	Status string `json:"status"`
	Date   string `json:"date"`
	By     string `json:"by"`
}

// ChangeStatus handles POST /attendance/{childID}/status
func (h *CheckInHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}
	status, err := models.ParseAttendanceStatus(req.Status)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDate, "", err)
		return
	}

	rec, err := h.checkins.ChangeStatus(r.Context(), childID, date, status, req.By)
	if err != nil {
		respondWithServiceError(w, "Error changing status", err)
		return
	}
	respondJSON(w, http.StatusOK, newAttendanceView(*rec))
}

// resolveChild prefers a scanned badge over an explicit id
func (h *CheckInHandler) resolveChild(ctx context.Context, payload string, childID int64) (int64, error) {
	if payload == "" {
		if childID <= 0 {
			return 0, fmt.Errorf("%w: badge or child_id is required", badge.ErrInvalidBadge)
		}
		return childID, nil
	}

	code, err := h.badges.Decode(payload)
	if err != nil {
		return 0, err
	}
	child, err := h.families.GetChildByBadge(ctx, code)
	if err != nil {
		return 0, err
	}
	return child.ID, nil
}

// decodeJSON reads a small JSON body. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return models.ParseDateKey(s)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}
