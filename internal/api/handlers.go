package api

import (
	"bytes"
	"fmt"
	"net/http"

	"amenityhub/internal/models"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := decodeRequest(r.Body, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	iv, err := req.interval()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := s.deps.Booking.CreateReservation(r.Context(), req.ResourceID, requesterFrom(r.Context()), iv)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newReservationResponse(res, true))
}

func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	requester := requesterFrom(r.Context())
	resourceID := r.URL.Query().Get("resource_id")

	var (
		list []*models.Reservation
		err  error
	)
	if resourceID == "" {
		list, err = s.deps.Queries.ListByRequester(r.Context(), requester)
	} else {
		var window models.Interval
		window, err = parseWindow(r.URL.Query())
		if err == nil {
			list, err = s.deps.Queries.ListByResource(r.Context(), resourceID, window)
		}
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	manager := s.deps.Booking.IsManager(requester)
	out := make([]reservationResponse, 0, len(list))
	for _, res := range list {
		out = append(out, newReservationResponse(res, manager || res.Owner(requester)))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	requester := requesterFrom(r.Context())
	res, err := s.deps.Queries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !res.Owner(requester) && !s.deps.Booking.IsManager(requester) {
		writeServiceError(w, fmt.Errorf("%w: reservation belongs to another requester", models.ErrForbidden))
		return
	}
	writeJSON(w, http.StatusOK, newReservationResponse(res, true))
}

func (s *HTTPServer) handleConfirmReservation(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Booking.ConfirmReservation(r.Context(), chi.URLParam(r, "id"), requesterFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReservationResponse(res, true))
}

func (s *HTTPServer) handleRescheduleReservation(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := decodeRequest(r.Body, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	iv, err := req.interval()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := s.deps.Booking.RescheduleReservation(r.Context(), chi.URLParam(r, "id"), requesterFrom(r.Context()), iv)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReservationResponse(res, true))
}

func (s *HTTPServer) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Booking.CancelReservation(r.Context(), chi.URLParam(r, "id"), requesterFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{ID: res.ID, Status: string(res.Status)})
}

func (s *HTTPServer) handleValidateArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Booking.ValidateArtifact(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifactResponse{ReservationID: id})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "id")
	window, err := parseWindow(r.URL.Query())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if _, err := s.deps.Catalog.GetResource(r.Context(), resourceID); err != nil {
		writeServiceError(w, err)
		return
	}

	busy, err := s.deps.Queries.Busy(r.Context(), resourceID, window)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		ResourceID: resourceID,
		From:       window.Start,
		To:         window.End,
		Busy:       busy,
	})
}

func (s *HTTPServer) handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r.URL.Query())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := s.deps.Catalog.GetResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	n, err := s.deps.Exporter.Write(r.Context(), &buf, res, window)
	if err != nil {
		s.logger.Error().Err(err).Str("resource_id", res.ID).Msg("schedule export failed")
		writeServiceError(w, err)
		return
	}

	fileName := fmt.Sprintf("schedule_%s_%s.xlsx", res.ID, window.Start.Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)

	s.logger.Info().Str("resource_id", res.ID).Int("rows", n).Msg("schedule exported")
}
