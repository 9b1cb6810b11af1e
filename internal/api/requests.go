package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"amenityhub/internal/models"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 16

var validate = validator.New()

var validationMessages = map[string]string{
	"required": "{field} is required",
	"max":      "{field} must be at most {param} characters",
}

type createReservationRequest struct {
	ResourceID string `json:"resource_id" validate:"required,max=64"`
	Start      string `json:"start" validate:"required"`
	End        string `json:"end" validate:"required"`
}

func (r createReservationRequest) interval() (models.Interval, error) {
	return models.ParseInterval(r.Start, r.End)
}

type rescheduleRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

func (r rescheduleRequest) interval() (models.Interval, error) {
	return models.ParseInterval(r.Start, r.End)
}

type windowQuery struct {
	From string `validate:"required"`
	To   string `validate:"required"`
}

func parseWindow(q url.Values) (models.Interval, error) {
	w := windowQuery{From: q.Get("from"), To: q.Get("to")}
	if err := validate.Struct(w); err != nil {
		return models.Interval{}, fmt.Errorf("%w: %s", errBadRequest, validationMessage(err))
	}
	return models.ParseInterval(w.From, w.To)
}

// decodeRequest reads a JSON body into dst and validates it.
func decodeRequest(body io.Reader, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	for _, fe := range verrs {
		if msg, ok := validationMessages[fe.Tag()]; ok {
			msg = strings.ReplaceAll(msg, "{field}", strings.ToLower(fe.Field()))
			return strings.ReplaceAll(msg, "{param}", fe.Param())
		}
	}
	return verrs.Error()
}

type reservationResponse struct {
	ID              string     `json:"id"`
	ResourceID      string     `json:"resource_id"`
	ResourceName    string     `json:"resource_name,omitempty"`
	RequesterID     string     `json:"requester_id"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	Status          string     `json:"status"`
	ConfirmationRef string     `json:"confirmation_ref,omitempty"`
	HoldExpiresAt   *time.Time `json:"hold_expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// newReservationResponse hides the confirmation reference unless withRef is set.
func newReservationResponse(r *models.Reservation, withRef bool) reservationResponse {
	resp := reservationResponse{
		ID:           r.ID,
		ResourceID:   r.ResourceID,
		ResourceName: r.ResourceName,
		RequesterID:  r.RequesterID,
		Start:        r.Interval.Start,
		End:          r.Interval.End,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
	}
	if withRef {
		resp.ConfirmationRef = r.ConfirmationRef
	}
	if r.Status == models.StatusPending && !r.HoldExpiresAt.IsZero() {
		hold := r.HoldExpiresAt
		resp.HoldExpiresAt = &hold
	}
	return resp
}

type cancelResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type artifactResponse struct {
	ReservationID string `json:"reservation_id"`
}

type availabilityResponse struct {
	ResourceID string            `json:"resource_id"`
	From       time.Time         `json:"from"`
	To         time.Time         `json:"to"`
	Busy       []models.Interval `json:"busy"`
}
