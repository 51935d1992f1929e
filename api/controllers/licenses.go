package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/gymdesk-backend/api/middleware"
	"github.com/angelmondragon/gymdesk-backend/api/responses"
	"github.com/angelmondragon/gymdesk-backend/api/validators"
	"github.com/angelmondragon/gymdesk-backend/internal/gyms"
	"github.com/angelmondragon/gymdesk-backend/internal/licenses"
	"github.com/angelmondragon/gymdesk-backend/internal/users"
	pkgerrors "github.com/angelmondragon/gymdesk-backend/pkg/errors"
	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
	"github.com/angelmondragon/gymdesk-backend/pkg/logger"
)

// LicenseActivator is the activation surface the license routes depend on.
type LicenseActivator interface {
	Activate(ctx context.Context, token, requestedGymID string) (*licenses.Activation, error)
	Validate(token, expectedGymID string) licensekey.Result
	LicenseStatus(ctx context.Context, gymID string) (*licenses.StoredLicense, error)
}

// LicenseIssuer mints license keys for admins.
type LicenseIssuer interface {
	Issue(ctx context.Context, in licenses.IssueInput) (*licenses.IssuedLicense, error)
}

type licenseKeyRequest struct {
	LicenseKey string `json:"license_key" validate:"required,max=16384"`
	GymID      string `json:"gym_id" validate:"omitempty,max=128"`
}

type licenseIssueRequest struct {
	GymID         string     `json:"gym_id" validate:"required,max=128"`
	OwnerID       string     `json:"owner_id" validate:"required,max=128"`
	ExpiresAt     *time.Time `json:"expires_at"`
	OwnerPassword *string    `json:"owner_password" validate:"omitempty,min=8,max=128"`
}

type licenseGymSnapshot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type licenseOwnerSnapshot struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Email       *string `json:"email,omitempty"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

type licenseValidateResponse struct {
	Valid     bool                  `json:"valid"`
	ExpiresAt *time.Time            `json:"expires_at,omitempty"`
	Gym       *licenseGymSnapshot   `json:"gym,omitempty"`
	Owner     *licenseOwnerSnapshot `json:"owner,omitempty"`
	Error     string                `json:"error,omitempty"`
}

type licenseActivateResponse struct {
	Gym             *gyms.GymDTO   `json:"gym"`
	Owner           *users.UserDTO `json:"owner"`
	FirstActivation bool           `json:"first_activation"`
}

type licenseIssueResponse struct {
	LicenseKey string               `json:"license_key"`
	GymID      string               `json:"gym_id"`
	OwnerID    string               `json:"owner_id"`
	Gym        licenseGymSnapshot   `json:"gym"`
	Owner      licenseOwnerSnapshot `json:"owner"`
	IssuedAt   time.Time            `json:"issued_at"`
	ExpiresAt  time.Time            `json:"expires_at"`
}

type gymLicenseResponse struct {
	GymID       string     `json:"gym_id"`
	Valid       bool       `json:"valid"`
	Status      string     `json:"status,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

// LicenseValidate reports whether a key is valid. Rejections are not errors:
// the reason is returned in the body with a 200.
func LicenseValidate(svc LicenseActivator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		var payload licenseKeyRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res := svc.Validate(strings.TrimSpace(payload.LicenseKey), payload.GymID)
		if !res.Valid() {
			responses.WriteSuccess(w, licenseValidateResponse{Valid: false, Error: res.Status.String()})
			return
		}

		expiresAt := res.ExpiresAt
		gym := gymSnapshotResponse(*res.Gym)
		owner := ownerSnapshotResponse(*res.Owner)
		responses.WriteSuccess(w, licenseValidateResponse{
			Valid:     true,
			ExpiresAt: &expiresAt,
			Gym:       &gym,
			Owner:     &owner,
		})
	}
}

// LicenseActivate installs a key on its gym, seeding the gym and owner when needed.
func LicenseActivate(svc LicenseActivator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		var payload licenseKeyRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		act, err := svc.Activate(r.Context(), payload.LicenseKey, payload.GymID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, licenseActivateResponse{
			Gym:             gyms.FromModel(act.Gym),
			Owner:           users.FromModel(act.Owner),
			FirstActivation: act.FirstActivation,
		})
	}
}

// LicenseIssue mints a key for an existing gym. A nil issuer means issuance is
// disabled on this deployment.
func LicenseIssue(svc LicenseIssuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "license issuance is disabled"))
			return
		}

		var payload licenseIssueRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "issued_by", middleware.UserIDFromContext(ctx))
		}

		issued, err := svc.Issue(ctx, licenses.IssueInput{
			GymID:         payload.GymID,
			OwnerID:       payload.OwnerID,
			ExpiresAt:     payload.ExpiresAt,
			OwnerPassword: payload.OwnerPassword,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, licenseIssueResponse{
			LicenseKey: issued.LicenseKey,
			GymID:      issued.GymID,
			OwnerID:    issued.OwnerID,
			Gym:        gymSnapshotResponse(issued.Gym),
			Owner:      ownerSnapshotResponse(issued.Owner),
			IssuedAt:   issued.IssuedAt,
			ExpiresAt:  issued.ExpiresAt,
		})
	}
}

// GymLicenseStatus re-validates the key stored on a gym.
func GymLicenseStatus(svc LicenseActivator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		gymID := strings.TrimSpace(chi.URLParam(r, "gymId"))
		if gymID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "gym id is required"))
			return
		}

		status, err := svc.LicenseStatus(r.Context(), gymID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, gymLicenseResponse{
			GymID:       status.GymID,
			Valid:       status.Valid(),
			Status:      status.Status.String(),
			ExpiresAt:   status.ExpiresAt,
			ActivatedAt: status.ActivatedAt,
		})
	}
}

func gymSnapshotResponse(g licensekey.GymSnapshot) licenseGymSnapshot {
	return licenseGymSnapshot{ID: g.ID, Name: g.Name, Address: g.Address, Phone: g.Phone}
}

// ownerSnapshotResponse drops the embedded password.
func ownerSnapshotResponse(o licensekey.OwnerSnapshot) licenseOwnerSnapshot {
	return licenseOwnerSnapshot{
		ID:          o.ID,
		Username:    o.Username,
		Email:       o.Email,
		FirstName:   o.FirstName,
		LastName:    o.LastName,
		PhoneNumber: o.PhoneNumber,
	}
}
