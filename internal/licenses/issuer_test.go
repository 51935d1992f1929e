package licenses

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/gymdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gymdesk-backend/pkg/errors"
	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
)

type stubGymReader struct {
	gyms map[string]*models.Gym
	err  error
}

func (s stubGymReader) FindByID(_ context.Context, id string) (*models.Gym, error) {
	if s.err != nil {
		return nil, s.err
	}
	if gym, ok := s.gyms[id]; ok {
		return gym, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubOwnerReader struct {
	users map[string]*models.User
}

func (s stubOwnerReader) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubSubscriptionReader struct {
	sub *models.Subscription
	err error
}

func (s stubSubscriptionReader) FindActiveByGym(_ context.Context, gymID string) (*models.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.sub == nil || s.sub.GymID != gymID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.sub, nil
}

func newTestIssuer(t *testing.T, subs stubSubscriptionReader) *Issuer {
	t.Helper()
	key, _ := testKeys(t)
	signer, err := licensekey.NewSigner(key, licensekey.WithIssuer("gymdesk"))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	ownerID := "owner-1"
	strangerOwner := "owner-9"
	email := "ana@example.com"
	gyms := stubGymReader{gyms: map[string]*models.Gym{
		"gym-1": {ID: "gym-1", Name: "Iron Temple", Address: "Main St 1", Phone: "555-0100", OwnerID: &ownerID},
		"gym-2": {ID: "gym-2", Name: "Someone Else's", OwnerID: &strangerOwner},
		"gym-3": {ID: "gym-3", Name: "Ownerless"},
	}}
	owners := stubOwnerReader{users: map[string]*models.User{
		"owner-1": {ID: "owner-1", Username: "ana", Email: &email, FirstName: "Ana", LastName: "Lopez"},
	}}

	issuer, err := NewIssuer(gyms, owners, subs, signer, nil, nil)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	issuer.now = func() time.Time { return baseTime }
	return issuer
}

func verifyIssued(t *testing.T, token string) licensekey.Result {
	t.Helper()
	key, _ := testKeys(t)
	validator, err := licensekey.NewValidator(&key.PublicKey, licensekey.WithClock(func() time.Time { return baseTime }))
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	return validator.Validate(token, licensekey.ValidateOptions{ExpectedGymID: "gym-1"})
}

func TestIssueDerivesExpiryFromSubscription(t *testing.T) {
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, stubSubscriptionReader{sub: &models.Subscription{
		ID:      "sub-1",
		GymID:   "gym-1",
		Status:  enums.SubscriptionStatusActive,
		EndDate: end,
	}})

	issued, err := issuer.Issue(context.Background(), IssueInput{GymID: "gym-1", OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !issued.ExpiresAt.Equal(end) {
		t.Fatalf("expected expiry %v, got %v", end, issued.ExpiresAt)
	}
	if !issued.IssuedAt.Equal(baseTime) {
		t.Fatalf("expected issuedAt %v, got %v", baseTime, issued.IssuedAt)
	}
	if issued.GymID != "gym-1" || issued.OwnerID != "owner-1" {
		t.Fatalf("unexpected ids %s/%s", issued.GymID, issued.OwnerID)
	}

	res := verifyIssued(t, issued.LicenseKey)
	if !res.Valid() {
		t.Fatalf("expected issued key to validate, got %s", res.Status)
	}
	if !res.ExpiresAt.Equal(end) {
		t.Fatalf("expected token expiry %v, got %v", end, res.ExpiresAt)
	}
	if res.Gym.Name != "Iron Temple" || res.Owner.Username != "ana" {
		t.Fatalf("unexpected snapshots %+v %+v", res.Gym, res.Owner)
	}
	if res.Owner.Password != nil {
		t.Fatalf("expected no password in token")
	}
}

func TestIssueExplicitExpiryWins(t *testing.T) {
	issuer := newTestIssuer(t, stubSubscriptionReader{sub: &models.Subscription{GymID: "gym-1", EndDate: baseTime.AddDate(0, 1, 0)}})
	explicit := baseTime.AddDate(2, 0, 0)
	password := "s3cret-pass"

	issued, err := issuer.Issue(context.Background(), IssueInput{GymID: "gym-1", OwnerID: "owner-1", ExpiresAt: &explicit, OwnerPassword: &password})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !issued.ExpiresAt.Equal(explicit) {
		t.Fatalf("expected explicit expiry, got %v", issued.ExpiresAt)
	}

	claims, err := licensekey.Decode(issued.LicenseKey)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Owner.Password == nil || *claims.Owner.Password != password {
		t.Fatalf("expected password embedded in token")
	}
}

func TestIssueWithoutSubscription(t *testing.T) {
	issuer := newTestIssuer(t, stubSubscriptionReader{})

	_, err := issuer.Issue(context.Background(), IssueInput{GymID: "gym-1", OwnerID: "owner-1"})
	if !errors.Is(err, ErrNoExpiryAvailable) {
		t.Fatalf("expected ErrNoExpiryAvailable, got %v", err)
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %s", pkgerrors.CodeOf(err))
	}
}

func TestIssueRejectsPastExpiry(t *testing.T) {
	issuer := newTestIssuer(t, stubSubscriptionReader{})

	for _, expiry := range []time.Time{baseTime, baseTime.Add(-time.Hour), baseTime.Add(500 * time.Millisecond)} {
		exp := expiry
		_, err := issuer.Issue(context.Background(), IssueInput{GymID: "gym-1", OwnerID: "owner-1", ExpiresAt: &exp})
		if !errors.Is(err, ErrInvalidExpiry) {
			t.Fatalf("expiry %v: expected ErrInvalidExpiry, got %v", exp, err)
		}
	}
}

func TestIssuePreconditions(t *testing.T) {
	expiry := baseTime.AddDate(1, 0, 0)
	issuer := newTestIssuer(t, stubSubscriptionReader{})

	cases := []struct {
		name    string
		input   IssueInput
		code    pkgerrors.Code
		wantErr error
	}{
		{name: "missing ids", input: IssueInput{}, code: pkgerrors.CodeValidation},
		{name: "unknown gym", input: IssueInput{GymID: "gym-x", OwnerID: "owner-1"}, code: pkgerrors.CodeNotFound},
		{name: "unknown owner", input: IssueInput{GymID: "gym-1", OwnerID: "owner-x"}, code: pkgerrors.CodeNotFound},
		{name: "other owner", input: IssueInput{GymID: "gym-2", OwnerID: "owner-1"}, code: pkgerrors.CodeForbidden, wantErr: ErrNotOwner},
		{name: "ownerless gym", input: IssueInput{GymID: "gym-3", OwnerID: "owner-1"}, code: pkgerrors.CodeForbidden, wantErr: ErrNotOwner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := tc.input
			in.ExpiresAt = &expiry
			_, err := issuer.Issue(context.Background(), in)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := pkgerrors.CodeOf(err); got != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, got)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestIssueStoreFailure(t *testing.T) {
	issuer := newTestIssuer(t, stubSubscriptionReader{err: errors.New("connection reset")})

	_, err := issuer.Issue(context.Background(), IssueInput{GymID: "gym-1", OwnerID: "owner-1"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestNewIssuerRequiresDependencies(t *testing.T) {
	if _, err := NewIssuer(nil, nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
