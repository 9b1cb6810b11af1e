package artifact

import (
	"errors"
	"fmt"
	"time"

	"amenityhub/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest HMAC key accepted by NewIssuer.
const MinSecretLength = 32

var ErrWeakSecret = errors.New("artifact secret is too short")

// Claims is the signed payload of a confirmation artifact. It binds the
// reservation id (subject) to the resource and the booked interval.
type Claims struct {
	ResourceID string    `json:"rid"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	jwt.RegisteredClaims
}

// Issuer generates and checks confirmation references.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(secret, issuer string) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinSecretLength)
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue returns an unguessable reference for r. Every call yields a new token.
func (i *Issuer) Issue(r *models.Reservation) (string, error) {
	if r == nil || r.ID == "" {
		return "", errors.New("reservation id is required")
	}
	now := i.now()
	claims := Claims{
		ResourceID: r.ResourceID,
		Start:      r.Interval.Start.UTC(),
		End:        r.Interval.End.UTC(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   i.issuer,
			Subject:  r.ID,
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign artifact: %w", err)
	}
	return signed, nil
}

// Parse verifies ref and returns its claims. Every failure is ErrInvalidArtifact.
func (i *Issuer) Parse(ref string) (*Claims, error) {
	if ref == "" {
		return nil, models.ErrInvalidArtifact
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	token, err := jwt.ParseWithClaims(ref, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidArtifact, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, models.ErrInvalidArtifact
	}
	return claims, nil
}

// Validate returns the reservation id bound to ref.
func (i *Issuer) Validate(ref string) (string, error) {
	claims, err := i.Parse(ref)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
