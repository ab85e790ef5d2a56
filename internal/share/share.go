// Package share publishes read-only copies of lists behind signed links.
package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bozorlik/internal/shopping"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid share token")
	ErrNotFound     = errors.New("shared list not found")
	ErrNotOwner     = errors.New("shared list belongs to another user")
)

// SharedList is a published snapshot.
type SharedList struct {
	ListID    string            `json:"list_id"`
	OwnerID   string            `json:"owner_id"`
	Lang      string            `json:"lang"`
	ListData  shopping.Snapshot `json:"list_data"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store persists shared lists. Save refuses to overwrite another owner's
// list with ErrNotOwner. Get returns nil, nil for unknown ids.
type Store interface {
	Save(ctx context.Context, l *SharedList) error
	Get(ctx context.Context, listID string) (*SharedList, error)
}

// Link is what the owner hands out.
type Link struct {
	Token     string    `json:"token"`
	ListID    string    `json:"list_id"`
	URL       string    `json:"share_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims are carried by share tokens.
type Claims struct {
	ListID string `json:"lid"`
	jwt.RegisteredClaims
}

const issuer = "bozorlik"

// Service signs and verifies share links.
type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a share service. Tokens expire after ttl.
func NewService(store Store, secret string, ttl time.Duration) *Service {
	return &Service{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Share stores snap under listID ("" or "new" for a fresh id) and returns a
// signed link to it. An existing listID can only be reshared by its owner.
func (s *Service) Share(ctx context.Context, ownerID string, snap shopping.Snapshot, lang, listID string) (*Link, error) {
	if listID == "" || listID == "new" {
		listID = shopping.NewListID()
	}
	now := s.now()

	if err := s.store.Save(ctx, &SharedList{
		ListID:    listID,
		OwnerID:   ownerID,
		Lang:      lang,
		ListData:  snap,
		CreatedAt: now.UTC(),
	}); err != nil {
		return nil, fmt.Errorf("failed to save shared list: %w", err)
	}

	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ListID: listID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign share token: %w", err)
	}

	return &Link{Token: signed, ListID: listID, URL: "/shared/" + signed, ExpiresAt: expires}, nil
}

// Open verifies token and returns the list it points to.
func (s *Service) Open(ctx context.Context, token string) (*SharedList, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	l, err := s.store.Get(ctx, claims.ListID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNotFound
	}
	return l, nil
}
