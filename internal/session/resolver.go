// Package session turns a stored bearer credential into a principal. The
// same Resolver backs the HTTP middleware (signature verified) and the API
// client (local decode only).
package session

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// Claims is the decoded content of a credential.
type Claims struct {
	Principal model.Principal
	ExpiresAt time.Time
}

// Resolver decodes HS256 credentials. A zero-length secret disables
// signature verification; expiry is always enforced.
type Resolver struct {
	secret []byte
	now    func() time.Time
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of r that reads the current time from now.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	cp := *r
	cp.now = now
	return &cp
}

// Resolve maps credential to a principal. An empty credential is anonymous
// and not an error. On failure the anonymous principal is returned together
// with model.ErrExpiredCredential or model.ErrInvalidCredential.
func (r *Resolver) Resolve(credential string) (Claims, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Claims{Principal: model.Anonymous}, nil
	}
	claims, err := r.parse(credential)
	if err != nil {
		return Claims{Principal: model.Anonymous}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{Principal: model.Anonymous}, fmt.Errorf("%w: missing exp", model.ErrInvalidCredential)
	}
	if !r.now().Before(exp.Time) {
		return Claims{Principal: model.Anonymous}, model.ErrExpiredCredential
	}
	p, err := principalFrom(claims)
	if err != nil {
		return Claims{Principal: model.Anonymous}, err
	}
	return Claims{Principal: p, ExpiresAt: exp.Time}, nil
}

func (r *Resolver) parse(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if len(r.secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidCredential, err)
		}
		return claims, nil
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(r.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrExpiredCredential
		}
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidCredential, err)
	}
	return claims, nil
}

const maxExactID = 1<<53 - 1

func principalFrom(claims jwt.MapClaims) (model.Principal, error) {
	var id uint64
	switch v := claims["sub"].(type) {
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return model.Anonymous, fmt.Errorf("%w: bad subject", model.ErrInvalidCredential)
		}
		id = n
	case float64:
		// JSON numbers decode as float64; only whole ids a float64 holds exactly are accepted.
		if v < 1 || v > maxExactID || v != math.Trunc(v) {
			return model.Anonymous, fmt.Errorf("%w: bad subject", model.ErrInvalidCredential)
		}
		id = uint64(v)
	}
	if id == 0 {
		return model.Anonymous, fmt.Errorf("%w: missing subject", model.ErrInvalidCredential)
	}
	roleName, _ := claims["role"].(string)
	role, err := model.ParseRole(roleName)
	if err != nil || role == model.RoleGuest {
		return model.Anonymous, fmt.Errorf("%w: bad role", model.ErrInvalidCredential)
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return model.Principal{ID: id, Role: role, Email: email, DisplayName: name}, nil
}
