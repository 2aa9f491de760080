package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
)

type Users struct{ db *DB }

func (s *Users) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range s.db.users {
		if existing.Email == email {
			return model.ErrEmailExists
		}
	}
	now := s.db.Now()
	u.ID = s.db.nextID()
	u.Email = email
	u.CreatedAt, u.UpdatedAt = now, now
	s.db.users[u.ID] = *u
	return nil
}

func (s *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.db.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *Users) List(_ context.Context) ([]model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]model.User, 0, len(s.db.users))
	for _, u := range s.db.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Users) UpdateProfile(_ context.Context, id uint64, displayName, avatarRef string) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	u.DisplayName, u.AvatarRef = displayName, avatarRef
	u.UpdatedAt = s.db.Now()
	s.db.users[id] = u
	return u, nil
}

func (s *Users) UpdatePassword(_ context.Context, id uint64, hash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.db.Now()
	s.db.users[id] = u
	return nil
}

func (s *Users) PromoteToManager(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return model.ErrNotFound
	}
	if u.Role == model.RoleCustomer || u.Role == model.RoleGuest {
		u.Role = model.RoleManager
		u.UpdatedAt = s.db.Now()
		s.db.users[id] = u
	}
	return nil
}

type Tokens struct{ db *DB }

func (s *Tokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.refresh[tokenHash] = refreshRow{userID: userID, exp: exp}
	return nil
}

func (s *Tokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	row, ok := s.db.refresh[tokenHash]
	if !ok || row.revoked || !row.exp.After(s.db.Now()) {
		return 0, model.ErrNotFound
	}
	return row.userID, nil
}

func (s *Tokens) RevokeByHash(_ context.Context, tokenHash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	row, ok := s.db.refresh[tokenHash]
	if !ok || row.revoked {
		return model.ErrNotFound
	}
	row.revoked = true
	s.db.refresh[tokenHash] = row
	return nil
}

func (s *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for h, row := range s.db.refresh {
		if row.userID == userID {
			row.revoked = true
			s.db.refresh[h] = row
		}
	}
	return nil
}
