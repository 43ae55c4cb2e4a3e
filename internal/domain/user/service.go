package user

import (
	"context"
	"strings"

	"github.com/carelink/carelink/internal/correlate"
	"github.com/carelink/carelink/internal/platform/directory"
)

// User is one directory account together with its assigned realm role.
// Role is null when the role lookup failed or the account only carries
// built-in roles.
type User struct {
	ID       string  `json:"id"`
	Username string  `json:"user_name"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     *string `json:"role"`
}

// Directory is the slice of the identity directory the user listing needs.
type Directory interface {
	ListUsers(ctx context.Context, first, max int) ([]*directory.Identity, error)
	RealmRoles(ctx context.Context, userID string) ([]string, error)
}

type Service struct {
	dir         Directory
	concurrency int
}

func NewService(dir Directory, concurrency int) *Service {
	return &Service{dir: dir, concurrency: concurrency}
}

// builtin filters the realm roles every account carries by default.
func builtin(role string) bool {
	return role == "offline_access" || role == "uma_authorization" ||
		strings.HasPrefix(role, "default-roles-")
}

// List pages through directory accounts and annotates each with its first
// assigned realm role. Role lookups fan out concurrently; a failed lookup
// leaves that user's role null rather than failing the listing.
func (s *Service) List(ctx context.Context, first, max int) ([]*User, error) {
	ids, err := s.dir.ListUsers(ctx, first, max)
	if err != nil {
		return nil, correlate.Queryf(err)
	}

	keys := correlate.NewKeySet()
	for _, id := range ids {
		keys.Add(correlate.TextualKey(id.ID))
	}

	roles, _ := correlate.ResolveEach(ctx, keys, func(ctx context.Context, k correlate.Key) (correlate.Record, error) {
		names, err := s.dir.RealmRoles(ctx, k.Text())
		if err != nil {
			return nil, err
		}
		rec := correlate.Record{}
		for _, name := range names {
			if !builtin(name) {
				rec["role"] = name
				break
			}
		}
		return rec, nil
	}, s.concurrency)

	out := make([]*User, 0, len(ids))
	for _, id := range ids {
		u := &User{
			ID:       id.ID,
			Username: id.Username,
			Name:     id.DisplayName(),
			Email:    id.Email,
		}
		if rec, ok := roles[correlate.TextualKey(id.ID)]; ok {
			if role, ok := rec.Get("role"); ok {
				u.Role = &role
			}
		}
		out = append(out, u)
	}
	return out, nil
}
