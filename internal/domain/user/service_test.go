package user

import (
	"context"
	"errors"
	"testing"

	"github.com/carelink/carelink/internal/platform/directory"
)

type fakeDirectory struct {
	users    []*directory.Identity
	roles    map[string][]string
	rolesErr map[string]error
	listErr  error
}

func (f *fakeDirectory) ListUsers(_ context.Context, first, max int) ([]*directory.Identity, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.users, nil
}

func (f *fakeDirectory) RealmRoles(_ context.Context, userID string) ([]string, error) {
	if err := f.rolesErr[userID]; err != nil {
		return nil, err
	}
	return f.roles[userID], nil
}

func TestList(t *testing.T) {
	dir := &fakeDirectory{
		users: []*directory.Identity{
			{ID: "u1", Username: "housemd", FirstName: "Gregory", LastName: "House"},
			{ID: "u2", Username: "jdoe"},
			{ID: "u3", Username: "broken"},
		},
		roles: map[string][]string{
			"u1": {"default-roles-clinic", "offline_access", "doctor"},
			"u2": {"default-roles-clinic", "uma_authorization"},
		},
		rolesErr: map[string]error{"u3": errors.New("directory timeout")},
	}
	svc := NewService(dir, 4)

	users, err := svc.List(context.Background(), 0, 20)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("got %d users, want 3", len(users))
	}

	if users[0].Role == nil || *users[0].Role != "doctor" {
		t.Errorf("u1 role = %v, want doctor", users[0].Role)
	}
	// Only built-in roles: nothing to report.
	if users[1].Role != nil {
		t.Errorf("u2 role = %v, want null", *users[1].Role)
	}
	// The role lookup failed, but the user is still listed.
	if users[2].Role != nil {
		t.Errorf("u3 role = %v, want null", *users[2].Role)
	}
	if users[0].Name != "Gregory House" || users[1].Name != "jdoe" {
		t.Errorf("names = %q, %q", users[0].Name, users[1].Name)
	}
}

func TestListDirectoryDown(t *testing.T) {
	svc := NewService(&fakeDirectory{listErr: errors.New("connection refused")}, 4)
	if _, err := svc.List(context.Background(), 0, 20); err == nil {
		t.Fatal("expected error when the directory is unreachable")
	}
}
