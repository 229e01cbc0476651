package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

// Fixed profile of the bootstrap administrator.
const (
	SuperAdminFullName = "Super Admin"
	SuperAdminFaculty  = "Administrator"
	SuperAdminProdi    = "System Management"

	// staleAdminFaculty marks admin records written by an older build.
	staleAdminFaculty = "Fakultas Teknik"
)

// UserRepository stores users as one map keyed by email under KeyUsers.
type UserRepository struct {
	doc document[map[string]models.User]
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(store kvstore.Store, writeRetries int) *UserRepository {
	return &UserRepository{doc: newDocument(store, KeyUsers, writeRetries, func() map[string]models.User { return map[string]models.User{} })}
}

// NormalizeEmail is the key form used for every lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	users, _, err := r.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	user, ok := users[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// Upsert inserts or overwrites the record stored under email.
func (r *UserRepository) Upsert(ctx context.Context, email string, user models.User) error {
	key := NormalizeEmail(email)
	_, err := r.doc.mutate(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		users[key] = user
		return users, nil
	})
	return err
}

// Insert stores user only when email is not taken yet. It returns false when it was.
func (r *UserRepository) Insert(ctx context.Context, user models.User) (bool, error) {
	key := NormalizeEmail(user.Email)
	inserted := false
	_, err := r.doc.mutate(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		if _, exists := users[key]; exists {
			inserted = false
			return users, nil
		}
		inserted = true
		users[key] = user
		return users, nil
	})
	return inserted, err
}

// Modify applies fn to the stored record under email and saves the result.
func (r *UserRepository) Modify(ctx context.Context, email string, fn func(*models.User)) (*models.User, error) {
	key := NormalizeEmail(email)
	var updated models.User
	_, err := r.doc.mutate(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		user, ok := users[key]
		if !ok {
			return nil, ErrNotFound
		}
		fn(&user)
		users[key] = user
		updated = user
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// List returns users sorted by email, narrowed by filter.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	users, _, err := r.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]models.User, 0, len(users))
	for _, u := range users {
		if filter.Role != "" && effectiveRole(u) != filter.Role {
			continue
		}
		if query != "" && !containsFold(query, u.FullName, u.Email) {
			continue
		}
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

// Promote grants the admin role. changed is false when the user already was an admin.
func (r *UserRepository) Promote(ctx context.Context, email string) (changed bool, err error) {
	return r.setRole(ctx, email, models.RoleAdmin)
}

// Demote returns an admin to the user role. It never touches the super admin.
func (r *UserRepository) Demote(ctx context.Context, email string) (changed bool, err error) {
	return r.setRole(ctx, email, models.RoleUser)
}

func (r *UserRepository) setRole(ctx context.Context, email string, role models.UserRole) (bool, error) {
	key := NormalizeEmail(email)
	changed := false
	_, err := r.doc.mutate(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		changed = false
		user, ok := users[key]
		if !ok {
			return nil, ErrNotFound
		}
		if user.IsSuperAdmin && role != models.RoleAdmin {
			return users, nil
		}
		if effectiveRole(user) == role {
			return users, nil
		}
		user.Role = role
		users[key] = user
		changed = true
		return users, nil
	})
	return changed, err
}

// EnsureAdminBootstrap makes sure the administrator under email exists with the
// fixed super-admin profile, and that no other record carries the super-admin flag.
// hashPassword is only called when the record has no password hash yet.
// It reports whether anything was written.
func (r *UserRepository) EnsureAdminBootstrap(ctx context.Context, email string, hashPassword func() (string, error)) (bool, error) {
	key := NormalizeEmail(email)
	current, _, err := r.doc.load(ctx)
	if err != nil {
		return false, err
	}
	var hash string
	if existing, ok := current[key]; !ok || existing.PasswordHash == "" {
		if hash, err = hashPassword(); err != nil {
			return false, err
		}
	}

	changed := false
	_, err = r.doc.mutate(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		changed = false
		admin, ok := users[key]
		switch {
		case !ok:
			admin = models.User{
				FullName:     SuperAdminFullName,
				Email:        key,
				Faculty:      SuperAdminFaculty,
				Prodi:        SuperAdminProdi,
				Role:         models.RoleAdmin,
				IsSuperAdmin: true,
			}
			changed = true
		case !admin.IsSuperAdmin || admin.Faculty == staleAdminFaculty:
			admin.FullName = SuperAdminFullName
			admin.Faculty = SuperAdminFaculty
			admin.Prodi = SuperAdminProdi
			admin.Role = models.RoleAdmin
			admin.IsSuperAdmin = true
			changed = true
		}
		if admin.PasswordHash == "" && hash != "" {
			admin.PasswordHash = hash
			changed = true
		}
		users[key] = admin

		for k, u := range users {
			if k != key && u.IsSuperAdmin {
				u.IsSuperAdmin = false
				users[k] = u
				changed = true
			}
		}
		if !changed {
			return nil, errUnchanged
		}
		return users, nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	return changed, err
}

func effectiveRole(u models.User) models.UserRole {
	if u.Role == "" {
		return models.RoleUser
	}
	return u.Role
}
