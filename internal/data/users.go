// Package data implements the user directory, the two-sided conversation
// synchronizer and the typed projections of stored nodes.
package data

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/PaulBabatuyi/messenger-sync/internal/store"
)

const (
	usersPath       = "/users"
	credentialsRoot = "/credentials/"
)

func userPath(identity string) string {
	return "/" + identity
}

// UsersStore maintains user records and the global user directory.
type UsersStore struct {
	store store.Store
	mode  WriteMode
}

// NewUsersStore returns a UsersStore writing through s.
func NewUsersStore(s store.Store, mode WriteMode) *UsersStore {
	return &UsersStore{store: s, mode: effectiveMode(s, mode)}
}

// UserExists reports whether a user record exists for identity. A backend
// failure is returned as an error, never as false.
func (u *UsersStore) UserExists(ctx context.Context, identity string) (bool, error) {
	if err := checkIdentity(identity); err != nil {
		return false, err
	}
	node, err := u.store.Get(ctx, userPath(identity))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "check user %s", identity)
	}

	// anything but an object at the user path is not a user
	var rec map[string]json.RawMessage
	if err := node.Decode(&rec); err != nil {
		return false, nil
	}
	return true, nil
}

// GetUser reads the user record for identity.
func (u *UsersStore) GetUser(ctx context.Context, identity string) (*User, error) {
	if err := checkIdentity(identity); err != nil {
		return nil, err
	}
	node, err := u.store.Get(ctx, userPath(identity))
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrapf(ErrUserNotFound, "%s", identity)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user %s", identity)
	}

	var rec userRecord
	if err := node.Decode(&rec); err != nil {
		return nil, errors.Wrapf(ErrUserNotFound, "%s: malformed record", identity)
	}
	return &User{Identity: identity, FirstName: rec.FirstName, LastName: rec.LastName}, nil
}

// InsertUser writes the user record and appends the user to the directory
// list, creating the list when absent. If the directory append fails the user
// stays registered but unsearchable.
func (u *UsersStore) InsertUser(ctx context.Context, user ChatAppUser) error {
	identity := user.Identity()
	if err := checkIdentity(identity); err != nil {
		return err
	}
	path := userPath(identity)
	if err := u.store.Set(ctx, path, userRecord{FirstName: user.FirstName, LastName: user.LastName}); err != nil {
		glog.Errorf("data: failed to add user %s to database: %v", identity, err)
		return writeFailed(path, err)
	}

	entry, err := json.Marshal(DirectoryEntry{Name: user.DisplayName(), Email: identity})
	if err != nil {
		return errors.Wrap(err, "encode directory entry")
	}
	err = readModifyWrite(ctx, u.store, u.mode, usersPath, func(cur store.Node) (any, error) {
		list, err := decodeList(cur.Raw)
		if err != nil {
			// a corrupt directory is replaced rather than blocking sign-up
			glog.Warningf("data: replacing malformed user directory: %v", err)
			list = nil
		}
		for i, raw := range list {
			var e DirectoryEntry
			if json.Unmarshal(raw, &e) == nil && e.Email == identity {
				list[i] = entry
				return list, nil
			}
		}
		return append(list, entry), nil
	})
	if err != nil {
		glog.Warningf("data: user %s stored but not added to directory: %v", identity, err)
		return errors.Wrapf(ErrDirectoryUpdate, "%s: %v", identity, err)
	}
	return nil
}

// GetAllUsers returns the directory. An absent or malformed directory is
// ErrFailedToFetch.
func (u *UsersStore) GetAllUsers(ctx context.Context) ([]DirectoryEntry, error) {
	node, err := u.store.Get(ctx, usersPath)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrap(ErrFailedToFetch, "no user directory")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user directory")
	}

	list, err := decodeList(node.Raw)
	if err != nil {
		return nil, errors.Wrapf(ErrFailedToFetch, "user directory: %v", err)
	}
	users := make([]DirectoryEntry, 0, len(list))
	for _, raw := range list {
		var e DirectoryEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, errors.Wrapf(ErrFailedToFetch, "user directory entry: %v", err)
		}
		users = append(users, e)
	}
	return users, nil
}

// SearchUsers returns directory entries whose name starts with term, ignoring
// case. The caller's own entry is left out.
func (u *UsersStore) SearchUsers(ctx context.Context, term, excludeIdentity string) ([]DirectoryEntry, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}
	all, err := u.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}

	var results []DirectoryEntry
	for _, e := range all {
		if e.Email == excludeIdentity {
			continue
		}
		if strings.HasPrefix(strings.ToLower(e.Name), term) {
			results = append(results, e)
		}
	}
	return results, nil
}

// SaveCredentials stores the login credentials for identity.
func (u *UsersStore) SaveCredentials(ctx context.Context, identity string, c Credentials) error {
	if err := checkIdentity(identity); err != nil {
		return err
	}
	path := credentialsRoot + identity
	if err := u.store.Set(ctx, path, c); err != nil {
		return writeFailed(path, err)
	}
	return nil
}

// GetCredentials reads the login credentials for identity.
func (u *UsersStore) GetCredentials(ctx context.Context, identity string) (*Credentials, error) {
	if err := checkIdentity(identity); err != nil {
		return nil, err
	}
	node, err := u.store.Get(ctx, credentialsRoot+identity)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrapf(ErrUserNotFound, "%s: no credentials", identity)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get credentials %s", identity)
	}
	var c Credentials
	if err := node.Decode(&c); err != nil {
		return nil, errors.Wrapf(ErrUserNotFound, "%s: malformed credentials", identity)
	}
	return &c, nil
}
