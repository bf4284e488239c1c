// Package models defines the state tree, the mutation and action names,
// and the payload types shared by the store and its modules.
package models

import "maps"

// Module names used as the first segment of a state path.
const (
	ModuleAuth      = "auth"
	ModuleUser      = "user"
	ModulePageCache = "pageCache"
)

// AuthState holds the authentication token and its expiry.
type AuthState struct {
	// Token is the bearer token; empty means logged out.
	Token string `json:"token"`
	// TokenExpire is a unix timestamp; 0 means unset.
	TokenExpire int64 `json:"tokenExpire"`
}

// UserState holds the identity of the signed-in account.
type UserState struct {
	// AccountID identifies the account.
	AccountID string `json:"accountId"`
	// UserID identifies the user inside the account.
	UserID string `json:"userId"`
	// Info is a free-form profile record.
	Info map[string]any `json:"info"`
}

// PageCacheState holds the ordered list of page names kept alive.
type PageCacheState struct {
	// PagesName is most-recent-first and may contain duplicates.
	PagesName []string `json:"pagesName"`
}

// State is the root state tree, keyed by module name.
type State struct {
	Auth      AuthState      `json:"auth"`
	User      UserState      `json:"user"`
	PageCache PageCacheState `json:"pageCache"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	if s.User.Info != nil {
		out.User.Info = CloneRecord(s.User.Info)
	}
	if s.PageCache.PagesName != nil {
		out.PageCache.PagesName = append([]string(nil), s.PageCache.PagesName...)
	}
	return out
}

// Mutation names a synchronous state change.
type Mutation string

const (
	SetToken       Mutation = "setToken"
	SetTokenExpire Mutation = "setTokenExpire"
	SetAccountID   Mutation = "setAccountId"
	SetUserID      Mutation = "setUserId"
	SetUserInfo    Mutation = "setUserInfo"
	SetPageToCache Mutation = "setPageToCache"
	ResetPageCache Mutation = "resetPageCache"
)

// Action names an asynchronous operation that issues commits.
type Action string

const (
	UpdateAuthData Action = "updateAuthData"
	CleanAuthData  Action = "cleanAuthData"
	// LoginWithToken stores a token and takes its expiry from the JWT exp claim.
	LoginWithToken Action = "loginWithToken"
)

// AuthData is the payload of UpdateAuthData.
type AuthData struct {
	Token  string `json:"token"`
	Expire int64  `json:"expire"`
}

// PageEntry is the payload of SetPageToCache.
type PageEntry struct {
	PageName string `json:"pageName"`
	// Callback, if set, runs after the commit has been applied.
	Callback func() `json:"-"`
}

// CommitEvent describes an applied commit.
type CommitEvent struct {
	Mutation Mutation `json:"mutation"`
	Payload  any      `json:"payload,omitempty"`
	State    State    `json:"state"`
}

// Snapshot is the persisted part of the state: who is signed in. The page
// cache is view state and is never persisted.
type Snapshot struct {
	SessionID string    `json:"sessionId"`
	Auth      AuthState `json:"auth"`
	User      UserState `json:"user"`
}

// CloneRecord deep-copies a free-form record. Nested maps and slices are
// copied too; other values are shared.
func CloneRecord(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneRecord(t)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
