// Package auth holds the authentication token and its expiry, and derives
// whether the current session is logged in.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atinyakov/appstate/internal/models"
	"github.com/atinyakov/appstate/internal/store"
)

// IsLoginGetter is the name of the derived login flag.
const IsLoginGetter = "isLogin"

// Module returns the auth module for store registration.
func Module() store.Module {
	return store.Module{
		Name: models.ModuleAuth,
		Init: func(st *models.State) {
			st.Auth = models.AuthState{}
		},
		Local: func(st models.State) any { return st.Auth },
		Fields: func(st models.State) map[string]any {
			return map[string]any{
				"token":       st.Auth.Token,
				"tokenExpire": st.Auth.TokenExpire,
			}
		},
		Mutations: map[models.Mutation]store.MutationFunc{
			models.SetToken:       setToken,
			models.SetTokenExpire: setTokenExpire,
		},
		Actions: map[models.Action]store.ActionFunc{
			models.UpdateAuthData: updateAuthData,
			models.CleanAuthData:  cleanAuthData,
			models.LoginWithToken: loginWithToken,
		},
		Getters: map[string]store.GetterFunc{
			IsLoginGetter: func(st models.State) any { return isLogin(st) },
		},
	}
}

func setToken(mc *store.MutationContext, payload any) error {
	v, err := store.String(payload)
	if err != nil {
		return err
	}
	mc.State.Auth.Token = v
	return nil
}

func setTokenExpire(mc *store.MutationContext, payload any) error {
	v, err := store.Int64(payload)
	if err != nil {
		return err
	}
	mc.State.Auth.TokenExpire = v
	return nil
}

// isLogin reads the user module directly: a token alone is not a login.
func isLogin(st models.State) bool {
	return st.Auth.Token != "" && (st.User.UserID != "" || st.User.AccountID != "")
}

func authData(payload any) (models.AuthData, error) {
	switch v := payload.(type) {
	case nil:
		return models.AuthData{}, nil
	case models.AuthData:
		return v, nil
	case *models.AuthData:
		if v == nil {
			return models.AuthData{}, nil
		}
		return *v, nil
	case map[string]any:
		token, err := store.String(v["token"])
		if err != nil {
			return models.AuthData{}, fmt.Errorf("token: %w", err)
		}
		expire, err := store.Int64(v["expire"])
		if err != nil {
			return models.AuthData{}, fmt.Errorf("expire: %w", err)
		}
		return models.AuthData{Token: token, Expire: expire}, nil
	default:
		return models.AuthData{}, fmt.Errorf("%w: want auth data, got %T", store.ErrInvalidPayload, payload)
	}
}

func updateAuthData(ac *store.ActionContext, payload any) (any, error) {
	data, err := authData(payload)
	if err != nil {
		return nil, err
	}
	if err := ac.Commit(models.SetToken, data.Token); err != nil {
		return nil, err
	}
	if err := ac.Commit(models.SetTokenExpire, data.Expire); err != nil {
		return nil, err
	}
	return nil, nil
}

func cleanAuthData(ac *store.ActionContext, _ any) (any, error) {
	if err := ac.Commit(models.SetToken, ""); err != nil {
		return nil, err
	}
	if err := ac.Commit(models.SetTokenExpire, int64(0)); err != nil {
		return nil, err
	}
	return nil, nil
}

func loginWithToken(ac *store.ActionContext, payload any) (any, error) {
	token, err := store.String(payload)
	if err != nil {
		return nil, err
	}
	expire, err := ExpiryFromToken(token)
	if err != nil && !errors.Is(err, ErrNotJWT) {
		return nil, err
	}
	return updateAuthData(ac, models.AuthData{Token: token, Expire: expire})
}

// ErrNotJWT is returned by ExpiryFromToken for opaque tokens.
var ErrNotJWT = errors.New("token is not a JWT")

// ExpiryFromToken returns the exp claim of a JWT as a unix timestamp, or 0
// when the claim is absent. The signature is not verified; the token is only
// inspected, never trusted.
func ExpiryFromToken(token string) (int64, error) {
	if token == "" {
		return 0, ErrNotJWT
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return 0, ErrNotJWT
		}
		return 0, fmt.Errorf("parse token claims: %w", err)
	}
	if claims.ExpiresAt == nil {
		return 0, nil
	}
	return claims.ExpiresAt.Unix(), nil
}

// SetToken commits a new token.
func SetToken(s *store.Store, token string) error {
	return s.Commit(models.SetToken, token)
}

// SetTokenExpire commits a new expiry.
func SetTokenExpire(s *store.Store, expire int64) error {
	return s.Commit(models.SetTokenExpire, expire)
}

// UpdateAuthData sets token and expiry together and waits for the action.
func UpdateAuthData(ctx context.Context, s *store.Store, data models.AuthData) error {
	return await(ctx, s, models.UpdateAuthData, data)
}

// CleanAuthData clears token and expiry and waits for the action.
func CleanAuthData(ctx context.Context, s *store.Store) error {
	return await(ctx, s, models.CleanAuthData, nil)
}

// LoginWithToken stores token with the expiry taken from its claims.
func LoginWithToken(ctx context.Context, s *store.Store, token string) error {
	return await(ctx, s, models.LoginWithToken, token)
}

// IsLogin reports the derived login flag.
func IsLogin(s *store.Store) bool {
	return isLogin(s.State())
}

func await(ctx context.Context, s *store.Store, name models.Action, payload any) error {
	p, err := s.Dispatch(ctx, name, payload)
	if err != nil {
		return err
	}
	_, err = p.Await(ctx)
	return err
}
