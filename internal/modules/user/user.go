// Package user holds the identity of the signed-in account.
package user

import (
	"github.com/atinyakov/appstate/internal/models"
	"github.com/atinyakov/appstate/internal/store"
)

// Module returns the user module for store registration.
func Module() store.Module {
	return store.Module{
		Name: models.ModuleUser,
		Init: func(st *models.State) {
			st.User = models.UserState{Info: map[string]any{}}
		},
		Local: func(st models.State) any { return st.User },
		Fields: func(st models.State) map[string]any {
			return map[string]any{
				"accountId": st.User.AccountID,
				"userId":    st.User.UserID,
				"info":      st.User.Info,
			}
		},
		Mutations: map[models.Mutation]store.MutationFunc{
			models.SetAccountID: func(mc *store.MutationContext, payload any) error {
				v, err := store.String(payload)
				if err != nil {
					return err
				}
				mc.State.User.AccountID = v
				return nil
			},
			models.SetUserID: func(mc *store.MutationContext, payload any) error {
				v, err := store.String(payload)
				if err != nil {
					return err
				}
				mc.State.User.UserID = v
				return nil
			},
			models.SetUserInfo: func(mc *store.MutationContext, payload any) error {
				v, err := store.Record(payload)
				if err != nil {
					return err
				}
				mc.State.User.Info = v
				return nil
			},
		},
	}
}

// SetAccountID commits a new account id.
func SetAccountID(s *store.Store, id string) error {
	return s.Commit(models.SetAccountID, id)
}

// SetUserID commits a new user id.
func SetUserID(s *store.Store, id string) error {
	return s.Commit(models.SetUserID, id)
}

// SetUserInfo replaces the profile record with a copy of info.
func SetUserInfo(s *store.Store, info map[string]any) error {
	return s.Commit(models.SetUserInfo, info)
}
