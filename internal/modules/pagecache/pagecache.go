// Package pagecache keeps the ordered list of page names whose views stay
// alive between navigations.
package pagecache

import (
	"fmt"
	"slices"

	"github.com/atinyakov/appstate/internal/models"
	"github.com/atinyakov/appstate/internal/store"
)

var seed = []string{"Home"}

// Seed returns a fresh copy of the initial page list.
func Seed() []string {
	return slices.Clone(seed)
}

// Module returns the page-cache module for store registration.
func Module() store.Module {
	return store.Module{
		Name: models.ModulePageCache,
		Init: func(st *models.State) {
			st.PageCache.PagesName = Seed()
		},
		Local: func(st models.State) any { return st.PageCache },
		Fields: func(st models.State) map[string]any {
			return map[string]any{"pagesName": st.PageCache.PagesName}
		},
		Mutations: map[models.Mutation]store.MutationFunc{
			models.SetPageToCache: setPageToCache,
			models.ResetPageCache: func(mc *store.MutationContext, _ any) error {
				mc.State.PageCache.PagesName = Seed()
				return nil
			},
		},
	}
}

func pageEntry(payload any) (models.PageEntry, error) {
	switch v := payload.(type) {
	case models.PageEntry:
		return v, nil
	case *models.PageEntry:
		if v != nil {
			return *v, nil
		}
	case string:
		return models.PageEntry{PageName: v}, nil
	case map[string]any:
		name, err := store.String(v["pageName"])
		if err != nil {
			return models.PageEntry{}, fmt.Errorf("pageName: %w", err)
		}
		return models.PageEntry{PageName: name}, nil
	}
	return models.PageEntry{}, fmt.Errorf("%w: want page entry, got %T", store.ErrInvalidPayload, payload)
}

func setPageToCache(mc *store.MutationContext, payload any) error {
	entry, err := pageEntry(payload)
	if err != nil {
		return err
	}
	mc.State.PageCache.PagesName = slices.Insert(mc.State.PageCache.PagesName, 0, entry.PageName)
	mc.AfterCommit(entry.Callback)
	return nil
}

// SetPageToCache prepends name; callback, if non-nil, runs once the change
// is applied and published.
func SetPageToCache(s *store.Store, name string, callback func()) error {
	return s.Commit(models.SetPageToCache, models.PageEntry{PageName: name, Callback: callback})
}

// ResetPageCache restores the seed list.
func ResetPageCache(s *store.Store) error {
	return s.Commit(models.ResetPageCache, nil)
}
