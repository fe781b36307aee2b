package database

import (
	"context"
	"sync"

	"github.com/yashrajoria/storefront-bff/models"
)

// MemoryDeviceStore keeps device state in process. Used for local runs and tests.
type MemoryDeviceStore struct {
	mu     sync.RWMutex
	carts  map[string]int64
	drafts map[string]map[string]models.Draft
}

func NewMemoryDeviceStore() *MemoryDeviceStore {
	return &MemoryDeviceStore{
		carts:  make(map[string]int64),
		drafts: make(map[string]map[string]models.Draft),
	}
}

func (m *MemoryDeviceStore) GetCartID(_ context.Context, deviceID string) (*int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.carts[deviceID]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (m *MemoryDeviceStore) SetCartID(_ context.Context, deviceID string, cartID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[deviceID] = cartID
	return nil
}

func (m *MemoryDeviceStore) ClearCartID(_ context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, deviceID)
	return nil
}

func (m *MemoryDeviceStore) GetDraft(_ context.Context, deviceID, form string) (*models.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	draft, ok := m.drafts[deviceID][form]
	if !ok {
		return nil, nil
	}
	draft.Media = append([]string(nil), draft.Media...)
	return &draft, nil
}

func (m *MemoryDeviceStore) SaveDraft(_ context.Context, deviceID string, draft *models.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	forms, ok := m.drafts[deviceID]
	if !ok {
		forms = make(map[string]models.Draft)
		m.drafts[deviceID] = forms
	}
	stored := *draft
	stored.Media = append([]string(nil), draft.Media...)
	forms[draft.Form] = stored
	return nil
}

func (m *MemoryDeviceStore) DeleteDraft(_ context.Context, deviceID, form string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts[deviceID], form)
	return nil
}
