package facility

import (
	"context"
	"strings"

	"campus-facility-backend/internal/model"
)

// RegisterPersonalItem records a belonging for a registered subject.
// Suspended subjects may still register items.
func (s *Service) RegisterPersonalItem(ctx context.Context, item model.PersonalItem, registeredBy string) (model.PersonalItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.SubjectID = strings.TrimSpace(item.SubjectID)
	if _, err := s.subjects.Get(item.SubjectID); err != nil {
		return model.PersonalItem{}, err
	}
	return s.belongings.Register(ctx, item, registeredBy, s.now(), s.opts.ItemValidity)
}

// RenewPersonalItem extends a registration by the configured validity.
func (s *Service) RenewPersonalItem(ctx context.Context, itemID string) (model.PersonalItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.belongings.Renew(ctx, itemID, s.now(), s.opts.ItemValidity)
}

// RemovePersonalItem deletes a registration.
func (s *Service) RemovePersonalItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.belongings.Remove(ctx, itemID)
}

// PersonalItems lists registered items. An empty subject lists all.
func (s *Service) PersonalItems(subjectID string) []model.PersonalItem {
	return s.belongings.Items(subjectID)
}
