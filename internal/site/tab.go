package site

import (
	"context"

	"github.com/IshaanNene/BrokerScrape/internal/automation"
)

// tabCandidates are the elements searched for the tab label.
const tabCandidates = "button, a, [role=tab], li, span, div"

// OpenContactsTab switches the listing to the contacts tab and waits for its
// first card.
func (s *Site) OpenContactsTab(ctx context.Context) error {
	label := s.cfg.Selectors.ContactsTab
	timeout := s.cfg.Browser.TabTimeout

	s.logger.Info("opening tab", "label", label)
	if err := s.auto.ClickByText(ctx, tabCandidates, label, timeout); err != nil {
		return err
	}
	if err := s.auto.WaitForAny(ctx, s.cfg.Selectors.Card, timeout); err != nil {
		return err
	}
	return automation.Sleep(ctx, s.cfg.Browser.PostLoginWait)
}
