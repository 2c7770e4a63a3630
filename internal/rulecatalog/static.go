package rulecatalog

import (
	"context"

	"vigil/internal/domain"
)

// StaticReader serves a fixed rule set, for tests and for any deployment
// that seeds rules from config rather than a live admin store.
type StaticReader struct {
	Rules []*domain.Rule
}

func (r *StaticReader) FetchActiveRules(context.Context) ([]*domain.Rule, error) {
	return r.Rules, nil
}
