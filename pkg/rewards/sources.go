package rewards

import (
	"context"

	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

// Sources bundles the reward adapters behind the shape the idling
// scheduler consumes. Either adapter may be nil.
type Sources struct {
	Feed     *FeedClient
	Document *DocumentClient
	Acct     Account
}

// Configured reports whether automatic discovery is possible at all.
// Without it the scheduler falls back to manually supplied app ids.
func (s *Sources) Configured() bool {
	return s.Feed != nil && s.Feed.Configured()
}

// FetchRewardCounts returns the numeric feed's records.
func (s *Sources) FetchRewardCounts(ctx context.Context) []types.RewardRecord {
	if s.Feed == nil {
		return nil
	}
	return s.Feed.FetchRewardCounts(ctx, s.Acct)
}

// FetchDocumentRewardCounts returns the badge document's records.
func (s *Sources) FetchDocumentRewardCounts(ctx context.Context) []types.RewardRecord {
	if s.Document == nil {
		return nil
	}
	return s.Document.FetchRewardCounts(ctx, s.Acct)
}

// FetchOwnedCatalog returns the account's owned games.
func (s *Sources) FetchOwnedCatalog(ctx context.Context) []types.OwnedGame {
	if s.Feed == nil {
		return nil
	}
	return s.Feed.FetchOwnedCatalog(ctx, s.Acct)
}
