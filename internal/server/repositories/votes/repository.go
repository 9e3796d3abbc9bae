package votes

import "context"

type Repository interface {
	// Create reports false when the (userID, requestID) pair already exists.
	// It returns common.ErrorNotFound when the user or request row is gone.
	Create(ctx context.Context, userID, requestID string) (bool, error)
	// Delete reports false when there was no such vote.
	Delete(ctx context.Context, userID, requestID string) (bool, error)
	Exists(ctx context.Context, userID, requestID string) (bool, error)

	CountByRequest(ctx context.Context, requestID string) (int, error)
	// CountByRequests returns the vote count for each of ids. Requests with no
	// votes are present with a zero count.
	CountByRequests(ctx context.Context, ids []string) (map[string]int, error)

	// ReassignVoter moves fromID's votes on requestIDs to toID. Votes that
	// would duplicate one of toID's votes, or land on a request toID owns,
	// are left in place.
	ReassignVoter(ctx context.Context, fromID, toID string, requestIDs []string) (int64, error)
	DeleteByVoter(ctx context.Context, voterID string) (int64, error)
	// DeleteByVoterOnRequests removes voterID's votes on requestIDs only.
	DeleteByVoterOnRequests(ctx context.Context, voterID string, requestIDs []string) (int64, error)
}
