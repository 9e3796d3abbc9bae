package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/dbx"
	"github.com/dmitrijs2005/featureboard/internal/logging"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
	activitiesrepo "github.com/dmitrijs2005/featureboard/internal/server/repositories/activities"
	refreshtokensrepo "github.com/dmitrijs2005/featureboard/internal/server/repositories/refreshtokens"
	requestsrepo "github.com/dmitrijs2005/featureboard/internal/server/repositories/requests"
	usersrepo "github.com/dmitrijs2005/featureboard/internal/server/repositories/users"
	votesrepo "github.com/dmitrijs2005/featureboard/internal/server/repositories/votes"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

var errFK = errors.New("foreign key violation")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func nopLogger() logging.Logger { return logging.Nop{} }

type voteKey struct{ user, request string }

// memStore is an in-memory stand-in for the schema, including its cascades
// and restrict rules. Setting fail[name] makes the named method return that
// error, e.g. fail["Users.Delete"].
type memStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	requests   map[string]*models.FeatureRequest
	votes      map[voteKey]time.Time
	activities []*models.Activity
	refresh    map[string]*models.RefreshToken
	fail       map[string]error
	calls      []string
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		requests: map[string]*models.FeatureRequest{},
		votes:    map[voteKey]time.Time{},
		refresh:  map[string]*models.RefreshToken{},
		fail:     map[string]error{},
	}
}

// enter locks the store and records the call. The caller must unlock.
func (s *memStore) enter(name string) error {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	return s.fail[name]
}

func (s *memStore) addUser(id, email string, role models.Role, password *string) *models.User {
	u := &models.User{ID: id, Name: id, Email: email, PasswordHash: password, Role: role, CreatedAt: time.Now()}
	s.users[id] = u
	return u
}

func (s *memStore) addRequest(id, owner string) *models.FeatureRequest {
	r := &models.FeatureRequest{ID: id, Title: "title " + id, Description: "desc " + id, Status: models.StatusPending, OwnerID: owner}
	s.requests[id] = r
	return r
}

func (s *memStore) addVote(user, request string) { s.votes[voteKey{user, request}] = time.Now() }

func (s *memStore) addActivity(typ models.ActivityType, user, request string) {
	rid := request
	s.activities = append(s.activities, &models.Activity{ID: user + request + string(typ), Type: typ, UserID: user, RequestID: &rid})
}

func (s *memStore) voteCount(request string) int {
	n := 0
	for k := range s.votes {
		if k.request == request {
			n++
		}
	}
	return n
}

func (s *memStore) hasVote(user, request string) bool {
	_, ok := s.votes[voteKey{user, request}]
	return ok
}

func (s *memStore) activitiesOf(user string) []*models.Activity {
	var out []*models.Activity
	for _, a := range s.activities {
		if a.UserID == user {
			out = append(out, a)
		}
	}
	return out
}

// dropRequest deletes a request and cascades to its votes and activities.
func (s *memStore) dropRequest(id string) {
	delete(s.requests, id)
	for k := range s.votes {
		if k.request == id {
			delete(s.votes, k)
		}
	}
	kept := s.activities[:0]
	for _, a := range s.activities {
		if a.RequestID == nil || *a.RequestID != id {
			kept = append(kept, a)
		}
	}
	s.activities = kept
}

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *models.User) error {
	if err := r.s.enter("Users.Create"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return common.ErrAlreadyExists
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := r.s.enter("Users.GetByID"); err != nil {
		r.s.mu.Unlock()
		return nil, err
	}
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := r.s.enter("Users.GetByEmail"); err != nil {
		r.s.mu.Unlock()
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetSystemUser(ctx context.Context) (*models.User, error) {
	if err := r.s.enter("Users.GetSystemUser"); err != nil {
		r.s.mu.Unlock()
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Role == models.RoleSystem {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) UpsertSystemUser(ctx context.Context, id, name, email string) (*models.User, error) {
	if err := r.s.enter("Users.UpsertSystemUser"); err != nil {
		r.s.mu.Unlock()
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	u := &models.User{ID: id, Name: name, Email: email, Role: models.RoleSystem, CreatedAt: time.Now()}
	r.s.users[id] = u
	cp := *u
	return &cp, nil
}

func (r memUsers) MarkVerified(ctx context.Context, id string, at time.Time) error {
	if err := r.s.enter("Users.MarkVerified"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.VerifiedAt = &at
	return nil
}

func (r memUsers) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if err := r.s.enter("Users.UpdatePasswordHash"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = &hash
	return nil
}

func (r memUsers) Delete(ctx context.Context, id string) error {
	if err := r.s.enter("Users.Delete"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	for _, fr := range r.s.requests {
		if fr.OwnerID == id {
			return errFK
		}
	}
	for k := range r.s.votes {
		if k.user == id {
			return errFK
		}
	}
	for _, a := range r.s.activities {
		if a.UserID == id {
			return errFK
		}
	}
	for tok, rt := range r.s.refresh {
		if rt.UserID == id {
			delete(r.s.refresh, tok)
		}
	}
	delete(r.s.users, id)
	return nil
}

// --- requests ---

type memRequests struct{ s *memStore }

func (r memRequests) Create(ctx context.Context, req *models.FeatureRequest) error {
	if err := r.s.enter("Requests.Create"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[req.OwnerID]; !ok {
		return common.ErrorNotFound
	}
	req.CreatedAt, req.UpdatedAt = time.Now(), time.Now()
	cp := *req
	r.s.requests[req.ID] = &cp
	return nil
}

func (r memRequests) get(name, id string) (*models.FeatureRequest, error) {
	if err := r.s.enter(name); err != nil {
		r.s.mu.Unlock()
		return nil, err
	}
	defer r.s.mu.Unlock()
	fr, ok := r.s.requests[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *fr
	return &cp, nil
}

func (r memRequests) GetByID(ctx context.Context, id string) (*models.FeatureRequest, error) {
	return r.get("Requests.GetByID", id)
}

func (r memRequests) GetForUpdate(ctx context.Context, id string) (*models.FeatureRequest, error) {
	return r.get("Requests.GetForUpdate", id)
}

func (r memRequests) GetForShare(ctx context.Context, id string) (*models.FeatureRequest, error) {
	return r.get("Requests.GetForShare", id)
}

func (r memRequests) UpdateContent(ctx context.Context, id, title, description string) error {
	if err := r.s.enter("Requests.UpdateContent"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	fr, ok := r.s.requests[id]
	if !ok {
		return common.ErrorNotFound
	}
	fr.Title, fr.Description, fr.UpdatedAt = title, description, time.Now()
	return nil
}

func (r memRequests) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	if err := r.s.enter("Requests.UpdateStatus"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	fr, ok := r.s.requests[id]
	if !ok {
		return common.ErrorNotFound
	}
	fr.Status = status
	return nil
}

func (r memRequests) Delete(ctx context.Context, id string) error {
	if err := r.s.enter("Requests.Delete"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[id]; !ok {
		return common.ErrorNotFound
	}
	r.s.dropRequest(id)
	return nil
}

func (r memRequests) LockByOwner(ctx context.Context, ownerID string) ([]string, error) {
	if err := r.s.enter("Requests.LockByOwner"); err != nil {
		r.s.mu.Unlock()
		return nil, err
	}
	defer r.s.mu.Unlock()
	var ids []string
	for id, fr := range r.s.requests {
		if fr.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r memRequests) LockVotedBy(ctx context.Context, voterID string) ([]string, error) {
	if err := r.s.enter("Requests.LockVotedBy"); err != nil {
		r.s.mu.Unlock()
		return nil, err
	}
	defer r.s.mu.Unlock()
	var ids []string
	for k := range r.s.votes {
		if k.user == voterID {
			ids = append(ids, k.request)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r memRequests) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if err := r.s.enter("Requests.DeleteByIDs"); err != nil {
		r.s.mu.Unlock()
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.s.requests[id]; ok {
			r.s.dropRequest(id)
			n++
		}
	}
	return n, nil
}

func (r memRequests) ReassignOwner(ctx context.Context, ids []string, newOwnerID, suffix string) (int64, error) {
	if err := r.s.enter("Requests.ReassignOwner"); err != nil {
		r.s.mu.Unlock()
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if fr, ok := r.s.requests[id]; ok {
			fr.OwnerID = newOwnerID
			fr.Description += suffix
			n++
		}
	}
	return n, nil
}

// --- votes ---

type memVotes struct{ s *memStore }

func (r memVotes) Create(ctx context.Context, userID, requestID string) (bool, error) {
	if err := r.s.enter("Votes.Create"); err != nil {
		r.s.mu.Unlock()
		return false, err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[requestID]; !ok {
		return false, errFK
	}
	if _, ok := r.s.users[userID]; !ok {
		return false, common.ErrorNotFound
	}
	k := voteKey{userID, requestID}
	if _, ok := r.s.votes[k]; ok {
		return false, nil
	}
	r.s.votes[k] = time.Now()
	return true, nil
}

func (r memVotes) Delete(ctx context.Context, userID, requestID string) (bool, error) {
	if err := r.s.enter("Votes.Delete"); err != nil {
		r.s.mu.Unlock()
		return false, err
	}
	defer r.s.mu.Unlock()
	k := voteKey{userID, requestID}
	if _, ok := r.s.votes[k]; !ok {
		return false, nil
	}
	delete(r.s.votes, k)
	return true, nil
}

func (r memVotes) Exists(ctx context.Context, userID, requestID string) (bool, error) {
	if err := r.s.enter("Votes.Exists"); err != nil {
		r.s.mu.Unlock()
		return false, err
	}
	defer r.s.mu.Unlock()
	return r.s.hasVote(userID, requestID), nil
}

func (r memVotes) CountByRequest(ctx context.Context, requestID string) (int, error) {
	if err := r.s.enter("Votes.CountByRequest"); err != nil {
		r.s.mu.Unlock()
		return 0, err
	}
	defer r.s.mu.Unlock()
	return r.s.voteCount(requestID), nil
}

func (r memVotes) CountByRequests(ctx context.Context, ids []string) (map[string]int, error) {
	if err := r.s.enter("Votes.CountByRequests"); err != nil {
		r.s.mu.Unlock()
		return nil, err
	}
	defer r.s.mu.Unlock()
	out := make(map[string]int, len(ids))
	for _, id := range ids {
		out[id] = r.s.voteCount(id)
	}
	return out, nil
}

func (r memVotes) ReassignVoter(ctx context.Context, fromID, toID string, requestIDs []string) (int64, error) {
	if err := r.s.enter("Votes.ReassignVoter"); err != nil {
		r.s.mu.Unlock()
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for _, rid := range requestIDs {
		from := voteKey{fromID, rid}
		if _, ok := r.s.votes[from]; !ok {
			continue
		}
		if r.s.hasVote(toID, rid) {
			continue
		}
		if fr, ok := r.s.requests[rid]; ok && fr.OwnerID == toID {
			continue
		}
		r.s.votes[voteKey{toID, rid}] = r.s.votes[from]
		delete(r.s.votes, from)
		n++
	}
	return n, nil
}

func (r memVotes) DeleteByVoter(ctx context.Context, voterID string) (int64, error) {
	if err := r.s.enter("Votes.DeleteByVoter"); err != nil {
		r.s.mu.Unlock()
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for k := range r.s.votes {
		if k.user == voterID {
			delete(r.s.votes, k)
			n++
		}
	}
	return n, nil
}

func (r memVotes) DeleteByVoterOnRequests(ctx context.Context, voterID string, requestIDs []string) (int64, error) {
	if err := r.s.enter("Votes.DeleteByVoterOnRequests"); err != nil {
		r.s.mu.Unlock()
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for _, rid := range requestIDs {
		k := voteKey{voterID, rid}
		if _, ok := r.s.votes[k]; ok {
			delete(r.s.votes, k)
			n++
		}
	}
	return n, nil
}

// --- activities ---

type memActivities struct{ s *memStore }

func (r memActivities) Create(ctx context.Context, a *models.Activity) error {
	if err := r.s.enter("Activities.Create"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	if a.Type == models.ActivityDeleted && (a.RequestID != nil || a.TitleSnapshot == nil) {
		return errors.New("check violation")
	}
	if a.Type != models.ActivityDeleted && a.RequestID == nil {
		return errors.New("check violation")
	}
	a.CreatedAt = time.Now()
	cp := *a
	r.s.activities = append(r.s.activities, &cp)
	return nil
}

func (r memActivities) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if err := r.s.enter("Activities.DeleteByUser"); err != nil {
		r.s.mu.Unlock()
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	kept := r.s.activities[:0]
	for _, a := range r.s.activities {
		if a.UserID == userID {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.s.activities = kept
	return n, nil
}

func (r memActivities) DeleteByRequest(ctx context.Context, requestID string) (int64, error) {
	if err := r.s.enter("Activities.DeleteByRequest"); err != nil {
		r.s.mu.Unlock()
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	kept := r.s.activities[:0]
	for _, a := range r.s.activities {
		if a.RequestID != nil && *a.RequestID == requestID {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.s.activities = kept
	return n, nil
}

// --- refresh tokens ---

type memRefresh struct{ s *memStore }

func (r memRefresh) Create(ctx context.Context, userID, token string, expires time.Time) error {
	if err := r.s.enter("RefreshTokens.Create"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	r.s.refresh[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: expires}
	return nil
}

func (r memRefresh) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if err := r.s.enter("RefreshTokens.Find"); err != nil {
		r.s.mu.Unlock()
		return nil, err
	}
	defer r.s.mu.Unlock()
	rt, ok := r.s.refresh[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	return &cp, nil
}

func (r memRefresh) Delete(ctx context.Context, token string) error {
	if err := r.s.enter("RefreshTokens.Delete"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	delete(r.s.refresh, token)
	return nil
}

func (r memRefresh) DeleteByUser(ctx context.Context, userID string) error {
	if err := r.s.enter("RefreshTokens.DeleteByUser"); err != nil {
		r.s.mu.Unlock()
		return err
	}
	defer r.s.mu.Unlock()
	for tok, rt := range r.s.refresh {
		if rt.UserID == userID {
			delete(r.s.refresh, tok)
		}
	}
	return nil
}

// --- manager ---

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error            { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                  { return memUsers{m.s} }
func (m *fakeRepoManager) Requests(db dbx.DBTX) requestsrepo.Repository            { return memRequests{m.s} }
func (m *fakeRepoManager) Votes(db dbx.DBTX) votesrepo.Repository                  { return memVotes{m.s} }
func (m *fakeRepoManager) Activities(db dbx.DBTX) activitiesrepo.Repository        { return memActivities{m.s} }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return memRefresh{m.s} }

// plainHasher treats "hash:<password>" as the hash of password.
type plainHasher struct{ err error }

func (h plainHasher) Hash(plain string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hash:" + plain, nil
}

func (h plainHasher) Verify(hash, plain string) bool { return hash == "hash:"+plain }

func hashOf(plain string) *string {
	h := "hash:" + plain
	return &h
}

type sentMail struct {
	kind, email, token string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) SendVerificationEmail(ctx context.Context, email, token string) error {
	f.sent = append(f.sent, sentMail{"verify", email, token})
	return f.err
}

func (f *fakeSender) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	f.sent = append(f.sent, sentMail{"reset", email, token})
	return f.err
}
