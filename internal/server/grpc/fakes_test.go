package grpc

import (
	"context"

	"github.com/dmitrijs2005/featureboard/internal/logging"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
	"github.com/dmitrijs2005/featureboard/internal/server/services"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeUsers struct {
	loginAddr string
	loginErr  error
	refresh   func(string) (*services.TokenPair, error)
}

func (f *fakeUsers) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	return &models.User{ID: "u-new", Name: name, Email: email}, nil
}
func (f *fakeUsers) VerifyEmail(ctx context.Context, token string) error        { return nil }
func (f *fakeUsers) ResendVerification(ctx context.Context, email string) error { return nil }
func (f *fakeUsers) RequestPasswordReset(ctx context.Context, email string) error {
	return nil
}
func (f *fakeUsers) ResetPassword(ctx context.Context, token, newPassword string) error {
	return nil
}
func (f *fakeUsers) Login(ctx context.Context, email, password, addr string) (*services.TokenPair, error) {
	f.loginAddr = addr
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}
func (f *fakeUsers) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	return f.refresh(refreshToken)
}

type fakeRequests struct {
	lastActor  models.Actor
	lastStatus string
}

func (f *fakeRequests) Create(ctx context.Context, ownerID, title, description string) (*models.FeatureRequest, error) {
	return &models.FeatureRequest{ID: "r-new", Title: title, Description: description, OwnerID: ownerID, Status: models.StatusPending}, nil
}
func (f *fakeRequests) Get(ctx context.Context, requestID string) (*models.FeatureRequest, int, error) {
	return &models.FeatureRequest{ID: requestID, Title: "t", Status: models.StatusPending, OwnerID: "o"}, 7, nil
}
func (f *fakeRequests) AuthorizeEdit(ctx context.Context, actorID, requestID string) error {
	return nil
}
func (f *fakeRequests) AuthorizeDelete(ctx context.Context, actorID, requestID string) error {
	return nil
}
func (f *fakeRequests) Edit(ctx context.Context, actorID, requestID, title, description string) (*models.FeatureRequest, error) {
	return &models.FeatureRequest{ID: requestID, Title: title, Description: description, OwnerID: actorID}, nil
}
func (f *fakeRequests) Delete(ctx context.Context, actorID, requestID string) error { return nil }
func (f *fakeRequests) UpdateStatus(ctx context.Context, actor models.Actor, requestID, status string) error {
	f.lastActor = actor
	f.lastStatus = status
	return nil
}

type fakeVotes struct {
	voterID, requestID string
	action             models.VoteAction
	err                error
}

func (f *fakeVotes) ToggleVote(ctx context.Context, voterID, requestID string) (models.VoteAction, error) {
	f.voterID, f.requestID = voterID, requestID
	return f.action, f.err
}

type fakeAccounts struct {
	userID, password string
	err              error
}

func (f *fakeAccounts) DeleteAccount(ctx context.Context, userID, password string) error {
	f.userID, f.password = userID, password
	return f.err
}
