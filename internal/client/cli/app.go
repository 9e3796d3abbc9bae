package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/featureboard/internal/client/client"
	"github.com/dmitrijs2005/featureboard/internal/client/config"
)

// BoardClient is the part of client.GRPCClient the REPL uses.
type BoardClient interface {
	IsLoggedIn() bool
	Logout()
	Register(ctx context.Context, name, email, password string) (string, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	Login(ctx context.Context, email, password string) error
	CreateRequest(ctx context.Context, title, description string) (*client.Request, error)
	GetRequest(ctx context.Context, id string) (*client.Request, error)
	EditRequest(ctx context.Context, id, title, description string) (*client.Request, error)
	DeleteRequest(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id, status string) error
	ToggleVote(ctx context.Context, id string) (string, error)
	DeleteAccount(ctx context.Context, password string) error
}

type App struct {
	config   *config.Config
	api      BoardClient
	reader   *bufio.Reader
	out      io.Writer
	userName string
}

func NewApp(c *config.Config) (*App, error) {

	apiClient, err := client.NewFeatureBoardClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}

	return &App{config: c, api: apiClient, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

// callCtx bounds a single server call by the configured timeout.
func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}
