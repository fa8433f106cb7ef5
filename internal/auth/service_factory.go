package auth

import (
	"context"
	"net/http"

	"github.com/dl-alexandre/sheetmirror/pkg/version"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ServiceFactory creates Drive and Sheets services sharing one authenticated HTTP client
type ServiceFactory struct {
	client *http.Client
}

// NewServiceFactory wraps tokens in an HTTP client. base may be nil, or a
// logging transport when debug output is on.
func NewServiceFactory(tokens oauth2.TokenSource, base http.RoundTripper) *ServiceFactory {
	if base == nil {
		base = http.DefaultTransport
	}
	return &ServiceFactory{
		client: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.ReuseTokenSource(nil, tokens),
				Base:   base,
			},
		},
	}
}

// HTTPClient returns the authenticated client
func (f *ServiceFactory) HTTPClient() *http.Client {
	return f.client
}

func (f *ServiceFactory) CreateDriveService(ctx context.Context) (*drive.Service, error) {
	return drive.NewService(ctx, option.WithHTTPClient(f.client), option.WithUserAgent(version.Get().UserAgent()))
}

func (f *ServiceFactory) CreateSheetsService(ctx context.Context) (*sheets.Service, error) {
	return sheets.NewService(ctx, option.WithHTTPClient(f.client), option.WithUserAgent(version.Get().UserAgent()))
}
