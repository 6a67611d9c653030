package onedrive

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/metrics"
)

const graphScope = "https://graph.microsoft.com/.default"

// DriveAPI is the subset of Graph the stage resolver depends on.
type DriveAPI interface {
	GetItem(ctx context.Context, driveID, itemID string) (*DriveItem, error)
}

// ItemReference points at a drive item's parent.
type ItemReference struct {
	DriveID string `json:"driveId"`
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Path    string `json:"path,omitempty"`
}

// FolderName returns the parent folder's name, derived from the path when
// Graph omits the name.
func (r ItemReference) FolderName() string {
	if r.Name != "" {
		return r.Name
	}
	p := r.Path
	if i := strings.Index(p, ":"); i >= 0 {
		p = p[i+1:]
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

type DriveItem struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	WebURL          string        `json:"webUrl,omitempty"`
	ParentReference ItemReference `json:"parentReference"`
	Folder          *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder,omitempty"`
	File *struct {
		MimeType string `json:"mimeType"`
	} `json:"file,omitempty"`
}

// IsFolder reports whether the item is a folder.
func (i DriveItem) IsFolder() bool { return i.Folder != nil }

type Subscription struct {
	ID                 string    `json:"id,omitempty"`
	ChangeType         string    `json:"changeType"`
	NotificationURL    string    `json:"notificationUrl"`
	Resource           string    `json:"resource"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
	ClientState        string    `json:"clientState,omitempty"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client is a minimal Microsoft Graph drive client.
type Client struct {
	http *req.Client
}

// Credentials identify the app registration used for client-credentials flow.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// TokenSource returns an auto-refreshing app-only token source for Graph.
func (c Credentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	cc := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", c.TenantID),
		Scopes:       []string{graphScope},
	}
	return cc.TokenSource(ctx)
}

// NewClient builds a Graph client rooted at baseURL authenticating with ts.
func NewClient(baseURL string, ts oauth2.TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := req.C().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetUserAgent("hhi-dashboard/1.0").
		SetCommonHeader("Accept", "application/json")
	c.OnBeforeRequest(func(_ *req.Client, r *req.Request) error {
		tok, err := ts.Token()
		if err != nil {
			return fmt.Errorf("graph token: %w", err)
		}
		r.SetBearerAuthToken(tok.AccessToken)
		return nil
	})
	return &Client{http: c}
}

var _ DriveAPI = (*Client)(nil)

// GetItem fetches a drive item including its parent reference.
func (c *Client) GetItem(ctx context.Context, driveID, itemID string) (*DriveItem, error) {
	start := time.Now()
	var item DriveItem
	var gErr graphError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"drive": driveID, "item": itemID}).
		SetSuccessResult(&item).
		SetErrorResult(&gErr).
		Get("/drives/{drive}/items/{item}")
	err = checkResponse(resp, err, &gErr, "get drive item")
	metrics.ObserveProviderCall("graph", "get_item", start, err)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetChildByName looks up a direct child of parentID by name.
func (c *Client) GetChildByName(ctx context.Context, driveID, parentID, name string) (*DriveItem, error) {
	var item DriveItem
	var gErr graphError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"drive": driveID, "item": parentID, "name": name}).
		SetSuccessResult(&item).
		SetErrorResult(&gErr).
		Get("/drives/{drive}/items/{item}:/{name}:")
	if err := checkResponse(resp, err, &gErr, "get child"); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateFolder creates name under parentID, failing if it already exists.
func (c *Client) CreateFolder(ctx context.Context, driveID, parentID, name string) (*DriveItem, error) {
	start := time.Now()
	var item DriveItem
	var gErr graphError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"drive": driveID, "item": parentID}).
		SetBodyJsonMarshal(map[string]any{
			"name":                              name,
			"folder":                            map[string]any{},
			"@microsoft.graph.conflictBehavior": "fail",
		}).
		SetSuccessResult(&item).
		SetErrorResult(&gErr).
		Post("/drives/{drive}/items/{item}/children")
	err = checkResponse(resp, err, &gErr, "create folder")
	metrics.ObserveProviderCall("graph", "create_folder", start, err)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// EnsureFolder returns the child folder name of parentID, creating it if needed.
func (c *Client) EnsureFolder(ctx context.Context, driveID, parentID, name string) (*DriveItem, error) {
	item, err := c.GetChildByName(ctx, driveID, parentID, name)
	if err == nil {
		return item, nil
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}
	return c.CreateFolder(ctx, driveID, parentID, name)
}

// EnsureProjectFolders creates the client folder under rootID along with one
// subfolder per stage folder name, returning the client folder.
func (c *Client) EnsureProjectFolders(ctx context.Context, driveID, rootID, projectFolder string, stageFolders []string) (*DriveItem, error) {
	folder, err := c.EnsureFolder(ctx, driveID, rootID, projectFolder)
	if err != nil {
		return nil, err
	}
	for _, name := range stageFolders {
		if _, err := c.EnsureFolder(ctx, driveID, folder.ID, name); err != nil {
			return nil, err
		}
	}
	return folder, nil
}

// CreateSubscription registers a change subscription for resource.
func (c *Client) CreateSubscription(ctx context.Context, sub Subscription) (*Subscription, error) {
	start := time.Now()
	if sub.ChangeType == "" {
		sub.ChangeType = ChangeTypeUpdated
	}
	var out Subscription
	var gErr graphError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBodyJsonMarshal(sub).
		SetSuccessResult(&out).
		SetErrorResult(&gErr).
		Post("/subscriptions")
	err = checkResponse(resp, err, &gErr, "create subscription")
	metrics.ObserveProviderCall("graph", "create_subscription", start, err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RenewSubscription extends a subscription's expiration.
func (c *Client) RenewSubscription(ctx context.Context, id string, expires time.Time) (*Subscription, error) {
	start := time.Now()
	var out Subscription
	var gErr graphError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBodyJsonMarshal(map[string]any{"expirationDateTime": expires.UTC().Format(time.RFC3339)}).
		SetSuccessResult(&out).
		SetErrorResult(&gErr).
		Patch("/subscriptions/{id}")
	err = checkResponse(resp, err, &gErr, "renew subscription")
	metrics.ObserveProviderCall("graph", "renew_subscription", start, err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func checkResponse(resp *req.Response, err error, gErr *graphError, op string) error {
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "graph "+op+" failed")
	}
	if resp.IsErrorState() {
		msg := fmt.Sprintf("graph %s failed: %s", op, strings.TrimSpace(gErr.Error.Message))
		switch resp.StatusCode {
		case http.StatusNotFound:
			return appErr.New(appErr.CodeNotFound, msg).WithMeta("graph_code", gErr.Error.Code)
		case http.StatusConflict:
			return appErr.New(appErr.CodeConflict, msg).WithMeta("graph_code", gErr.Error.Code)
		case http.StatusUnauthorized, http.StatusForbidden:
			return appErr.New(appErr.CodeUnauthorized, msg).WithMeta("graph_code", gErr.Error.Code)
		default:
			return appErr.New(appErr.CodeUnavailable, msg).WithMeta("status", resp.StatusCode)
		}
	}
	return nil
}
