package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/config"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
	"github.com/matthewdavidson09/cloud-attribute-sync/tools"
	"golang.org/x/oauth2/clientcredentials"
)

const userSelect = "id,userPrincipalName,displayName,businessPhones,streetAddress,postalCode,city,jobTitle,department,companyName,onPremisesImmutableId"

// Client reads and updates users in Microsoft Entra ID through Microsoft Graph.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient returns a Client authenticated with the app's client credentials.
func NewClient(ctx context.Context, cfg config.Graph) (*Client, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("graph tenant id, client id and client secret are required")
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(cfg.AuthorityURL, "/"), url.PathEscape(cfg.TenantID)),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	httpClient := cc.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	return NewWithHTTPClient(cfg.BaseURL, httpClient), nil
}

// NewWithHTTPClient wraps an already-authenticated HTTP client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// graphUser is the wire shape of a Graph user.
type graphUser struct {
	ID                    string   `json:"id"`
	UserPrincipalName     string   `json:"userPrincipalName"`
	DisplayName           string   `json:"displayName"`
	BusinessPhones        []string `json:"businessPhones"`
	StreetAddress         *string  `json:"streetAddress"`
	PostalCode            *string  `json:"postalCode"`
	City                  *string  `json:"city"`
	JobTitle              *string  `json:"jobTitle"`
	Department            *string  `json:"department"`
	CompanyName           *string  `json:"companyName"`
	OnPremisesImmutableID *string  `json:"onPremisesImmutableId"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (g *graphUser) record() *directory.CloudUser {
	u := &directory.CloudUser{
		ObjectID:              g.ID,
		PrincipalName:         g.UserPrincipalName,
		DisplayName:           g.DisplayName,
		StreetAddress:         deref(g.StreetAddress),
		PostalCode:            deref(g.PostalCode),
		City:                  deref(g.City),
		JobTitle:              deref(g.JobTitle),
		Department:            deref(g.Department),
		CompanyName:           deref(g.CompanyName),
		OnPremisesImmutableID: deref(g.OnPremisesImmutableID),
	}
	if len(g.BusinessPhones) > 0 {
		u.TelephoneNumber = g.BusinessPhones[0]
	}
	return u
}

// apiError is the body Graph returns on failure.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StatusError is returned for unexpected Graph responses.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("graph returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("graph returned HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// GetUser returns the cloud user with the given principal name.
func (c *Client) GetUser(ctx context.Context, upn string) (*directory.CloudUser, error) {
	var u graphUser
	path := "/users/" + url.PathEscape(upn) + "?$select=" + userSelect
	if err := c.do(ctx, http.MethodGet, path, nil, &u); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, &directory.NotFoundError{Source: directory.SourceCloud, PrincipalName: upn}
		}
		return nil, fmt.Errorf("get user %s: %w", upn, err)
	}
	return u.record(), nil
}

// GetManager returns the manager of the user with the given object id, or
// nil when no manager is assigned.
func (c *Client) GetManager(ctx context.Context, objectID string) (*directory.CloudUser, error) {
	var u graphUser
	path := "/users/" + url.PathEscape(objectID) + "/manager?$select=" + userSelect
	if err := c.do(ctx, http.MethodGet, path, nil, &u); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get manager of %s: %w", objectID, err)
	}
	return u.record(), nil
}

// SetImmutableID writes onPremisesImmutableId on the cloud user.
func (c *Client) SetImmutableID(ctx context.Context, objectID, immutableID string) error {
	body := map[string]string{"onPremisesImmutableId": immutableID}
	if err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(objectID), body, nil); err != nil {
		return fmt.Errorf("set immutable id on %s: %w", objectID, err)
	}
	tools.Log.WithField("id", objectID).Debug("Updated onPremisesImmutableId")
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr apiError
		if data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(data, &apiErr) == nil {
			statusErr.Code = apiErr.Error.Code
			statusErr.Message = apiErr.Error.Message
		}
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

func isStatus(err error, code int) bool {
	statusErr, ok := err.(*StatusError)
	return ok && statusErr.StatusCode == code
}
