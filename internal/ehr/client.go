package ehr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client talks to the clinical scheduling system's FHIR-style API using a
// client-credentials bearer token that is cached and refreshed shortly before
// its stated expiry.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Scope        string
	HTTPClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type Provider struct {
	ID     string
	Name   string
	Active bool
}

type Appointment struct {
	ID          string
	Status      string
	TypeLabel   string
	Start       time.Time
	End         time.Time
	LocationRef string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type bundle struct {
	ResourceType string `json:"resourceType"`
	Entry        []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

type practitionerResource struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
	Name   []struct {
		Given  []string `json:"given"`
		Family string   `json:"family"`
	} `json:"name"`
}

type appointmentResource struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	AppointmentType *struct {
		Coding []struct {
			Code    string `json:"code"`
			Display string `json:"display"`
		} `json:"coding"`
	} `json:"appointmentType"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location []struct {
		Location struct {
			Reference string `json:"reference"`
		} `json:"location"`
	} `json:"location"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c.HTTPClient
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {c.Scope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.ClientID, c.ClientSecret)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("ehr auth request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ehr auth failed: %s", resp.Status)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}
	expiresIn := token.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	c.accessToken = token.AccessToken
	// Refresh 5 minutes before the stated expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn-300) * time.Second)
	return c.accessToken, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/fhir+json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ehr request failed: %s %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ListProviders(ctx context.Context) ([]Provider, error) {
	var b bundle
	if err := c.getJSON(ctx, "/Practitioner?active=true&_count=100", &b); err != nil {
		return nil, err
	}
	if b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("ehr: expected Bundle, got %q", b.ResourceType)
	}

	var out []Provider
	for _, entry := range b.Entry {
		var p practitionerResource
		if err := json.Unmarshal(entry.Resource, &p); err != nil {
			return nil, err
		}
		if !p.Active {
			continue
		}
		out = append(out, Provider{ID: p.ID, Name: practitionerName(p), Active: p.Active})
	}
	return out, nil
}

func practitionerName(p practitionerResource) string {
	if len(p.Name) > 0 {
		given := strings.Join(p.Name[0].Given, " ")
		name := strings.TrimSpace(given + " " + p.Name[0].Family)
		if name != "" {
			return name
		}
	}
	return "Provider " + p.ID
}

func (c *Client) ListAppointments(ctx context.Context, providerID string, date time.Time, statuses []string) ([]Appointment, error) {
	params := url.Values{
		"actor":  {"Practitioner/" + providerID},
		"date":   {date.Format("2006-01-02")},
		"_count": {"200"},
	}
	for _, s := range statuses {
		params.Add("status", s)
	}

	var b bundle
	if err := c.getJSON(ctx, "/Appointment?"+params.Encode(), &b); err != nil {
		return nil, err
	}
	if b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("ehr: expected Bundle, got %q", b.ResourceType)
	}

	var out []Appointment
	for _, entry := range b.Entry {
		var a appointmentResource
		if err := json.Unmarshal(entry.Resource, &a); err != nil {
			return nil, err
		}
		appt := Appointment{
			ID:        a.ID,
			Status:    a.Status,
			TypeLabel: appointmentType(a),
			Start:     a.Start,
			End:       a.End,
		}
		if len(a.Location) > 0 {
			appt.LocationRef = a.Location[0].Location.Reference
		}
		out = append(out, appt)
	}
	return out, nil
}

func appointmentType(a appointmentResource) string {
	if a.AppointmentType != nil && len(a.AppointmentType.Coding) > 0 {
		coding := a.AppointmentType.Coding[0]
		if coding.Display != "" {
			return coding.Display
		}
		if coding.Code != "" {
			return coding.Code
		}
	}
	return "general"
}

func (c *Client) TestConnection(ctx context.Context) (bool, string) {
	var meta struct {
		ResourceType string `json:"resourceType"`
	}
	if err := c.getJSON(ctx, "/metadata", &meta); err != nil {
		return false, fmt.Sprintf("scheduling system connection failed: %v", err)
	}
	if meta.ResourceType != "CapabilityStatement" {
		return false, "unexpected response from scheduling system"
	}
	return true, "scheduling system connection successful"
}
