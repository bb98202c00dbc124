package hris

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the HR system with a static bearer token. List endpoints
// return cursor-paginated envelopes; the client follows the cursor until it
// is exhausted.
type Client struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
}

type Employee struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	WorkEmail      string `json:"work_email"`
	PersonalEmail  string `json:"personal_email"`
	Status         string `json:"status"`
	EmploymentType string `json:"employment_type"`
	LocationID     string `json:"location_id"`
}

type TimeOffRequest struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

type envelope struct {
	Data struct {
		Results []json.RawMessage `json:"results"`
		Next    *string           `json:"next"`
	} `json:"data"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c.HTTPClient
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = c.BaseURL + rawURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("hr request failed: %s %s", rawURL, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// listAll follows the next cursor until the server reports no further page.
func (c *Client) listAll(ctx context.Context, path string) ([]json.RawMessage, error) {
	var results []json.RawMessage
	next := path
	for {
		var page envelope
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		results = append(results, page.Data.Results...)
		if page.Data.Next == nil || *page.Data.Next == "" {
			return results, nil
		}
		next = *page.Data.Next
	}
}

func (c *Client) ListEmployees(ctx context.Context) ([]Employee, error) {
	raw, err := c.listAll(ctx, "/core/people")
	if err != nil {
		return nil, err
	}
	employees := make([]Employee, 0, len(raw))
	for _, r := range raw {
		var e Employee
		if err := json.Unmarshal(r, &e); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, nil
}

func (c *Client) ListTimeOff(ctx context.Context, employeeID, status string, since time.Time) ([]TimeOffRequest, error) {
	params := url.Values{
		"person": {employeeID},
		"status": {status},
	}
	if !since.IsZero() {
		params.Set("end_date:gte", since.Format("2006-01-02"))
	}
	raw, err := c.listAll(ctx, "/time_off/requests?"+params.Encode())
	if err != nil {
		return nil, err
	}
	requests := make([]TimeOffRequest, 0, len(raw))
	for _, r := range raw {
		var t TimeOffRequest
		if err := json.Unmarshal(r, &t); err != nil {
			return nil, err
		}
		requests = append(requests, t)
	}
	return requests, nil
}

func (c *Client) TestConnection(ctx context.Context) (bool, string) {
	if _, err := c.listAll(ctx, "/core/companies"); err != nil {
		return false, fmt.Sprintf("hr system connection failed: %v", err)
	}
	return true, "hr system connection successful"
}
