package wfm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the workforce management system. Authentication is a static
// permanent key sent as an OAuth header on every request.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type Employee struct {
	ID          int    `json:"Id"`
	DisplayName string `json:"DisplayName"`
	Active      bool   `json:"Active"`
	Location    int    `json:"Location"`
}

// Availability is one recurring availability window. Weekday participation is
// encoded as one boolean per day.
type Availability struct {
	ID        int    `json:"Id"`
	Employee  int    `json:"Employee"`
	StartDate string `json:"StartDate"`
	EndDate   string `json:"EndDate"`
	StartTime string `json:"StartTime"`
	EndTime   string `json:"EndTime"`
	AllDay    bool   `json:"AllDay"`

	Sunday    bool `json:"Sunday"`
	Monday    bool `json:"Monday"`
	Tuesday   bool `json:"Tuesday"`
	Wednesday bool `json:"Wednesday"`
	Thursday  bool `json:"Thursday"`
	Friday    bool `json:"Friday"`
	Saturday  bool `json:"Saturday"`

	Unavailable []string `json:"Unavailable"`
	Comment     string   `json:"Comment"`
}

type RosterRequest struct {
	Employee        int    `json:"intEmployee"`
	Date            string `json:"intRosterDate"`
	StartTime       string `json:"strStartTime"`
	EndTime         string `json:"strEndTime"`
	OperationalUnit int    `json:"intOpunitId,omitempty"`
	Comment         string `json:"strComment,omitempty"`
}

type Roster struct {
	ID int `json:"Id"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c.HTTPClient
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "OAuth "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wfm request failed: %s %s %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ListEmployees(ctx context.Context) ([]Employee, error) {
	var employees []Employee
	if err := c.do(ctx, http.MethodGet, "/api/v1/resource/Employee", nil, &employees); err != nil {
		return nil, err
	}
	return employees, nil
}

func (c *Client) ListAvailability(ctx context.Context, employeeID int) ([]Availability, error) {
	var availability []Availability
	path := fmt.Sprintf("/api/v1/resource/EmployeeAvailability?employee=%d", employeeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &availability); err != nil {
		return nil, err
	}
	return availability, nil
}

// CreateRoster publishes a new shift and returns the system-assigned id.
func (c *Client) CreateRoster(ctx context.Context, r RosterRequest) (Roster, error) {
	var roster Roster
	if err := c.do(ctx, http.MethodPost, "/api/v1/resource/Roster", r, &roster); err != nil {
		return Roster{}, err
	}
	return roster, nil
}

// UpdateRoster overwrites an already-published shift in place.
func (c *Client) UpdateRoster(ctx context.Context, rosterID string, r RosterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/resource/Roster/"+rosterID, r, nil)
}

func (c *Client) DeleteRoster(ctx context.Context, rosterID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/resource/Roster/"+rosterID, nil, nil)
}

func (c *Client) TestConnection(ctx context.Context) (bool, string) {
	var me struct {
		Name string `json:"Name"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &me); err != nil {
		return false, fmt.Sprintf("workforce system connection failed: %v", err)
	}
	return true, "workforce system connection successful"
}
