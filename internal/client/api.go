package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/khanhnv2901/wisafe/internal/checker"
	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/khanhnv2901/wisafe/internal/domain/scan"
	"github.com/khanhnv2901/wisafe/internal/scanner"
)

// ErrNoProgress is returned when a progress response carries no progress
// object. Pollers treat it as transient.
var ErrNoProgress = errors.New("progress missing from response")

// ExpertScan is the full scan returned to authenticated operators.
type ExpertScan struct {
	ScanID   string           `json:"scan_id"`
	WifiList []network.Record `json:"wifi_list"`
	Count    int              `json:"count"`
	Warning  string           `json:"warning,omitempty"`
}

// CheckResult holds either a cracking job id or an immediate verdict.
type CheckResult struct {
	CrackingID string           `json:"cracking_id,omitempty"`
	Result     *checker.Verdict `json:"result,omitempty"`
}

// ProgressReport is one poll of a cracking job.
type ProgressReport struct {
	Progress *job.Progress `json:"progress"`
	Result   *job.Result   `json:"result,omitempty"`
}

// Login authenticates and stores the returned tokens.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out Session
	in := map[string]string{"username": username, "password": password}
	if err := c.call(ctx, http.MethodPost, "/expert/login", in, &out, false); err != nil {
		return err
	}
	return c.store.Save(out)
}

// Logout revokes the refresh token on the server and forgets the session.
// The local session is cleared even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	session, err := c.store.Load()
	if err != nil {
		return err
	}
	var callErr error
	if session.RefreshToken != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/expert/logout", nil)
		if err != nil {
			return err
		}
		resp, err := c.send(ctx, req, session.RefreshToken)
		if err != nil {
			callErr = err
		} else {
			callErr = decodeResponse(resp, nil)
		}
	}
	if err := c.store.Clear(); err != nil {
		return err
	}
	return callErr
}

// Verify returns the operator the access token belongs to.
func (c *Client) Verify(ctx context.Context) (string, error) {
	var out struct {
		Username string `json:"username"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/expert/verify", nil, &out, true); err != nil {
		return "", err
	}
	return out.Username, nil
}

// UserScan runs a public scan. The request is bounded by the scan timeout.
func (c *Client) UserScan(ctx context.Context) ([]network.UserRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.scanTimeout)
	defer cancel()
	var out struct {
		WifiList []network.UserRecord `json:"wifi_list"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/scan", nil, &out, false); err != nil {
		return nil, err
	}
	return out.WifiList, nil
}

// Scan runs an expert scan. The request is bounded by the scan timeout.
func (c *Client) Scan(ctx context.Context) (*ExpertScan, error) {
	ctx, cancel := context.WithTimeout(ctx, c.scanTimeout)
	defer cancel()
	var out ExpertScan
	if err := c.call(ctx, http.MethodPost, "/api/expert/scan", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// SecurityCheck asks the server to check rec.
func (c *Client) SecurityCheck(ctx context.Context, rec network.Record) (*CheckResult, error) {
	in := map[string]any{"wifi_data": rec, "protocol": rec.Protocol}
	var out CheckResult
	if err := c.call(ctx, http.MethodPost, "/api/expert/security-check", in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Progress polls a cracking job once.
func (c *Client) Progress(ctx context.Context, id string) (job.Progress, *job.Result, error) {
	var out ProgressReport
	path := "/api/expert/cracking-progress?cracking_id=" + url.QueryEscape(id)
	if err := c.call(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return job.Progress{}, nil, err
	}
	if out.Progress == nil {
		return job.Progress{}, nil, ErrNoProgress
	}
	return *out.Progress, out.Result, nil
}

// Cancel asks the server to stop a cracking job.
func (c *Client) Cancel(ctx context.Context, id string) error {
	in := map[string]string{"cracking_id": id}
	return c.call(ctx, http.MethodPost, "/api/expert/cracking-cancel", in, nil, true)
}

// Krack runs a key reinstallation check against rec.
func (c *Client) Krack(ctx context.Context, rec network.Record) (checker.KrackResult, error) {
	in := map[string]any{"wifi_data": rec, "ssid": rec.SSID}
	var out struct {
		Result checker.KrackResult `json:"result"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/expert/krack-check", in, &out, true); err != nil {
		return checker.KrackResult{}, err
	}
	return out.Result, nil
}

// Jobs lists recent jobs, newest first.
func (c *Client) Jobs(ctx context.Context, limit int) ([]job.Job, error) {
	var out struct {
		Jobs []job.Job `json:"jobs"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/expert/jobs?limit="+strconv.Itoa(limit), nil, &out, true); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Scans lists the scan history.
func (c *Client) Scans(ctx context.Context, limit int) ([]scan.Summary, error) {
	var out struct {
		Scans []scan.Summary `json:"scans"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/expert/scans?limit="+strconv.Itoa(limit), nil, &out, true); err != nil {
		return nil, err
	}
	return out.Scans, nil
}

// ScanDetail fetches one stored scan with its records.
func (c *Client) ScanDetail(ctx context.Context, id string) (scan.Summary, []network.Record, error) {
	var out struct {
		Scan     scan.Summary     `json:"scan"`
		WifiList []network.Record `json:"wifi_list"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/expert/scans?id="+url.QueryEscape(id), nil, &out, true); err != nil {
		return scan.Summary{}, nil, err
	}
	return out.Scan, out.WifiList, nil
}

// Guide fetches the security guide for audience.
func (c *Client) Guide(ctx context.Context, audience string) (scanner.Guide, error) {
	var out struct {
		Guide scanner.Guide `json:"guide"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/guide?audience="+url.QueryEscape(audience), nil, &out, false); err != nil {
		return nil, err
	}
	return out.Guide, nil
}
