// Package nvd implements the client for the NVD CVE API 2.0.
package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mollysec/molly/internal/domain/valueobject"
)

const (
	defaultBaseURL        = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	defaultResultsPerPage = 5
	defaultTimeout        = 10 * time.Second

	// NVD enforces these per rolling 30-second window.
	rateLimitPublic  = 5
	rateLimitWithKey = 50
)

// Config carries the tunables for the NVD client.
type Config struct {
	BaseURL        string
	APIKey         string
	ResultsPerPage int
	Timeout        time.Duration
	// RequestsPer30s overrides the rate limit. Zero derives it from the
	// presence of an API key.
	RequestsPer30s int
}

// Client queries the NVD CVE API with client-side rate limiting.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	resultsPerPage int
	limiter        *rate.Limiter
	logger         *zap.Logger
}

// NewClient creates an NVD client. Zero-valued config fields fall back to
// the public API defaults.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ResultsPerPage <= 0 {
		cfg.ResultsPerPage = defaultResultsPerPage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	limit := cfg.RequestsPer30s
	if limit <= 0 {
		if cfg.APIKey != "" {
			limit = rateLimitWithKey
		} else {
			limit = rateLimitPublic
		}
	}

	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		resultsPerPage: cfg.ResultsPerPage,
		limiter:        rate.NewLimiter(rate.Every(30*time.Second/time.Duration(limit)), limit),
		logger:         logger,
	}
}

// Search queries the vulnerability database for records matching a CPE name
// and returns their condensed summaries. The caller decides what a failure
// means; enrichment callers treat any error as an empty result.
func (c *Client) Search(ctx context.Context, cpeName string) ([]valueobject.CVESummary, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid NVD base URL: %w", err)
	}
	query := reqURL.Query()
	query.Set("cpeName", cpeName)
	query.Set("resultsPerPage", strconv.Itoa(c.resultsPerPage))
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build NVD request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	c.logger.Info("querying NVD", zap.String("cpe", cpeName))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NVD request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("NVD returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode NVD response: %w", err)
	}

	summaries := summarize(&payload)
	c.logger.Info("NVD query finished",
		zap.String("cpe", cpeName),
		zap.Int("total_results", payload.TotalResults),
		zap.Int("summarized", len(summaries)))
	return summaries, nil
}

// === Wire format ===

type apiResponse struct {
	ResultsPerPage  int                  `json:"resultsPerPage"`
	StartIndex      int                  `json:"startIndex"`
	TotalResults    int                  `json:"totalResults"`
	Vulnerabilities []vulnerabilityEntry `json:"vulnerabilities"`
}

type vulnerabilityEntry struct {
	CVE cveRecord `json:"cve"`
}

type cveRecord struct {
	ID           string        `json:"id"`
	Descriptions []description `json:"descriptions"`
	Metrics      metricSets    `json:"metrics"`
	References   []reference   `json:"references"`
}

type description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type metricSets struct {
	CVSSMetricV31 []cvssMetric `json:"cvssMetricV31"`
	CVSSMetricV30 []cvssMetric `json:"cvssMetricV30"`
	CVSSMetricV2  []cvssMetric `json:"cvssMetricV2"`
}

type cvssMetric struct {
	CVSSData cvssData `json:"cvssData"`
}

type cvssData struct {
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity"`
}

type reference struct {
	URL string `json:"url"`
}

// summarize condenses raw API records into the summary shape the rest of
// the pipeline consumes. English descriptions are preferred; CVSS comes
// from v3.1, then v3.0, then v2.
func summarize(resp *apiResponse) []valueobject.CVESummary {
	if resp == nil || len(resp.Vulnerabilities) == 0 {
		return nil
	}

	summaries := make([]valueobject.CVESummary, 0, len(resp.Vulnerabilities))
	for _, entry := range resp.Vulnerabilities {
		rec := entry.CVE
		if rec.ID == "" {
			continue
		}

		desc := "No description available."
		for _, d := range rec.Descriptions {
			if d.Lang == "en" {
				if d.Value != "" {
					desc = d.Value
				}
				break
			}
		}

		score, severity := pickCVSS(rec.Metrics)

		var refs []string
		for _, ref := range rec.References {
			if ref.URL != "" {
				refs = append(refs, ref.URL)
			}
		}

		summaries = append(summaries, valueobject.CVESummary{
			CVEID:        rec.ID,
			Description:  desc,
			CVSSScore:    score,
			CVSSSeverity: severity,
			References:   refs,
		})
	}
	return summaries
}

func pickCVSS(m metricSets) (float64, string) {
	for _, set := range [][]cvssMetric{m.CVSSMetricV31, m.CVSSMetricV30, m.CVSSMetricV2} {
		if len(set) == 0 {
			continue
		}
		data := set[0].CVSSData
		severity := data.BaseSeverity
		if severity == "" {
			severity = "N/A"
		}
		return data.BaseScore, severity
	}
	return 0, "N/A"
}
