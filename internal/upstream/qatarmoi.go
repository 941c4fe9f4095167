package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/minaret-home/minaret/internal/model"
)

const qatarMOIURL = "https://portal.moi.gov.qa/MoiPortalRestServices/rest/prayertimings/today/en"

// moiNames normalizes the portal's header spellings to canonical events.
var moiNames = map[string]model.Event{
	"fajer":   model.Fajr,
	"fajr":    model.Fajr,
	"sunrise": model.Sunrise,
	"dhuhr":   model.Dhuhr,
	"zuhr":    model.Dhuhr,
	"asr":     model.Asr,
	"maghrib": model.Maghrib,
	"isha":    model.Isha,
}

var (
	headerPattern = regexp.MustCompile(`(?s)<th[^>]*>(.*?)</th>`)
	cellPattern   = regexp.MustCompile(`(?s)<td[^>]*>(.*?)</td>`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
)

// QatarMOIClient scrapes today's prayer times from the Qatar MOI portal,
// which publishes them as an HTML table of header/cell pairs.
type QatarMOIClient struct {
	client *http.Client
	url    string
}

func NewQatarMOIClient() *QatarMOIClient {
	return &QatarMOIClient{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    qatarMOIURL,
	}
}

// Fetch retrieves and parses the portal table. The portal reports 12-hour
// clock times; it carries no Hijri date.
func (q *QatarMOIClient) Fetch(ctx context.Context) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qatar moi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qatar moi returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read qatar moi response: %w", err)
	}

	times := parseMOITable(string(body))
	if len(times) == 0 {
		return nil, fmt.Errorf("qatar moi returned no prayer times")
	}

	return &FetchResult{Times: times, TwelveHour: true}, nil
}

// parseMOITable pairs the table headers with their cells in document order.
func parseMOITable(html string) map[model.Event]string {
	var headers []string
	for _, m := range headerPattern.FindAllStringSubmatch(html, -1) {
		h := strings.TrimSpace(tagPattern.ReplaceAllString(m[1], ""))
		if h != "" {
			headers = append(headers, h)
		}
	}

	var cells []string
	for _, m := range cellPattern.FindAllStringSubmatch(html, -1) {
		cells = append(cells, strings.TrimSpace(tagPattern.ReplaceAllString(m[1], "")))
	}

	times := make(map[model.Event]string)
	for i, header := range headers {
		if i >= len(cells) {
			break
		}
		if ev, ok := moiNames[strings.ToLower(header)]; ok {
			times[ev] = cells[i]
		}
	}
	return times
}
