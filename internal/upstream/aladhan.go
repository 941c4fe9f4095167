// Package upstream fetches daily prayer times from the configured provider,
// normalizes them into a model.Day, and publishes the per-event entity states
// that feed the live board.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/minaret-home/minaret/internal/model"
)

const aladhanBaseURL = "https://api.aladhan.com"

// CalcMethods maps AlAdhan calculation method IDs to their names, kept for
// configuration documentation and validation.
var CalcMethods = map[int]string{
	0:  "Shia Ithna-Ashari",
	1:  "University of Islamic Sciences, Karachi",
	2:  "Islamic Society of North America",
	3:  "Muslim World League",
	4:  "Umm Al-Qura University, Makkah",
	5:  "Egyptian General Authority of Survey",
	7:  "Institute of Geophysics, University of Tehran",
	8:  "Gulf Region",
	9:  "Kuwait",
	10: "Qatar",
	11: "Majlis Ugama Islam Singapura",
	12: "Union Organization Islamic de France",
	13: "Diyanet Isleri Baskanligi, Turkey",
	14: "Spiritual Administration of Muslims of Russia",
	15: "Moonsighting Committee Worldwide",
}

// aladhanResponse is the subset of the AlAdhan timingsByCity response we read.
type aladhanResponse struct {
	Code int    `json:"code"`
	Data struct {
		Timings struct {
			Fajr    string `json:"Fajr"`
			Sunrise string `json:"Sunrise"`
			Dhuhr   string `json:"Dhuhr"`
			Asr     string `json:"Asr"`
			Maghrib string `json:"Maghrib"`
			Isha    string `json:"Isha"`
		} `json:"timings"`
		Date struct {
			Hijri struct {
				Day   string `json:"day"`
				Month struct {
					Number int    `json:"number"`
					En     string `json:"en"`
				} `json:"month"`
			} `json:"hijri"`
		} `json:"date"`
	} `json:"data"`
}

// AladhanClient fetches prayer times from the AlAdhan API by city.
type AladhanClient struct {
	client  *http.Client
	baseURL string
	city    string
	country string
	method  int
}

func NewAladhanClient(city, country string, method int) *AladhanClient {
	return &AladhanClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: aladhanBaseURL,
		city:    city,
		country: country,
		method:  method,
	}
}

// Fetch retrieves today's timings and the Hijri date. AlAdhan reports 24-hour
// clock times.
func (a *AladhanClient) Fetch(ctx context.Context) (*FetchResult, error) {
	url := fmt.Sprintf("%s/v1/timingsByCity?city=%s&country=%s&method=%d",
		a.baseURL, a.city, a.country, a.method)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "minaret")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aladhan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aladhan returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read aladhan response: %w", err)
	}

	var parsed aladhanResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal aladhan response: %w", err)
	}
	if parsed.Code != http.StatusOK {
		return nil, fmt.Errorf("aladhan returned application code %d", parsed.Code)
	}

	t := parsed.Data.Timings
	result := &FetchResult{
		Times: map[model.Event]string{
			model.Fajr:    t.Fajr,
			model.Sunrise: t.Sunrise,
			model.Dhuhr:   t.Dhuhr,
			model.Asr:     t.Asr,
			model.Maghrib: t.Maghrib,
			model.Isha:    t.Isha,
		},
	}

	hijri := parsed.Data.Date.Hijri
	if day, err := strconv.Atoi(hijri.Day); err == nil {
		result.Hijri = model.HijriDate{
			Day:       day,
			Month:     hijri.Month.Number,
			MonthName: hijri.Month.En,
		}
	}

	return result, nil
}
