package universe

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/platform/polymarket"
)

// City is a tradable location: a grid point plus the aliases markets use to
// name it in question text.
type City struct {
	Label    string
	Name     string
	Aliases  []string
	Lat      float64
	Lon      float64
	Timezone string
}

// Location converts the city to its event form.
func (c City) Location() domain.Location {
	return domain.Location{Label: c.Label, Lat: c.Lat, Lon: c.Lon, Timezone: c.Timezone}
}

// Candidate is a venue market that parsed cleanly into a weather event.
type Candidate struct {
	Slug        string
	ConditionID string
	Question    string
	Event       domain.EventSpec
	YesLabel    string
	Volume      float64
	Liquidity   float64
}

// WeatherMarket converts the candidate to its storage form.
func (c Candidate) WeatherMarket(seenAt time.Time) domain.WeatherMarket {
	return domain.WeatherMarket{
		Slug:           c.Slug,
		ConditionID:    c.ConditionID,
		Question:       c.Question,
		Variable:       c.Event.Variable,
		CityLabel:      c.Event.Location.Label,
		EventDate:      c.Event.Date,
		ThresholdValue: c.Event.Threshold,
		ThresholdUnit:  c.Event.Unit,
		YesLabel:       c.YesLabel,
		Volume:         c.Volume,
		Liquidity:      c.Liquidity,
		LastSeenAt:     seenAt,
	}
}

// Options controls market selection.
type Options struct {
	Cities        []City
	MinVolumeUSD  float64
	WindowDaysMin int // earliest event date, days from today
	WindowDaysMax int // latest event date, days from today
	MaxMarkets    int
	Variables     []domain.Variable // variables the forecast side can price
	YesLabel      string            // defaults to "Yes"
	Now           func() time.Time  // defaults to time.Now
}

var (
	monthPattern = `(Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|` +
		`Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`
	dateRe   = regexp.MustCompile(`(?i)` + monthPattern + `\s+(\d{1,2})(?:,?\s*(\d{4}))?`)
	tempRe   = regexp.MustCompile(`(?i)(-?\d{2,3})\s*°?\s*F`)
	precipRe = regexp.MustCompile(`(?i)(?:at least|>=|\x{2265}|over|more than|greater than)\s*` +
		`(\d+(?:\.\d+)?)\s*(?:(?:inches|inch|in\.|in)\b|")`)
)

// Select filters raw venue markets down to the candidates worth forecasting:
// binary YES/NO weather questions naming a known city, with a parseable
// threshold, an event date inside the trading window, and enough volume.
// At most opts.MaxMarkets candidates are returned, in input order.
func Select(markets []polymarket.APIMarket, opts Options) []Candidate {
	yesLabel := opts.YesLabel
	if yesLabel == "" {
		yesLabel = polymarket.DefaultYesLabel
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	today := dateOnly(now().UTC())

	var selected []Candidate
	for i := range markets {
		if opts.MaxMarkets > 0 && len(selected) >= opts.MaxMarkets {
			break
		}
		m := &markets[i]
		if m.Closed {
			continue
		}

		question := strings.TrimSpace(m.Question)
		if question == "" {
			continue
		}

		if !hasBinaryYesOutcome(m, yesLabel) {
			continue
		}

		if m.VolumeFloat() < opts.MinVolumeUSD {
			continue
		}

		city, ok := matchCity(question, opts.Cities)
		if !ok {
			continue
		}

		eventDate, ok := inferEventDate(question, m.EndDate, today)
		if !ok {
			continue
		}
		delta := int(eventDate.Sub(today).Hours() / 24)
		if delta < opts.WindowDaysMin || delta > opts.WindowDaysMax {
			continue
		}

		variable, threshold, unit, ok := parseThreshold(question)
		if !ok || !variableSupported(variable, opts.Variables) {
			continue
		}

		if m.Slug == "" {
			continue
		}

		selected = append(selected, Candidate{
			Slug:        m.Slug,
			ConditionID: m.ConditionID,
			Question:    question,
			Event: domain.EventSpec{
				Location:  city.Location(),
				Variable:  variable,
				Operator:  domain.OperatorGTE,
				Threshold: threshold,
				Unit:      unit,
				Date:      eventDate,
			},
			YesLabel:  yesLabel,
			Volume:    m.VolumeFloat(),
			Liquidity: m.LiquidityFloat(),
		})
	}
	return selected
}

func hasBinaryYesOutcome(m *polymarket.APIMarket, yesLabel string) bool {
	outcomes, err := m.OutcomeList()
	if err != nil || len(outcomes) != 2 {
		return false
	}
	for _, o := range outcomes {
		if strings.EqualFold(strings.TrimSpace(o), yesLabel) {
			return true
		}
	}
	return false
}

func matchCity(question string, cities []City) (City, bool) {
	for _, city := range cities {
		for _, alias := range city.Aliases {
			if alias == "" {
				continue
			}
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b`)
			if err != nil {
				continue
			}
			if re.MatchString(question) {
				return city, true
			}
		}
	}
	return City{}, false
}

// inferEventDate reads a date out of the question text, falling back to the
// market's end date. A question date without a year that already passed is
// assumed to mean next year.
func inferEventDate(question, endDate string, today time.Time) (time.Time, bool) {
	if m := dateRe.FindStringSubmatch(question); m != nil {
		parsed, ok := parseMonthDay(m[1], m[2], m[3], today)
		if ok {
			return parsed, true
		}
	}
	if endDate != "" {
		t, err := time.Parse(time.RFC3339, endDate)
		if err == nil {
			return dateOnly(t.UTC()), true
		}
	}
	return time.Time{}, false
}

func parseMonthDay(monthName, dayStr, yearStr string, today time.Time) (time.Time, bool) {
	year := today.Year()
	explicitYear := yearStr != ""
	if explicitYear {
		y, err := time.Parse("2006", yearStr)
		if err != nil {
			return time.Time{}, false
		}
		year = y.Year()
	}
	input := monthName + " " + dayStr + " " + strconv.Itoa(year)
	var parsed time.Time
	var err error
	for _, layout := range []string{"Jan 2 2006", "January 2 2006"} {
		parsed, err = time.Parse(layout, input)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, false
	}
	if !explicitYear && parsed.Before(today) {
		parsed = parsed.AddDate(1, 0, 0)
	}
	return parsed, true
}

// parseThreshold extracts the event variable and threshold. Temperature wins
// when both patterns match, mirroring how these questions are phrased.
func parseThreshold(question string) (domain.Variable, float64, string, bool) {
	if m := tempRe.FindStringSubmatch(question); m != nil {
		v, ok := parseFloat(m[1])
		if ok {
			return domain.VariableTempMax, v, "F", true
		}
	}
	if m := precipRe.FindStringSubmatch(question); m != nil {
		v, ok := parseFloat(m[1])
		if ok {
			return domain.VariablePrecipTotal, v, "in", true
		}
	}
	return "", 0, "", false
}

func variableSupported(v domain.Variable, supported []domain.Variable) bool {
	for _, s := range supported {
		if s == v {
			return true
		}
	}
	return false
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
