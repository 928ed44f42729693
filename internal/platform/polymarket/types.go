package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// APIMarket represents a market as returned by the Gamma API. Numeric fields
// and the outcomes/outcomePrices arrays arrive as strings.
type APIMarket struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	ConditionID   string     `json:"conditionId"`
	Question      string     `json:"question"`
	Description   string     `json:"description"`
	Outcomes      string     `json:"outcomes"`      // JSON-encoded string array
	OutcomePrices string     `json:"outcomePrices"` // JSON-encoded string array
	Volume        string     `json:"volume"`
	Liquidity     string     `json:"liquidity"`
	StartDate     string     `json:"startDate"`
	EndDate       string     `json:"endDate"`
	Active        bool       `json:"active"`
	Closed        bool       `json:"closed"`
	Tokens        []APIToken `json:"tokens"`
}

// APIToken is one outcome token of a market, with its resolution flag.
type APIToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// OutcomeList decodes the market's outcomes array.
func (m APIMarket) OutcomeList() ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(m.Outcomes), &out); err != nil {
		return nil, fmt.Errorf("polymarket: decode outcomes %q: %w", m.Outcomes, err)
	}
	return out, nil
}

// PriceList decodes the market's outcomePrices array. Entries are JSON
// strings holding decimal probabilities.
func (m APIMarket) PriceList() ([]float64, error) {
	var raw []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &raw); err != nil {
		return nil, fmt.Errorf("polymarket: decode outcomePrices %q: %w", m.OutcomePrices, err)
	}
	out := make([]float64, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("polymarket: parse outcome price %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// YesPrice returns the price of the outcome matching yesLabel
// (case-insensitive). Prices must be one-to-one with outcomes.
func (m APIMarket) YesPrice(yesLabel string) (float64, error) {
	outcomes, err := m.OutcomeList()
	if err != nil {
		return 0, err
	}
	prices, err := m.PriceList()
	if err != nil {
		return 0, err
	}
	if len(prices) != len(outcomes) {
		return 0, fmt.Errorf("polymarket: %d prices for %d outcomes on %s", len(prices), len(outcomes), m.Slug)
	}
	target := strings.ToLower(strings.TrimSpace(yesLabel))
	for i, o := range outcomes {
		if strings.ToLower(strings.TrimSpace(o)) == target {
			return prices[i], nil
		}
	}
	return 0, fmt.Errorf("polymarket: outcome %q not in %v on %s", yesLabel, outcomes, m.Slug)
}

// VolumeFloat returns the market volume, 0 when absent or unparseable.
func (m APIMarket) VolumeFloat() float64 {
	v, err := strconv.ParseFloat(m.Volume, 64)
	if err != nil {
		return 0
	}
	return v
}

// LiquidityFloat returns the market liquidity, 0 when absent or unparseable.
func (m APIMarket) LiquidityFloat() float64 {
	v, err := strconv.ParseFloat(m.Liquidity, 64)
	if err != nil {
		return 0
	}
	return v
}
