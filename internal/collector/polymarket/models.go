package polymarket

// gammaMarket is a raw market record from the Polymarket Gamma API. Numeric
// fields arrive as strings; prices are positional over the outcomes list.
type gammaMarket struct {
	ConditionID   string   `json:"conditionId"`
	Question      string   `json:"question"`
	Description   string   `json:"description"`
	OutcomePrices []string `json:"outcomePrices"`
	Outcomes      []string `json:"outcomes"`
	Volume        *string  `json:"volume"`
	Volume24hr    *string  `json:"volume24hr"`
	Liquidity     *string  `json:"liquidity"`
	Active        bool     `json:"active"`
	EndDate       string   `json:"endDate"`
	Category      string   `json:"category"`
}
