package tradier

import (
	"bytes"

	"github.com/xhhuango/json"
)

// List decodes a JSON array, a single value or null. Tradier collapses
// one-element arrays into the bare element.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case data[0] == '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*l = List[T]{item}
	return nil
}

type QuoteHistory struct {
	History struct {
		Day List[HistoryDay] `json:"day"`
	} `json:"history"`
}

type HistoryDay struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int     `json:"volume"`
}

type OptionExpirations struct {
	Expirations struct {
		Expiration List[Expiration] `json:"expiration"`
	} `json:"expirations"`
}

type Expiration struct {
	Date           string `json:"date"`
	ContractSize   int    `json:"contract_size"`
	ExpirationType string `json:"expiration_type"`
	Strikes        struct {
		Strike List[float64] `json:"strike"`
	} `json:"strikes"`
}

// Option is one contract row of a chain. Bid, Ask and the implied
// volatilities are pointers because Tradier sends null for untraded strikes.
type Option struct {
	Symbol         string   `json:"symbol"`
	Description    string   `json:"description"`
	Underlying     string   `json:"underlying"`
	Strike         float64  `json:"strike"`
	Bid            *float64 `json:"bid"`
	Ask            *float64 `json:"ask"`
	Volume         int      `json:"volume"`
	OpenInterest   int      `json:"open_interest"`
	ContractSize   int      `json:"contract_size"`
	ExpirationDate string   `json:"expiration_date"`
	ExpirationType string   `json:"expiration_type"`
	OptionType     string   `json:"option_type"`
	RootSymbol     string   `json:"root_symbol"`
	Greeks         *Greeks  `json:"greeks"`
}

type Greeks struct {
	Delta     float64  `json:"delta"`
	Gamma     float64  `json:"gamma"`
	Theta     float64  `json:"theta"`
	Vega      float64  `json:"vega"`
	Rho       float64  `json:"rho"`
	BidIv     *float64 `json:"bid_iv"`
	MidIv     *float64 `json:"mid_iv"`
	AskIv     *float64 `json:"ask_iv"`
	SmvVol    *float64 `json:"smv_vol"`
	UpdatedAt string   `json:"updated_at"`
}

type OptionChain struct {
	Options        OptionList `json:"options"`
	ExpirationDate string     `json:"expiration_date"`
}

type OptionList struct {
	Option List[Option] `json:"option"`
}
