package indicator

// Kind classifies where an indicator is drawn: overlays share the price
// pane, oscillators get their own stacked pane.
type Kind string

const (
	KindOverlay    Kind = "overlay"
	KindOscillator Kind = "oscillator"
)

// Definition describes one supported indicator
type Definition struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Color   string `json:"color"`
	MinBars int    `json:"min_bars"`
}

// definitions is the catalog of indicators the chart can draw. IDs are the
// stable keys used on the wire and as series keys in ChartData.
var definitions = map[string]Definition{
	"sma20":    {ID: "sma20", Name: "SMA (20)", Kind: KindOverlay, Color: "#2962ff", MinBars: 20},
	"sma50":    {ID: "sma50", Name: "SMA (50)", Kind: KindOverlay, Color: "#ff6d00", MinBars: 50},
	"sma200":   {ID: "sma200", Name: "SMA (200)", Kind: KindOverlay, Color: "#aa00ff", MinBars: 200},
	"ema12":    {ID: "ema12", Name: "EMA (12)", Kind: KindOverlay, Color: "#00897b", MinBars: 25},
	"ema26":    {ID: "ema26", Name: "EMA (26)", Kind: KindOverlay, Color: "#6d4c41", MinBars: 50},
	"bb20":     {ID: "bb20", Name: "Bollinger Bands (20,2)", Kind: KindOverlay, Color: "#90a4ae", MinBars: 20},
	"rsi14":    {ID: "rsi14", Name: "RSI (14)", Kind: KindOscillator, Color: "#7b1fa2", MinBars: 15},
	"macd":     {ID: "macd", Name: "MACD (12,26,9)", Kind: KindOscillator, Color: "#1565c0", MinBars: 35},
	"atr14":    {ID: "atr14", Name: "ATR (14)", Kind: KindOscillator, Color: "#ef6c00", MinBars: 15},
	"stoch":    {ID: "stoch", Name: "Stochastic (14,3)", Kind: KindOscillator, Color: "#c62828", MinBars: 17},
	"obv":      {ID: "obv", Name: "On Balance Volume", Kind: KindOscillator, Color: "#2e7d32", MinBars: 2},
	"volsma20": {ID: "volsma20", Name: "Volume SMA (20)", Kind: KindOscillator, Color: "#455a64", MinBars: 20},
}

// Indicator sets mirroring the presets the frontend offers
var (
	DefaultSet    = []string{"sma20", "sma50", "rsi14", "macd", "volsma20"}
	ChartBasic    = []string{"sma20", "sma50"}
	ChartAdvanced = []string{"sma20", "sma50", "ema12", "ema26", "macd", "rsi14", "bb20"}
	ChartFull     = []string{"sma20", "sma50", "sma200", "ema12", "ema26", "macd", "rsi14", "bb20", "atr14", "obv", "volsma20"}
)

// Lookup returns the definition for an indicator id
func Lookup(id string) (Definition, bool) {
	def, ok := definitions[id]
	return def, ok
}

// IsOscillator reports whether the id names a known oscillator
func IsOscillator(id string) bool {
	def, ok := definitions[id]
	return ok && def.Kind == KindOscillator
}

// catalogOrder fixes the listing order for the indicator catalog endpoint
var catalogOrder = []string{
	"sma20", "sma50", "sma200", "ema12", "ema26", "bb20",
	"rsi14", "macd", "stoch", "atr14", "obv", "volsma20",
}

// All returns every known definition in catalog order
func All() []Definition {
	out := make([]Definition, 0, len(catalogOrder))
	for _, id := range catalogOrder {
		out = append(out, definitions[id])
	}
	return out
}
