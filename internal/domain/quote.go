package domain

// RawQuote is one adapter-produced rate, already normalized to the price
// per a single unit. It lives only within one poll cycle; map keys carry
// the instrument code.
type RawQuote struct {
	Rate    float64
	Nominal int
	Source  string
}
