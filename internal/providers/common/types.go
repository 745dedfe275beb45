package common

// Response is one backend's answer to one query.
// Defined here to avoid import cycles between the provider registry and the
// per-backend packages.
type Response struct {
	Text         string
	Citations    []string // structured source URLs, when the backend exposes them
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// CostCalculator prices a completed call. Satisfied by services.CostService;
// declared here so provider packages do not import the service layer.
type CostCalculator interface {
	CalculateCost(provider, model string, inputTokens, outputTokens int, websearch bool) float64
}
