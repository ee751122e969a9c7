package rate

// Rates arrive as strings so a decimal comma can be normalized before
// parsing; validation happens in the service, never in the binding layer.
type CreateRateRequest struct {
	UserID        string `json:"userId" binding:"required"`
	EffectiveFrom string `json:"effective_from" binding:"required"`
	HourlyRate    string `json:"hourly_rate" binding:"required"`
}

type UpdateRateRequest struct {
	UserID        string `json:"userId" binding:"required"`
	EffectiveFrom string `json:"effective_from" binding:"required"`
	HourlyRate    string `json:"hourly_rate" binding:"required"`
}

type RateResponse struct {
	UserID        string `json:"user_id"`
	EffectiveFrom string `json:"effective_from"`
	HourlyRate    string `json:"hourly_rate"`
}

type CurrentRateResponse struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Avatar        string `json:"avatar,omitempty"`
	HourlyRate    string `json:"hourly_rate,omitempty"`
	EffectiveFrom string `json:"effective_from,omitempty"`
	Display       string `json:"display"`
}

// NewRateProposal pre-fills the creation form. HourlyRate stays empty on
// purpose so the operator always types the amount.
type NewRateProposal struct {
	UserID        string `json:"user_id"`
	EffectiveFrom string `json:"effective_from"`
	HourlyRate    string `json:"hourly_rate"`
}
