package models

// Query and body shapes of the HTTP API.

type CVDRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	Window string `query:"window" json:"window" default:"5m" validate:"duration"`
}

type WatchlistRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=200"`
}

type HologramRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,symbol"`
}

type HaltRequest struct {
	Halted *bool  `json:"halted" validate:"required"`
	Reason string `json:"reason" default:"operator" validate:"max=256"`
}
