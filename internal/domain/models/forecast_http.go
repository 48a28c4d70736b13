package models

// Requests for the forecast HTTP endpoints. Defined in domain for consistency and reuse.

type ForecastRequest struct {
	ItemID  string `json:"item_id" validate:"required"`
	StoreID string `json:"store_id" validate:"required"`
	Horizon *int   `json:"horizon" default:"28" validate:"omitempty,gte=0,lte=56"`
}

type HistoryRequest struct {
	ItemID  string `query:"item_id" json:"item_id" validate:"required"`
	StoreID string `query:"store_id" json:"store_id" validate:"required"`
	Days    int    `query:"days" json:"days" default:"90" validate:"gte=1,lte=1000"`
}

type BatchForecastRequest struct {
	Horizon *int   `json:"horizon" default:"28" validate:"omitempty,gte=1,lte=56"`
	StoreID string `json:"store_id" validate:"omitempty"`
}
