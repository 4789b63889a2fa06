package model

// SettlementPriceRecord is one interval row from the ERCOT settlement point
// price report. DeliveryDate is a calendar date in "2006-01-02" form.
type SettlementPriceRecord struct {
	DeliveryDate        string  `json:"deliveryDate"`
	DeliveryHour        int     `json:"deliveryHour"`     // 1..24
	DeliveryInterval    int     `json:"deliveryInterval"` // 1..4
	SettlementPoint     string  `json:"settlementPoint"`
	SettlementPointType string  `json:"settlementPointType"`
	Price               float64 `json:"settlementPointPrice"` // $/MWh
	DSTFlag             bool    `json:"DSTFlag"`
}

// RangeQuery selects records for an inclusive delivery date range.
type RangeQuery struct {
	DeliveryDateFrom string
	DeliveryDateTo   string
	SettlementPoint  string
}

// PageMeta mirrors the "_meta" block of a data response.
type PageMeta struct {
	TotalRecords int  `json:"totalRecords"`
	TotalPages   *int `json:"totalPages,omitempty"`
	CurrentPage  int  `json:"currentPage"`
}

// Page is one decoded page of records.
type Page struct {
	Records []SettlementPriceRecord
	Meta    PageMeta
}
