package models

import "time"

// PaymentLineItem is one purchasable unit sent to settlement.
type PaymentLineItem struct {
	ItemCode          string `json:"item_code"`
	ProductType       string `json:"product_type"`
	ItemName          string `json:"item_name"`
	ItemPrice         int64  `json:"item_price"`
	Tax               int64  `json:"tax"`
	TokenConfirmation string `json:"token_confirmation"`
}

// PurchasePlan is the resolved form of a catalog offer. It is built once per
// trigger and discarded after settlement.
type PurchasePlan struct {
	SelectedName         string
	Items                []PaymentLineItem
	PaymentFor           string
	AskOverwrite         bool
	OverwriteAmount      int64
	TokenConfirmationIdx int
	AmountIdx            int
}

// TotalPrice sums the price of every line item.
func (p *PurchasePlan) TotalPrice() int64 {
	if p == nil {
		return 0
	}
	var total int64
	for _, it := range p.Items {
		total += it.ItemPrice + it.Tax
	}
	return total
}

// PurchaseStatus describes what happened to a trigger.
type PurchaseStatus string

const (
	PurchaseSubmitted     PurchaseStatus = "SUBMITTED"
	PurchaseResolveFailed PurchaseStatus = "RESOLVE_FAILED"
	PurchaseSettleFailed  PurchaseStatus = "SETTLE_FAILED"
)

// PurchaseRecord is a persisted trigger attempt (DB model).
type PurchaseRecord struct {
	Timestamp  time.Time
	RunID      string
	Mode       string
	OfferName  string
	ItemCodes  string
	Status     PurchaseStatus
	Error      string
	ID         int64
	TotalPrice int64
	ItemCount  int
}
