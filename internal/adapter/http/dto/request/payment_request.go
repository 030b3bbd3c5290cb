package request

// PaymentCreateRequest is the payload for charging a booking. Currency is
// optional and defaults to COP.
type PaymentCreateRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Method    string `json:"method" binding:"required"`
	Currency  string `json:"currency"`
}

// RefundRequest asks for a refund of a completed payment. A zero or absent
// amount refunds the full charged total.
type RefundRequest struct {
	Reason string `json:"reason" binding:"required"`
	Amount int64  `json:"amount" binding:"omitempty,min=1"`
}
