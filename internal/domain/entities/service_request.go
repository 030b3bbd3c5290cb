package entities

import "time"

// ServiceRequestStatus is the booking lifecycle as owned by the
// service-request store. The payments core only reads it to decide
// payability; it never drives these transitions.

type ServiceRequestStatus string

const (
	ServiceRequestStatusPending    ServiceRequestStatus = "pending"
	ServiceRequestStatusAccepted   ServiceRequestStatus = "accepted"
	ServiceRequestStatusInProgress ServiceRequestStatus = "in_progress"
	ServiceRequestStatusCompleted  ServiceRequestStatus = "completed"
	ServiceRequestStatusCancelled  ServiceRequestStatus = "cancelled"
)

// BookingPaymentState is the only field of a service request the payments
// core is allowed to write.

type BookingPaymentState string

const (
	BookingUnpaid   BookingPaymentState = "unpaid"
	BookingPaid     BookingPaymentState = "paid"
	BookingRefunded BookingPaymentState = "refunded"
)

// ServiceRequest is the booking snapshot the payments core works against.
//
// Storage model (DynamoDB):
//   - PK: id
//
// Amount is the agreed service price in integer minor units; it is the
// source of truth for how much a payment charges.

type ServiceRequest struct {
	ID             string               `json:"id"`
	ClientID       string               `json:"client_id"`
	ProfessionalID string               `json:"professional_id"`
	Status         ServiceRequestStatus `json:"status"`
	PaymentStatus  BookingPaymentState  `json:"payment_status"`
	Amount         int64                `json:"amount"`
	Currency       string               `json:"currency"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Payable reports whether the booking is in a state that accepts a payment.
// A refunded booking stays closed; re-collection needs a fresh booking.
func (s ServiceRequest) Payable() bool {
	if s.PaymentStatus == BookingPaid || s.PaymentStatus == BookingRefunded {
		return false
	}
	switch s.Status {
	case ServiceRequestStatusAccepted, ServiceRequestStatusInProgress, ServiceRequestStatusCompleted:
		return true
	}
	return false
}
