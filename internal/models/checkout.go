package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) String() string { return string(s) }

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

func (s PaymentStatus) String() string { return string(s) }

type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetbanking PaymentMethod = "netbanking"
	PaymentMethodCOD        PaymentMethod = "cod"
	PaymentMethodEMI        PaymentMethod = "emi"
	PaymentMethodFull       PaymentMethod = "full"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetbanking, PaymentMethodCOD, PaymentMethodEMI, PaymentMethodFull:
		return true
	}
	return false
}

// CheckoutItem is the price snapshot of one line at purchase time.
type CheckoutItem struct {
	ProductID  *primitive.ObjectID `bson:"productId,omitempty" json:"productId,omitempty"`
	PlanID     *primitive.ObjectID `bson:"planId,omitempty" json:"planId,omitempty"`
	Name       string              `bson:"name" json:"name"`
	UnitPrice  float64             `bson:"unitPrice" json:"unitPrice"`
	Quantity   int                 `bson:"quantity" json:"quantity"`
	TotalPrice float64             `bson:"totalPrice" json:"totalPrice"`
}

// EmiPayment is one append-only installment ledger entry.
type EmiPayment struct {
	MonthNumber int       `bson:"monthNumber" json:"monthNumber"`
	AmountPaid  float64   `bson:"amountPaid" json:"amountPaid"`
	PaidAt      time.Time `bson:"paidAt" json:"paidAt"`
}

// EmiPlan is present only on orders placed with PaymentMethodEMI.
type EmiPlan struct {
	Months          int          `bson:"months" json:"emiMonths"`
	UpfrontPayment  float64      `bson:"upfrontPayment" json:"upfrontPayment"`
	UpfrontPaid     bool         `bson:"upfrontPaid" json:"upfrontPaid"`
	RemainingAmount float64      `bson:"remainingAmount" json:"remainingAmount"`
	PerMonth        float64      `bson:"perMonth" json:"emiPerMonth"`
	Payments        []EmiPayment `bson:"payments" json:"emiPayments"`
}

// Checkout is the authoritative purchase record.
type Checkout struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	Items             []CheckoutItem     `bson:"items" json:"items"`
	Subtotal          float64            `bson:"subtotal" json:"subtotal"`
	Tax               float64            `bson:"tax" json:"tax"`
	Total             float64            `bson:"total" json:"total"`
	PaymentMethod     PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	ShippingAddressID string             `bson:"shippingAddressId" json:"shippingAddressId"`
	Status            OrderStatus        `bson:"status" json:"status"`
	PaymentStatus     PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	EMI               *EmiPlan           `bson:"emi,omitempty" json:"emi,omitempty"`
	PaymentSessionID  string             `bson:"paymentSessionId,omitempty" json:"paymentSessionId,omitempty"`
	Version           int64              `bson:"version" json:"-"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c *Checkout) IsEMI() bool {
	return c.PaymentMethod == PaymentMethodEMI && c.EMI != nil
}

// AmountDue is what the gateway should collect up front for this order.
func (c *Checkout) AmountDue() float64 {
	if c.IsEMI() {
		return c.EMI.UpfrontPayment
	}
	return c.Total
}
