package domain

import "time"

// Region distinguishes domestic records from international ones.
type Region string

const (
	RegionDomestic      Region = "domestic"
	RegionInternational Region = "international"
)

// Customer is an audited customer record attached to a charter booking.
// Domestic records carry province/city, international records carry country.
type Customer struct {
	ID           int64     `json:"id"`
	OrderNo      string    `json:"orderNo"`
	CustomerName string    `json:"customerName"`
	Gender       string    `json:"gender"`
	ServiceName  string    `json:"serviceName"`
	Amount       float64   `json:"amount"`
	OrderTime    time.Time `json:"orderTime"`
	TouristCount int       `json:"touristCount"`
	TouristNames []string  `json:"touristNames"`
	PaymentTime  time.Time `json:"paymentTime"`
	Auditor      string    `json:"auditor"`
	AuditTime    time.Time `json:"auditTime"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Region       Region    `json:"region"`
	Country      string    `json:"country,omitempty"`
	Province     string    `json:"province,omitempty"`
	City         string    `json:"city,omitempty"`
}
