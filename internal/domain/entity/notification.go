package entity

import "time"

type NotificationRole string

const (
	RoleBuyer  NotificationRole = "BUYER"
	RoleSeller NotificationRole = "SELLER"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
)

// Notification is a product-request event pushed to one side of a trade.
// Role tags which side originated it. Identity is the server-assigned ID
// and never changes; status only moves PENDING -> ACCEPTED|REJECTED.
type Notification struct {
	ID          int64            `json:"id"`
	Role        NotificationRole `json:"role"`
	SenderID    string           `json:"senderId,omitempty"`
	ProductID   int64            `json:"productId"`
	ProductName string           `json:"productName,omitempty"`
	Quantity    int              `json:"quantity"`
	Price       float64          `json:"price"`
	Status      RequestStatus    `json:"status"`
	IsRead      bool             `json:"isRead"`
	IsClear     bool             `json:"isClear"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Terminal reports whether the request has been decided.
func (n *Notification) Terminal() bool {
	return n.Status == RequestAccepted || n.Status == RequestRejected
}
