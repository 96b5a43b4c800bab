package main

import (
	"sync"
	"time"

	"pasartani/internal/domain/entity"
	"pasartani/pkg/errors"
)

type account struct {
	user     entity.User
	password string
}

type storedNotification struct {
	entity.Notification
	ownerID string
}

// backend is the in-memory marketplace state behind the dev REST surface.
type backend struct {
	mu            sync.Mutex
	accounts      map[string]*account
	users         map[string]entity.User
	products      map[int64]entity.Product
	notifications []*storedNotification
	messages      []entity.ChatMessage
	nextID        int64
}

func newBackend() *backend {
	b := &backend{
		accounts: make(map[string]*account),
		users:    make(map[string]entity.User),
		products: make(map[int64]entity.Product),
	}
	b.seed()
	return b
}

func (b *backend) seed() {
	now := time.Now()

	budi := entity.User{ID: "u-budi", Name: "Budi Santoso", Email: "budi@pasartani.id", CreatedAt: now}
	sari := entity.User{ID: "u-sari", Name: "Sari Lestari", Email: "sari@pasartani.id", CreatedAt: now}
	b.accounts[budi.Email] = &account{user: budi, password: "rahasia123"}
	b.accounts[sari.Email] = &account{user: sari, password: "rahasia123"}
	b.users[budi.ID] = budi
	b.users[sari.ID] = sari

	b.products[1] = entity.Product{
		ID: 1, SellerID: budi.ID, Name: "Cabai Rawit", Category: "sayur",
		Price: 45000, Quantity: 20, Unit: "kg", CreatedAt: now, UpdatedAt: now,
	}
	b.products[2] = entity.Product{
		ID: 2, SellerID: sari.ID, Name: "Bayam Segar", Category: "sayur",
		Price: 8000, Quantity: 50, Unit: "ikat", CreatedAt: now, UpdatedAt: now,
	}
	b.nextID = 100
}

func (b *backend) newID() int64 {
	b.nextID++
	return b.nextID
}

func (b *backend) authenticate(email, password string) (entity.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[email]
	if !ok || acc.password != password {
		return entity.User{}, errors.Unauthorized("invalid email or password", nil)
	}
	return acc.user, nil
}

func (b *backend) user(id string) (entity.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[id]
	if !ok {
		return entity.User{}, errors.NotFound("User", nil)
	}
	return u, nil
}

func (b *backend) createProduct(sellerID string, p entity.Product) entity.Product {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	p.ID = b.newID()
	p.SellerID = sellerID
	p.CreatedAt = now
	p.UpdatedAt = now
	b.products[p.ID] = p
	return p
}

func (b *backend) updateProduct(id int64, sellerID string, p entity.Product) (entity.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, ok := b.products[id]
	if !ok {
		return entity.Product{}, errors.NotFound("Product", nil)
	}
	if existing.SellerID != sellerID {
		return entity.Product{}, errors.Unauthorized("not the product owner", nil)
	}
	p.ID = id
	p.SellerID = sellerID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	b.products[id] = p
	return p, nil
}

// createRequest files a product request from a buyer and returns the
// notification addressed to the seller.
func (b *backend) createRequest(buyerID string, productID int64, quantity int, price float64) (entity.Notification, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	product, ok := b.products[productID]
	if !ok {
		return entity.Notification{}, "", errors.NotFound("Product", nil)
	}
	if product.SellerID == buyerID {
		return entity.Notification{}, "", errors.BadRequest("cannot request your own product", nil)
	}

	n := entity.Notification{
		ID:          b.newID(),
		Role:        entity.RoleSeller,
		SenderID:    buyerID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		Price:       price,
		Status:      entity.RequestPending,
		CreatedAt:   time.Now(),
	}
	b.notifications = append(b.notifications, &storedNotification{Notification: n, ownerID: product.SellerID})
	return n, product.SellerID, nil
}

// respond decides a pending request and returns the counter-notification
// addressed back to the requester.
func (b *backend) respond(ownerID string, id int64, status entity.RequestStatus) (entity.Notification, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sn := range b.notifications {
		if sn.ID != id {
			continue
		}
		if sn.ownerID != ownerID {
			return entity.Notification{}, "", errors.Unauthorized("not the notification owner", nil)
		}
		if sn.Terminal() {
			return entity.Notification{}, "", errors.Conflict("request already decided")
		}
		sn.Status = status

		reply := entity.Notification{
			ID:          b.newID(),
			Role:        entity.RoleBuyer,
			SenderID:    ownerID,
			ProductID:   sn.ProductID,
			ProductName: sn.ProductName,
			Quantity:    sn.Quantity,
			Price:       sn.Price,
			Status:      status,
			CreatedAt:   time.Now(),
		}
		b.notifications = append(b.notifications, &storedNotification{Notification: reply, ownerID: sn.SenderID})
		return reply, sn.SenderID, nil
	}
	return entity.Notification{}, "", errors.NotFound("Notification", nil)
}

func (b *backend) listNotifications(ownerID string, role entity.NotificationRole) []entity.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]entity.Notification, 0)
	for _, sn := range b.notifications {
		if sn.ownerID == ownerID && (role == "" || sn.Role == role) {
			out = append(out, sn.Notification)
		}
	}
	return out
}

func (b *backend) addMessage(senderID, receiverID string, productID int64, content string) (entity.ChatMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.users[receiverID]; !ok {
		return entity.ChatMessage{}, errors.NotFound("Receiver", nil)
	}
	msg := entity.ChatMessage{
		ID:         b.newID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		ProductID:  productID,
		Content:    content,
		Timestamp:  time.Now(),
	}
	b.messages = append(b.messages, msg)
	return msg, nil
}

func (b *backend) history(userID, partnerID string) []entity.ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]entity.ChatMessage, 0)
	for _, m := range b.messages {
		if (m.SenderID == userID && m.ReceiverID == partnerID) ||
			(m.SenderID == partnerID && m.ReceiverID == userID) {
			out = append(out, m)
		}
	}
	return out
}
