package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nvoronin/card-ledger/internal/models"
)

// MemoryStore implements Store entirely in memory. A single mutex serializes
// every operation, so InTx degenerates to one critical section with a
// snapshot taken on entry and restored if fn fails. Intended for tests and
// local runs without Postgres.
type MemoryStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

type memData struct {
	nextCardID     int64
	nextTransferID int64
	nextRequestID  int64
	nextHistoryID  int64
	nextUserID     int64

	cards     map[int64]models.Card
	transfers map[int64]models.Transfer
	requests  map[int64]models.CardBlockRequest
	history   map[int64]models.CardOperationHistory
	users     map[int64]models.User
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		data: &memData{
			cards:     make(map[int64]models.Card),
			transfers: make(map[int64]models.Transfer),
			requests:  make(map[int64]models.CardBlockRequest),
			history:   make(map[int64]models.CardOperationHistory),
			users:     make(map[int64]models.User),
		},
	}
}

func (d *memData) clone() *memData {
	cp := &memData{
		nextCardID:     d.nextCardID,
		nextTransferID: d.nextTransferID,
		nextRequestID:  d.nextRequestID,
		nextHistoryID:  d.nextHistoryID,
		nextUserID:     d.nextUserID,
		cards:          make(map[int64]models.Card, len(d.cards)),
		transfers:      make(map[int64]models.Transfer, len(d.transfers)),
		requests:       make(map[int64]models.CardBlockRequest, len(d.requests)),
		history:        make(map[int64]models.CardOperationHistory, len(d.history)),
		users:          make(map[int64]models.User, len(d.users)),
	}
	for id, v := range d.cards {
		cp.cards[id] = v
	}
	for id, v := range d.transfers {
		cp.transfers[id] = v
	}
	for id, v := range d.requests {
		cp.requests[id] = v
	}
	for id, v := range d.history {
		cp.history[id] = v
	}
	for id, v := range d.users {
		cp.users[id] = v
	}
	return cp
}

// run executes fn under the store mutex unless already inside a transaction.
func (m *MemoryStore) run(fn func(d *memData) error) error {
	if !m.inTx {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	return fn(m.data)
}

func (m *MemoryStore) Cards() CardStore                 { return &memCardStore{m} }
func (m *MemoryStore) Transfers() TransferStore         { return &memTransferStore{m} }
func (m *MemoryStore) BlockRequests() BlockRequestStore { return &memBlockRequestStore{m} }
func (m *MemoryStore) History() HistoryStore            { return &memHistoryStore{m} }
func (m *MemoryStore) Users() UserStore                 { return &memUserStore{m} }

// InTx runs fn in a critical section; on error the pre-transaction state is
// restored so partial mutations are never observable. Nested calls join the
// enclosing critical section.
func (m *MemoryStore) InTx(ctx context.Context, fn func(Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.data.clone()
	tx := &MemoryStore{mu: m.mu, data: m.data, inTx: true}
	if err := fn(tx); err != nil {
		*m.data = *snapshot
		return err
	}
	return nil
}

func paginate[T any](items []T, page models.PageRequest) *models.Page[T] {
	total := int64(len(items))
	start := page.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return models.NewPage(items[start:end], page, total)
}

// --- cards ---

type memCardStore struct {
	m *MemoryStore
}

func (r *memCardStore) Create(ctx context.Context, card *models.Card) error {
	return r.m.run(func(d *memData) error {
		for _, existing := range d.cards {
			if existing.EncryptedNumber == card.EncryptedNumber {
				return models.ErrDuplicateCard
			}
		}
		d.nextCardID++
		card.ID = d.nextCardID
		now := time.Now()
		card.CreatedAt = now
		card.UpdatedAt = now
		d.cards[card.ID] = *card
		return nil
	})
}

func (r *memCardStore) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	var card models.Card
	err := r.m.run(func(d *memData) error {
		c, ok := d.cards[id]
		if !ok {
			return models.ErrCardNotFound
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *memCardStore) FindByIDForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	// The store mutex already serializes transactions; a plain read suffices.
	return r.FindByID(ctx, id)
}

func (r *memCardStore) FindByUser(ctx context.Context, userID int64, page models.PageRequest) (*models.Page[models.Card], error) {
	return r.findPage(page, func(c models.Card) bool { return c.UserID == userID })
}

func (r *memCardStore) FindAll(ctx context.Context, page models.PageRequest) (*models.Page[models.Card], error) {
	return r.findPage(page, func(models.Card) bool { return true })
}

func (r *memCardStore) findPage(page models.PageRequest, match func(models.Card) bool) (*models.Page[models.Card], error) {
	var cards []models.Card
	err := r.m.run(func(d *memData) error {
		for _, c := range d.cards {
			if match(c) {
				cards = append(cards, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return paginate(cards, page), nil
}

func (r *memCardStore) FindExpiredActive(ctx context.Context, asOf time.Time) ([]models.Card, error) {
	var cards []models.Card
	err := r.m.run(func(d *memData) error {
		for _, c := range d.cards {
			if c.Status == models.CardStatusActive && c.ExpiryDate.Before(asOf) {
				cards = append(cards, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, nil
}

func (r *memCardStore) Save(ctx context.Context, card *models.Card) error {
	return r.m.run(func(d *memData) error {
		if _, ok := d.cards[card.ID]; !ok {
			return models.ErrCardNotFound
		}
		card.UpdatedAt = time.Now()
		d.cards[card.ID] = *card
		return nil
	})
}

func (r *memCardStore) DeleteByID(ctx context.Context, id int64) error {
	return r.m.run(func(d *memData) error {
		if _, ok := d.cards[id]; !ok {
			return models.ErrCardNotFound
		}
		delete(d.cards, id)
		return nil
	})
}

// --- transfers ---

type memTransferStore struct {
	m *MemoryStore
}

func (r *memTransferStore) Create(ctx context.Context, transfer *models.Transfer) error {
	return r.m.run(func(d *memData) error {
		d.nextTransferID++
		transfer.ID = d.nextTransferID
		d.transfers[transfer.ID] = *transfer
		return nil
	})
}

func (r *memTransferStore) FindByFromCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.Transfer], error) {
	return r.findPage(page, func(t models.Transfer) bool { return t.FromCardID == cardID })
}

func (r *memTransferStore) FindByToCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.Transfer], error) {
	return r.findPage(page, func(t models.Transfer) bool { return t.ToCardID == cardID })
}

func (r *memTransferStore) findPage(page models.PageRequest, match func(models.Transfer) bool) (*models.Page[models.Transfer], error) {
	var transfers []models.Transfer
	err := r.m.run(func(d *memData) error {
		for _, t := range d.transfers {
			if match(t) {
				transfers = append(transfers, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(transfers, func(i, j int) bool {
		if !transfers[i].Timestamp.Equal(transfers[j].Timestamp) {
			return transfers[i].Timestamp.After(transfers[j].Timestamp)
		}
		return transfers[i].ID > transfers[j].ID
	})
	return paginate(transfers, page), nil
}

// --- block requests ---

type memBlockRequestStore struct {
	m *MemoryStore
}

func (r *memBlockRequestStore) Create(ctx context.Context, request *models.CardBlockRequest) error {
	return r.m.run(func(d *memData) error {
		d.nextRequestID++
		request.ID = d.nextRequestID
		d.requests[request.ID] = *request
		return nil
	})
}

func (r *memBlockRequestStore) FindByID(ctx context.Context, id int64) (*models.CardBlockRequest, error) {
	var req models.CardBlockRequest
	err := r.m.run(func(d *memData) error {
		stored, ok := d.requests[id]
		if !ok {
			return models.ErrRequestNotFound
		}
		req = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *memBlockRequestStore) FindByIDForUpdate(ctx context.Context, id int64) (*models.CardBlockRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *memBlockRequestStore) FindByRequester(ctx context.Context, userID int64, page models.PageRequest) (*models.Page[models.CardBlockRequest], error) {
	return r.findPage(page, func(req models.CardBlockRequest) bool { return req.RequesterID == userID })
}

func (r *memBlockRequestStore) FindByStatus(ctx context.Context, status models.BlockRequestStatus, page models.PageRequest) (*models.Page[models.CardBlockRequest], error) {
	return r.findPage(page, func(req models.CardBlockRequest) bool { return req.Status == status })
}

func (r *memBlockRequestStore) FindAll(ctx context.Context, page models.PageRequest) (*models.Page[models.CardBlockRequest], error) {
	return r.findPage(page, func(models.CardBlockRequest) bool { return true })
}

func (r *memBlockRequestStore) findPage(page models.PageRequest, match func(models.CardBlockRequest) bool) (*models.Page[models.CardBlockRequest], error) {
	var requests []models.CardBlockRequest
	err := r.m.run(func(d *memData) error {
		for _, req := range d.requests {
			if match(req) {
				requests = append(requests, req)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.After(requests[j].CreatedAt)
		}
		return requests[i].ID > requests[j].ID
	})
	return paginate(requests, page), nil
}

func (r *memBlockRequestStore) Save(ctx context.Context, request *models.CardBlockRequest) error {
	return r.m.run(func(d *memData) error {
		if _, ok := d.requests[request.ID]; !ok {
			return models.ErrRequestNotFound
		}
		d.requests[request.ID] = *request
		return nil
	})
}

// --- operation history ---

type memHistoryStore struct {
	m *MemoryStore
}

func (r *memHistoryStore) Create(ctx context.Context, record *models.CardOperationHistory) error {
	return r.m.run(func(d *memData) error {
		d.nextHistoryID++
		record.ID = d.nextHistoryID
		d.history[record.ID] = *record
		return nil
	})
}

func (r *memHistoryStore) FindByCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.CardOperationHistory], error) {
	return r.findPage(page, func(rec models.CardOperationHistory) bool { return rec.CardID == cardID })
}

func (r *memHistoryStore) FindByCardAndType(ctx context.Context, cardID int64, opType models.OperationType, page models.PageRequest) (*models.Page[models.CardOperationHistory], error) {
	return r.findPage(page, func(rec models.CardOperationHistory) bool {
		return rec.CardID == cardID && rec.OperationType == opType
	})
}

func (r *memHistoryStore) CountByCard(ctx context.Context, cardID int64) (int64, error) {
	var total int64
	err := r.m.run(func(d *memData) error {
		for _, rec := range d.history {
			if rec.CardID == cardID {
				total++
			}
		}
		return nil
	})
	return total, err
}

func (r *memHistoryStore) findPage(page models.PageRequest, match func(models.CardOperationHistory) bool) (*models.Page[models.CardOperationHistory], error) {
	var records []models.CardOperationHistory
	err := r.m.run(func(d *memData) error {
		for _, rec := range d.history {
			if match(rec) {
				records = append(records, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
	return paginate(records, page), nil
}

// --- users ---

type memUserStore struct {
	m *MemoryStore
}

func (r *memUserStore) Create(ctx context.Context, user *models.User) error {
	return r.m.run(func(d *memData) error {
		for _, existing := range d.users {
			if existing.Username == user.Username {
				return models.ErrDuplicateUser
			}
		}
		d.nextUserID++
		user.ID = d.nextUserID
		user.CreatedAt = time.Now()
		d.users[user.ID] = *user
		return nil
	})
}

func (r *memUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.m.run(func(d *memData) error {
		stored, ok := d.users[id]
		if !ok {
			return models.ErrUserNotFound
		}
		user = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *memUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	found := false
	err := r.m.run(func(d *memData) error {
		for _, stored := range d.users {
			if stored.Username == username {
				user = stored
				found = true
				return nil
			}
		}
		return models.ErrUserNotFound
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrUserNotFound
	}
	return &user, nil
}

func (r *memUserStore) FindAll(ctx context.Context, page models.PageRequest) (*models.Page[models.User], error) {
	var users []models.User
	err := r.m.run(func(d *memData) error {
		for _, u := range d.users {
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return paginate(users, page), nil
}
