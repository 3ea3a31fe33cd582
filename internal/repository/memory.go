package repository

import (
	"sync"
	"time"

	"payment-intake/internal/domain"
	"payment-intake/internal/errors"
)

// MemoryStore is an in-memory domain.Store with real atomicity semantics:
// WithTransaction runs its body against a snapshot and swaps the snapshot in
// only on success, so a failing body leaves no trace. It backs unit tests
// that exercise the write workflow without a database. Natural-key
// uniqueness is enforced the way the SQL schema would.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
	inTx  bool
}

type memoryState struct {
	customers    []domain.Customer
	merchants    []domain.Merchant
	addresses    []domain.BillingAddress
	details      []domain.PaymentDetail
	transactions []domain.Transaction
	nextID       int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{},
	}
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		customers:    append([]domain.Customer(nil), s.customers...),
		merchants:    append([]domain.Merchant(nil), s.merchants...),
		addresses:    append([]domain.BillingAddress(nil), s.addresses...),
		details:      append([]domain.PaymentDetail(nil), s.details...),
		transactions: append([]domain.Transaction(nil), s.transactions...),
		nextID:       s.nextID,
	}
}

func (s *memoryState) nextIdentity() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) Customers() domain.CustomerRepository { return s }

func (s *MemoryStore) Merchants() domain.MerchantRepository { return s }

func (s *MemoryStore) BillingAddresses() domain.BillingAddressRepository { return s }

func (s *MemoryStore) PaymentDetails() domain.PaymentDetailRepository { return s }

func (s *MemoryStore) Transactions() domain.TransactionRepository { return s }

// WithTransaction clones the state, runs fn against a store bound to the
// clone, and commits by swapping the clone in. The parent lock is held for
// the whole scope, mirroring the exclusive session ownership of the SQL
// store.
func (s *MemoryStore) WithTransaction(fn func(domain.Store) error) error {
	if s.inTx {
		return errors.NewAppError(errors.InternalError, "nested scopes are not supported")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txStore := &MemoryStore{state: s.state.clone(), inTx: true}
	if err := fn(txStore); err != nil {
		return err
	}

	s.state = txStore.state
	return nil
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) GetByCustomerID(customerID string) (*domain.Customer, error) {
	defer s.lock()()

	for i := range s.state.customers {
		if s.state.customers[i].CustomerID == customerID {
			customer := s.state.customers[i]
			return &customer, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreateCustomer(customer *domain.Customer) error {
	defer s.lock()()

	for i := range s.state.customers {
		if s.state.customers[i].CustomerID == customer.CustomerID {
			return errors.NewPersistenceError("failed to create customer", errors.NewAppError(errors.PersistenceError, "duplicate customer_id"))
		}
	}

	customer.ID = s.state.nextIdentity()
	customer.CreatedAt = time.Now()
	s.state.customers = append(s.state.customers, *customer)
	return nil
}

func (s *MemoryStore) GetByMerchantID(merchantID string) (*domain.Merchant, error) {
	defer s.lock()()

	for i := range s.state.merchants {
		if s.state.merchants[i].MerchantID == merchantID {
			merchant := s.state.merchants[i]
			return &merchant, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreateMerchant(merchant *domain.Merchant) error {
	defer s.lock()()

	for i := range s.state.merchants {
		if s.state.merchants[i].MerchantID == merchant.MerchantID {
			return errors.NewPersistenceError("failed to create merchant", errors.NewAppError(errors.PersistenceError, "duplicate merchant_id"))
		}
	}

	merchant.ID = s.state.nextIdentity()
	merchant.CreatedAt = time.Now()
	s.state.merchants = append(s.state.merchants, *merchant)
	return nil
}

func (s *MemoryStore) CreateBillingAddress(address *domain.BillingAddress) error {
	defer s.lock()()

	if !s.customerExists(address.CustomerID) {
		return errors.NewPersistenceError("failed to create billing address", errors.NewAppError(errors.PersistenceError, "customer_id references no customer"))
	}

	address.ID = s.state.nextIdentity()
	address.CreatedAt = time.Now()
	s.state.addresses = append(s.state.addresses, *address)
	return nil
}

func (s *MemoryStore) CreatePaymentDetail(detail *domain.PaymentDetail) error {
	defer s.lock()()

	detail.ID = s.state.nextIdentity()
	detail.CreatedAt = time.Now()
	s.state.details = append(s.state.details, *detail)
	return nil
}

func (s *MemoryStore) CreateTransaction(tx *domain.Transaction) error {
	defer s.lock()()

	if !s.customerExists(tx.CustomerID) || !s.merchantExists(tx.MerchantID) || !s.detailExists(tx.PaymentDetailID) {
		return errors.NewPersistenceError("failed to create transaction", errors.NewAppError(errors.PersistenceError, "foreign key violation"))
	}

	tx.ID = s.state.nextIdentity()
	tx.CreatedAt = time.Now()
	s.state.transactions = append(s.state.transactions, *tx)
	return nil
}

func (s *MemoryStore) GetByReference(txnReference string) (*domain.Transaction, error) {
	defer s.lock()()

	for i := len(s.state.transactions) - 1; i >= 0; i-- {
		if s.state.transactions[i].TxnReference == txnReference {
			tx := s.state.transactions[i]
			return &tx, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) customerExists(customerID string) bool {
	for i := range s.state.customers {
		if s.state.customers[i].CustomerID == customerID {
			return true
		}
	}
	return false
}

func (s *MemoryStore) merchantExists(merchantID string) bool {
	for i := range s.state.merchants {
		if s.state.merchants[i].MerchantID == merchantID {
			return true
		}
	}
	return false
}

func (s *MemoryStore) detailExists(id int64) bool {
	for i := range s.state.details {
		if s.state.details[i].ID == id {
			return true
		}
	}
	return false
}

// Snapshot accessors used by tests to assert on persisted state.

func (s *MemoryStore) AllCustomers() []domain.Customer {
	defer s.lock()()
	return append([]domain.Customer(nil), s.state.customers...)
}

func (s *MemoryStore) AllMerchants() []domain.Merchant {
	defer s.lock()()
	return append([]domain.Merchant(nil), s.state.merchants...)
}

func (s *MemoryStore) AllBillingAddresses() []domain.BillingAddress {
	defer s.lock()()
	return append([]domain.BillingAddress(nil), s.state.addresses...)
}

func (s *MemoryStore) AllPaymentDetails() []domain.PaymentDetail {
	defer s.lock()()
	return append([]domain.PaymentDetail(nil), s.state.details...)
}

func (s *MemoryStore) AllTransactions() []domain.Transaction {
	defer s.lock()()
	return append([]domain.Transaction(nil), s.state.transactions...)
}

var _ domain.Store = (*MemoryStore)(nil)
