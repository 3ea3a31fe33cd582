package domain

// Store bundles the five repositories behind one unit of work. Repositories
// obtained from the Store passed to WithTransaction's body share a single
// database transaction; anything they write is discarded if the body errors.
type Store interface {
	Customers() CustomerRepository
	Merchants() MerchantRepository
	BillingAddresses() BillingAddressRepository
	PaymentDetails() PaymentDetailRepository
	Transactions() TransactionRepository

	// WithTransaction opens one atomic scope, runs fn against a Store bound
	// to it, and commits on nil return. Any error (or panic) from fn rolls
	// the whole scope back before propagating.
	WithTransaction(fn func(Store) error) error
}
