package main

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"payment-intake/internal/config"
	"payment-intake/internal/repository"
	"payment-intake/internal/server"
	"payment-intake/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type IntegrationTestSuite struct {
	suite.Suite
	postgresContainer *tcpostgres.PostgresContainer
	serverInstance    *server.Server
	serverPort        string
	baseURL           string
	client            *http.Client
	db                *sql.DB
	dbConnStr         string
}

func (suite *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("payment_intake"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %s", err)
	}
	suite.postgresContainer = postgresContainer

	suite.dbConnStr, err = postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		suite.T().Fatalf("Failed to get connection string: %s", err)
	}

	if err := suite.runMigrations(); err != nil {
		suite.T().Fatalf("Failed to run migrations: %s", err)
	}

	// Keep a connection open for direct row assertions
	suite.db, err = sql.Open("postgres", suite.dbConnStr)
	if err != nil {
		suite.T().Fatalf("Failed to open database: %s", err)
	}

	if err := suite.startApplicationServer(); err != nil {
		suite.T().Fatalf("Failed to start application server: %s", err)
	}

	suite.client = &http.Client{
		Timeout: 30 * time.Second,
	}
}

func (suite *IntegrationTestSuite) runMigrations() error {
	db, err := sql.Open("postgres", suite.dbConnStr)
	if err != nil {
		return err
	}
	defer db.Close()

	migrationFiles, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	sort.Slice(migrationFiles, func(i, j int) bool {
		return migrationFiles[i].Name() < migrationFiles[j].Name()
	})

	for _, file := range migrationFiles {
		if strings.HasSuffix(file.Name(), ".sql") {
			migrationPath := filepath.Join("migrations", file.Name())
			migrationSQL, err := migrationsFS.ReadFile(migrationPath)
			if err != nil {
				return fmt.Errorf("failed to read migration file %s: %w", file.Name(), err)
			}

			if _, err := db.Exec(string(migrationSQL)); err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", file.Name(), err)
			}

			suite.T().Logf("Executed migration: %s", file.Name())
		}
	}

	return nil
}

func (suite *IntegrationTestSuite) startApplicationServer() error {
	ctx := context.Background()

	host, err := suite.postgresContainer.Host(ctx)
	if err != nil {
		return err
	}
	mappedPort, err := suite.postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		return err
	}

	cfg := &config.Config{
		DBHost:     host,
		DBPort:     mappedPort.Port(),
		DBUser:     "postgres",
		DBPassword: "password",
		DBName:     "payment_intake",
		DBSSLMode:  "disable",
		ServerPort: "0", // Let OS choose a free port
		QueueName:  "transaction-intake",
	}

	serverInstance, port, err := server.StartServer(cfg)
	if err != nil {
		return err
	}

	suite.serverInstance = serverInstance
	suite.serverPort = port
	suite.baseURL = "http://localhost:" + port

	return suite.waitForServerReady()
}

func (suite *IntegrationTestSuite) waitForServerReady() error {
	timeout := 30 * time.Second
	start := time.Now()

	for time.Since(start) < timeout {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if suite.serverInstance != nil {
		suite.serverInstance.Stop(ctx)
	}

	if suite.db != nil {
		suite.db.Close()
	}

	if suite.postgresContainer != nil {
		suite.postgresContainer.Terminate(ctx)
	}
}

// intakeBody builds a full valid request; overrides mutate the decoded map
// before re-encoding.
func intakeBody(customerID, merchantID, amount, txnReference string, overrides ...func(map[string]interface{})) string {
	base := fmt.Sprintf(`{
		"lang": "en",
		"merchant": {"merchantID": %q, "customerID": %q},
		"customer": {"billingAddress": {
			"firstName": "Jane",
			"lastName": "Doe",
			"mobileNo": "5551234567",
			"emailId": "jane.doe@example.com",
			"addressLine1": "1 Main St",
			"city": "San Francisco",
			"state": "CA",
			"zip": "94105",
			"country": "US"
		}},
		"transaction": {
			"txnAmount": %s,
			"paymentType": "card",
			"currencyCode": "USD",
			"txnReference": %q,
			"paymentDetail": {
				"cardNumber": "4111111111111111",
				"cardType": "visa",
				"expYear": 2027,
				"expMonth": 9,
				"nameOnCard": "Jane Doe",
				"saveDetails": "true",
				"cvv": "123"
			},
			"url": {
				"successURL": "https://merchant.example.com/success",
				"failURL": "https://merchant.example.com/fail"
			}
		}
	}`, merchantID, customerID, amount, txnReference)

	if len(overrides) == 0 {
		return base
	}

	var m map[string]interface{}
	if err := json.Unmarshal([]byte(base), &m); err != nil {
		panic(err)
	}
	for _, override := range overrides {
		override(m)
	}
	out, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return string(out)
}

func (suite *IntegrationTestSuite) postIntake(body string) (int, string, error) {
	resp, err := suite.client.Post(suite.baseURL+"/wpp", "application/json", bytes.NewBufferString(body))
	if err != nil {
		return 0, "", err
	}

	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	return resp.StatusCode, string(respBody), nil
}

func (suite *IntegrationTestSuite) getTransaction(txnReference string) (int, string, error) {
	resp, err := suite.client.Get(suite.baseURL + "/wpp/transactions/" + txnReference)
	if err != nil {
		return 0, "", err
	}

	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	return resp.StatusCode, string(respBody), nil
}

func (suite *IntegrationTestSuite) parseResponse(body string) (map[string]interface{}, error) {
	var response map[string]interface{}
	if err := json.Unmarshal([]byte(body), &response); err != nil {
		suite.T().Logf("Failed to parse response: %s", body)
		return nil, err
	}
	return response, nil
}

func (suite *IntegrationTestSuite) countRows(query string, args ...interface{}) int {
	var count int
	if err := suite.db.QueryRow(query, args...).Scan(&count); err != nil {
		suite.T().Fatalf("Count query failed: %s", err)
	}
	return count
}

func (suite *IntegrationTestSuite) stepHealthCheck() {
	resp, err := suite.client.Get(suite.baseURL + "/health")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var healthResp map[string]interface{}
	err = json.Unmarshal(body, &healthResp)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "healthy", healthResp["status"])
}

func (suite *IntegrationTestSuite) stepProcessTransaction() {
	status, body, err := suite.postIntake(intakeBody("cust001", "merch001", "100.50", "txn-abc"))
	assert.NoError(suite.T(), err)
	suite.T().Logf("Intake Response: %s", body)
	assert.Equal(suite.T(), http.StatusOK, status)

	response, err := suite.parseResponse(body)
	assert.NoError(suite.T(), err)

	data, hasData := response["data"]
	assert.True(suite.T(), hasData, "Response should have 'data' field")

	if hasData {
		intakeData := data.(map[string]interface{})
		assert.Equal(suite.T(), "Transaction has been processed successfully", intakeData["description"])
		assert.Equal(suite.T(), "txn-abc", intakeData["txnReference"])
	}

	// Exactly one row per entity, and the transaction references the
	// payment detail created in the same call.
	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM customer WHERE customer_id = 'cust001'`))
	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM merchant WHERE merchant_id = 'merch001'`))
	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM billing_address WHERE customer_id = 'cust001'`))
	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM transaction WHERE txn_reference = 'txn-abc'`))

	var amountStr string
	var paymentDetailID int64
	err = suite.db.QueryRow(`
		SELECT txn_amount, payment_detail_id
		FROM transaction WHERE txn_reference = 'txn-abc'
	`).Scan(&amountStr, &paymentDetailID)
	assert.NoError(suite.T(), err)
	assert.NotZero(suite.T(), paymentDetailID)

	amount, err := decimal.NewFromString(amountStr)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), decimal.RequireFromString("100.50").Equal(amount))

	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM payment_detail WHERE id = $1`, paymentDetailID))
}

func (suite *IntegrationTestSuite) stepRepeatSubmissionServedFromCache() {
	status, firstBody, err := suite.postIntake(intakeBody("cust001", "merch001", "100.50", "txn-abc"))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	// Identical content within the TTL: same confirmation, no second graph.
	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM transaction WHERE txn_reference = 'txn-abc'`))

	status, secondBody, err := suite.postIntake(intakeBody("cust001", "merch001", "100.50", "txn-abc"))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.JSONEq(suite.T(), firstBody, secondBody)
	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM transaction WHERE txn_reference = 'txn-abc'`))
}

func (suite *IntegrationTestSuite) stepReusedNaturalKeysCreateNoDuplicates() {
	status, body, err := suite.postIntake(intakeBody("cust001", "merch001", "42.00", "txn-def",
		func(m map[string]interface{}) {
			billing := m["customer"].(map[string]interface{})["billingAddress"].(map[string]interface{})
			billing["addressLine1"] = "2 Other Ave"
		}))
	assert.NoError(suite.T(), err)
	suite.T().Logf("Second Intake Response: %s", body)
	assert.Equal(suite.T(), http.StatusOK, status)

	// New transaction and billing address, same customer and merchant.
	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM customer WHERE customer_id = 'cust001'`))
	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM merchant WHERE merchant_id = 'merch001'`))
	assert.Equal(suite.T(), 2, suite.countRows(`SELECT COUNT(*) FROM billing_address WHERE customer_id = 'cust001'`))
	assert.Equal(suite.T(), 2, suite.countRows(`SELECT COUNT(*) FROM transaction WHERE customer_id = 'cust001'`))
}

func (suite *IntegrationTestSuite) stepNewNaturalKeysCreateFreshParties() {
	status, _, err := suite.postIntake(intakeBody("cust002", "merch002", "7.25", "txn-ghi"))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM customer WHERE customer_id = 'cust002'`))
	assert.Equal(suite.T(), 1, suite.countRows(`SELECT COUNT(*) FROM merchant WHERE merchant_id = 'merch002'`))
}

func (suite *IntegrationTestSuite) stepValidationRejectsBeforePersistence() {
	status, body, err := suite.postIntake(intakeBody("cust-invalid", "merch-invalid", "10.00", "txn-invalid",
		func(m map[string]interface{}) {
			billing := m["customer"].(map[string]interface{})["billingAddress"].(map[string]interface{})
			billing["country"] = "USA"
		}))
	assert.NoError(suite.T(), err)
	suite.T().Logf("Validation Response: %s", body)
	assert.Equal(suite.T(), http.StatusBadRequest, status)

	response, err := suite.parseResponse(body)
	assert.NoError(suite.T(), err)

	errorData, hasError := response["error"]
	assert.True(suite.T(), hasError, "Response should have 'error' field for error cases")
	if hasError {
		errorInfo := errorData.(map[string]interface{})
		assert.Equal(suite.T(), "validation_error", errorInfo["code"])
	}

	assert.Equal(suite.T(), 0, suite.countRows(`SELECT COUNT(*) FROM customer WHERE customer_id = 'cust-invalid'`))
	assert.Equal(suite.T(), 0, suite.countRows(`SELECT COUNT(*) FROM transaction WHERE txn_reference = 'txn-invalid'`))
}

func (suite *IntegrationTestSuite) stepSaveDetailsBoundary() {
	status, _, err := suite.postIntake(intakeBody("cust003", "merch003", "5.00", "txn-save-false",
		func(m map[string]interface{}) {
			detail := m["transaction"].(map[string]interface{})["paymentDetail"].(map[string]interface{})
			detail["saveDetails"] = "TRUE"
		}))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	var saved bool
	err = suite.db.QueryRow(`
		SELECT pd.save_details
		FROM transaction t JOIN payment_detail pd ON pd.id = t.payment_detail_id
		WHERE t.txn_reference = 'txn-save-false'
	`).Scan(&saved)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), saved, "only the exact token \"true\" may store true")

	status, _, err = suite.postIntake(intakeBody("cust003", "merch003", "5.00", "txn-save-true"))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	err = suite.db.QueryRow(`
		SELECT pd.save_details
		FROM transaction t JOIN payment_detail pd ON pd.id = t.payment_detail_id
		WHERE t.txn_reference = 'txn-save-true'
	`).Scan(&saved)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), saved)
}

func (suite *IntegrationTestSuite) stepGetTransaction() {
	status, body, err := suite.getTransaction("txn-abc")
	assert.NoError(suite.T(), err)
	suite.T().Logf("Get Transaction Response: %s", body)
	assert.Equal(suite.T(), http.StatusOK, status)

	response, err := suite.parseResponse(body)
	assert.NoError(suite.T(), err)

	data, hasData := response["data"]
	assert.True(suite.T(), hasData, "Response should have 'data' field")
	if hasData {
		txData := data.(map[string]interface{})
		assert.Equal(suite.T(), "txn-abc", txData["txn_reference"])
		assert.Equal(suite.T(), "cust001", txData["customer_id"])
		assert.Equal(suite.T(), "merch001", txData["merchant_id"])
	}

	status, body, err = suite.getTransaction("txn-missing")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusNotFound, status)

	response, err = suite.parseResponse(body)
	assert.NoError(suite.T(), err)
	errorData, hasError := response["error"]
	assert.True(suite.T(), hasError)
	if hasError {
		errorInfo := errorData.(map[string]interface{})
		assert.Equal(suite.T(), "transaction_not_found", errorInfo["code"])
	}
}

// stepRollbackLeavesNoRows drives the service directly with data that passes
// the Go layer but violates a database constraint mid-sequence, proving the
// whole scope rolls back: the customer and merchant created in steps 1-2
// must not survive the failure.
func (suite *IntegrationTestSuite) stepRollbackLeavesNoRows() {
	db, err := sql.Open("postgres", suite.dbConnStr)
	assert.NoError(suite.T(), err)
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewStore(db, logger)
	svc := service.NewTransactionService(store, logger)

	state := "CA"
	req := &service.IntakeRequest{
		Lang:       "en",
		MerchantID: "merch-rollback",
		CustomerID: "cust-rollback",
		Billing: service.BillingAddressInput{
			FirstName:    "Jane",
			LastName:     "Doe",
			MobileNo:     "5551234567",
			EmailID:      "jane.doe@example.com",
			AddressLine1: "1 Main St",
			City:         "San Francisco",
			State:        &state,
			Zip:          "94105",
			Country:      "USA", // exceeds VARCHAR(2), fails at the billing insert
		},
		Payment: service.PaymentDetailInput{
			CardNumber:  "4111111111111111",
			CardType:    "visa",
			ExpYear:     2027,
			ExpMonth:    9,
			NameOnCard:  "Jane Doe",
			SaveDetails: "true",
			CVV:         "123",
		},
		TxnAmount:    decimal.RequireFromString("10.00"),
		PaymentType:  "card",
		CurrencyCode: "USD",
		TxnReference: "txn-rollback",
		SuccessURL:   "https://merchant.example.com/success",
		FailURL:      "https://merchant.example.com/fail",
	}

	err = svc.InsertTransaction(req)
	assert.Error(suite.T(), err)

	assert.Equal(suite.T(), 0, suite.countRows(`SELECT COUNT(*) FROM customer WHERE customer_id = 'cust-rollback'`))
	assert.Equal(suite.T(), 0, suite.countRows(`SELECT COUNT(*) FROM merchant WHERE merchant_id = 'merch-rollback'`))
	assert.Equal(suite.T(), 0, suite.countRows(`SELECT COUNT(*) FROM billing_address WHERE customer_id = 'cust-rollback'`))
	assert.Equal(suite.T(), 0, suite.countRows(`SELECT COUNT(*) FROM transaction WHERE txn_reference = 'txn-rollback'`))
}

func (suite *IntegrationTestSuite) TestFlow() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test in short mode")
	}

	suite.stepHealthCheck()
	suite.stepProcessTransaction()
	suite.stepRepeatSubmissionServedFromCache()
	suite.stepReusedNaturalKeysCreateNoDuplicates()
	suite.stepNewNaturalKeysCreateFreshParties()
	suite.stepValidationRejectsBeforePersistence()
	suite.stepSaveDetailsBoundary()
	suite.stepGetTransaction()
	suite.stepRollbackLeavesNoRows()
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
