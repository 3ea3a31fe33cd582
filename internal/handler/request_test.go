package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_IgnoresWireFormatting(t *testing.T) {
	var a, b RequestModel
	require.NoError(t, json.Unmarshal([]byte(validRequestBody("txn-abc")), &a))

	// Same content, different key order and whitespace.
	reordered := `{
		"transaction": {
			"url": {"failURL": "https://merchant.example.com/fail", "successURL": "https://merchant.example.com/success"},
			"paymentDetail": {
				"cvv": "123", "saveDetails": "true", "nameOnCard": "Jane Doe",
				"expMonth": 9, "expYear": 2027, "cardType": "visa", "cardNumber": "4111111111111111"
			},
			"txnReference": "txn-abc", "currencyCode": "USD", "paymentType": "card", "txnAmount": 100.50
		},
		"customer": {"billingAddress": {
			"country": "US", "zip": "94105", "state": "CA", "city": "San Francisco",
			"addressLine1": "1 Main St", "emailId": "jane.doe@example.com",
			"mobileNo": "5551234567", "lastName": "Doe", "firstName": "Jane"
		}},
		"merchant": {"customerID": "cust001", "merchantID": "merch001"},
		"lang": "en"
	}`
	require.NoError(t, json.Unmarshal([]byte(reordered), &b))

	fpA, _, err := a.Fingerprint()
	require.NoError(t, err)
	fpB, _, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB)

	var c RequestModel
	require.NoError(t, json.Unmarshal([]byte(validRequestBody("txn-other")), &c))
	fpC, _, err := c.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpC)
}

func TestSaveDetailsToken(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"json string true", `"true"`, "true"},
		{"json bool true", `true`, "true"},
		{"json bool false", `false`, "false"},
		{"uppercase string", `"TRUE"`, "TRUE"},
		{"number", `1`, "1"},
		{"empty string", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := PaymentDetailModel{SaveDetails: json.RawMessage(tt.raw)}
			assert.Equal(t, tt.want, d.saveDetailsToken())
		})
	}

	t.Run("absent", func(t *testing.T) {
		d := PaymentDetailModel{}
		assert.Equal(t, "", d.saveDetailsToken())
	})
}

func TestValidate_AcceptsOptionalFieldsAbsent(t *testing.T) {
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(validRequestBody("txn-abc")), &m))
	billing := m["customer"].(map[string]interface{})["billingAddress"].(map[string]interface{})
	delete(billing, "state")
	body, _ := json.Marshal(m)

	var req RequestModel
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Nil(t, req.Validate())
	assert.Nil(t, req.Customer.BillingAddress.State)
}
