package mpesa

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var successItems = []string{
	`{"Name":"Amount","Value":100}`,
	`{"Name":"MpesaReceiptNumber","Value":"ABC123"}`,
	`{"Name":"Balance"}`,
	`{"Name":"TransactionDate","Value":20240101120000}`,
	`{"Name":"PhoneNumber","Value":254712345678}`,
}

func callbackJSON(resultCode string, items []string) []byte {
	metadata := ""
	if items != nil {
		metadata = fmt.Sprintf(`,"CallbackMetadata":{"Item":[%s]}`, strings.Join(items, ","))
	}
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925","ResultCode":%s,"ResultDesc":"The service request is processed successfully."%s}}}`, resultCode, metadata))
}

func TestParseCallbackSuccess(t *testing.T) {
	result, err := ParseCallback(callbackJSON("0", successItems))
	require.NoError(t, err)

	assert.True(t, result.Paid)
	assert.Equal(t, 0, result.ResultCode)
	assert.Equal(t, "ws_CO_191220191020363925", result.CheckoutRequestID)
	assert.Equal(t, "29115-34620561-1", result.MerchantRequestID)
	assert.Equal(t, "100", result.Amount.String())
	assert.Equal(t, "ABC123", result.ReceiptNumber)
	assert.Equal(t, "254712345678", result.PhoneNumber)
	assert.True(t, result.TransactionDate.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
}

func TestParseCallbackIsOrderIndependent(t *testing.T) {
	want, err := ParseCallback(callbackJSON("0", successItems))
	require.NoError(t, err)

	permutations := [][]int{
		{4, 3, 2, 1, 0},
		{1, 0, 4, 2, 3},
		{3, 4, 0, 2, 1},
		{2, 1, 3, 0, 4},
	}
	for _, order := range permutations {
		items := make([]string, 0, len(order))
		for _, i := range order {
			items = append(items, successItems[i])
		}

		got, err := ParseCallback(callbackJSON("0", items))
		require.NoError(t, err)
		assert.Equal(t, want.ReceiptNumber, got.ReceiptNumber)
		assert.Equal(t, want.PhoneNumber, got.PhoneNumber)
		assert.True(t, want.Amount.Equal(got.Amount))
		assert.True(t, want.TransactionDate.Equal(got.TransactionDate))
	}
}

func TestParseCallbackWithoutMetadata(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		code int
	}{
		{name: "cancelled by user", body: callbackJSON("1032", nil), code: 1032},
		{name: "timeout", body: callbackJSON(`"1037"`, nil), code: 1037},
		{name: "failure code with metadata", body: callbackJSON("1", successItems), code: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseCallback(tt.body)
			require.NoError(t, err)
			assert.False(t, result.Paid)
			assert.Equal(t, tt.code, result.ResultCode)
			assert.Empty(t, result.ReceiptNumber)
		})
	}
}

func TestParseCallbackMalformed(t *testing.T) {
	without := func(name string) []string {
		items := []string{}
		for _, item := range successItems {
			if !strings.Contains(item, `"`+name+`"`) {
				items = append(items, item)
			}
		}
		return items
	}

	tests := []struct {
		name string
		body []byte
	}{
		{name: "not json", body: []byte(`<xml/>`)},
		{name: "missing stkCallback", body: []byte(`{"Body":{}}`)},
		{name: "missing result code", body: []byte(`{"Body":{"stkCallback":{"ResultDesc":"x"}}}`)},
		{name: "text result code", body: callbackJSON(`"ok"`, nil)},
		{name: "missing amount", body: callbackJSON("0", without(ItemAmount))},
		{name: "missing receipt", body: callbackJSON("0", without(ItemReceiptNumber))},
		{name: "missing phone", body: callbackJSON("0", without(ItemPhoneNumber))},
		{name: "missing date", body: callbackJSON("0", without(ItemTransactionDate))},
		{name: "null receipt", body: callbackJSON("0", append(without(ItemReceiptNumber), `{"Name":"MpesaReceiptNumber","Value":null}`))},
		{name: "bad amount", body: callbackJSON("0", append(without(ItemAmount), `{"Name":"Amount","Value":"ten"}`))},
		{name: "bad date", body: callbackJSON("0", append(without(ItemTransactionDate), `{"Name":"TransactionDate","Value":"yesterday"}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseCallback(tt.body)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, ErrMalformedPayload))
		})
	}
}

func TestCallbackMetadataLookup(t *testing.T) {
	var metadata CallbackMetadata
	require.NoError(t, json.Unmarshal([]byte(`{"Item":[{"Name":"Amount","Value":1.00},{"Name":"Balance"},{"Name":"MpesaReceiptNumber","Value":" NLJ7RT61SV "}]}`), &metadata))

	value, ok := metadata.Lookup(ItemAmount)
	assert.True(t, ok)
	assert.Equal(t, "1.00", value)

	value, ok = metadata.Lookup(ItemReceiptNumber)
	assert.True(t, ok)
	assert.Equal(t, "NLJ7RT61SV", value)

	_, ok = metadata.Lookup("Balance")
	assert.False(t, ok)

	_, ok = metadata.Lookup(ItemPhoneNumber)
	assert.False(t, ok)

	var empty *CallbackMetadata
	_, ok = empty.Lookup(ItemAmount)
	assert.False(t, ok)
}
