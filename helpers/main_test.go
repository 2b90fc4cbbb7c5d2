package helpers

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stockplus/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thedevsaddam/govalidator"
	"gopkg.in/gomail.v2"
)

func TestToDecimal(t *testing.T) {
	tests := []struct {
		value interface{}
		want  string
		ok    bool
	}{
		{float64(100), "100", true},
		{float64(10.5), "10.5", true},
		{int(7), "7", true},
		{"12.30", "12.3", true},
		{"abc", "0", false},
		{nil, "0", false},
	}
	for _, tc := range tests {
		got, ok := ToDecimal(tc.value)
		assert.Equal(t, tc.ok, ok, "%v", tc.value)
		assert.Equal(t, tc.want, got.String(), "%v", tc.value)
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]int{1, 2, 3}, 2))
	assert.False(t, Contains([]int{1, 3}, 2))
	assert.False(t, Contains(nil, 1))
}

func TestParserTokenUnverified(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"u": map[string]interface{}{"i": 5}}).SignedString([]byte("any"))
	require.NoError(t, err)

	claims, ok := ParserTokenUnverified(signed)
	require.True(t, ok)
	assert.Contains(t, claims, "u")

	_, ok = ParserTokenUnverified("not-a-token")
	assert.False(t, ok)
}

func TestSTKPushRules(t *testing.T) {
	tests := []struct {
		body   string
		fields []string
	}{
		{`{"phone":"0712345678","amount":100,"orderId":"ORD-1"}`, nil},
		{`{"phone":"+254112345678","amount":1,"orderId":"ORD-1"}`, nil},
		{`{"phone":"0612345678","amount":100,"orderId":"ORD-1"}`, []string{"phone"}},
		{`{"phone":"0712345678","amount":-1,"orderId":"ORD-1"}`, []string{"amount"}},
		{`{"amount":100}`, []string{"phone", "orderId"}},
	}
	for _, tc := range tests {
		var opts models.STKPushOpts
		r := httptest.NewRequest("POST", "/stk", strings.NewReader(tc.body))
		errs := govalidator.New(govalidator.Options{Request: r, Rules: models.STKPushRules, Data: &opts}).ValidateJSON()
		assert.Len(t, errs, len(tc.fields), tc.body)
		for _, field := range tc.fields {
			assert.Contains(t, errs, field, tc.body)
		}
	}
}

type recordingSender struct {
	messages []*gomail.Message
}

func (s *recordingSender) DialAndSend(m ...*gomail.Message) error {
	s.messages = append(s.messages, m...)
	return nil
}

func TestSendEmail(t *testing.T) {
	sender := &recordingSender{}
	ed := &EmailData{
		EmailTo:      "wanjiru@example.com",
		NameTo:       "Wanjiru",
		EmailFrom:    "billing@stockplus.example",
		NameFrom:     "Stock Plus",
		Subject:      "Payment received",
		TemplatePath: "../templates/mail/payment_success.html",
		SMTP:         sender,
	}

	err := ed.SendEmail(models.OrderHTML{
		OrderID:       "ORD-1",
		Firstname:     "Wanjiru",
		Lastname:      "Kamau",
		PaymentMethod: "Mpesa",
		Amount:        "100.00",
		ReceiptNumber: "ABC123",
	})
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, []string{"Payment received"}, msg.GetHeader("Subject"))
	var body bytes.Buffer
	_, err = msg.WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "ORD-1")
	assert.Contains(t, body.String(), "ABC123")

	ed.TemplatePath = "missing.html"
	assert.Error(t, ed.SendEmail(nil))
}
