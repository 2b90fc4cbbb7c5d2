package db

const (
	ConstLayoutDateTime = `2006-01-02 15:04`
	ConstLayoutDate     = `2006-01-02`
)

var ConstRoles = struct {
	Admin    int
	Cashier  int
	Customer int
}{
	Admin:    1,
	Cashier:  2,
	Customer: 3,
}

var ConstPaymentMethods = struct {
	Cash  string
	Card  string
	Mpesa string
	Bank  string
}{
	Cash:  "Cash",
	Card:  "Card",
	Mpesa: "Mpesa",
	Bank:  "Bank",
}
