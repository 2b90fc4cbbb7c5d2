package models

// InfoUser is the identity carried by a verified JWT.
type InfoUser struct {
	ID         int
	IsAdmin    bool
	IsCashier  bool
	IsCustomer bool
	Roles      []int
	Email      string
}

type User struct {
	ID          int    `json:"userId" db:"userId"`
	Firstname   string `json:"firstName" db:"firstName"`
	Lastname    string `json:"lastName" db:"lastName"`
	Email       string `json:"email" db:"email"`
	PhoneNumber string `json:"phoneNumber" db:"phoneNumber"`
}
