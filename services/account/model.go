package account

import "time"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Account is a registered user. CreditBalance is written only by the ledger.
type Account struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	Email         string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	PasswordHash  string    `gorm:"column:password_hash;not null" json:"-"`
	Role          Role      `gorm:"column:role;type:varchar(16);index;not null" json:"role"`
	CreditBalance int64     `gorm:"column:credit_balance;not null;default:0" json:"creditBalance"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Account) TableName() string { return "accounts" }

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     Role   `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	User  *Account `json:"user"`
	Token string   `json:"token"`
}
