package models

// LinkPrecedence marks a contact as the root of its identity chain or as a
// linked member of one.
type LinkPrecedence string

const (
	LinkPrecedencePrimary   LinkPrecedence = "primary"
	LinkPrecedenceSecondary LinkPrecedence = "secondary"
)

// Contact represents one email/phone observation using GORM.
// It corresponds to the 'contacts' table.
//
// LinkedID is nil iff LinkPrecedence is primary. A secondary points at its
// parent, which may itself be secondary, so chains can be several hops long.
type Contact struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Email          *string        `gorm:"index" json:"email,omitempty"`              // Nullable
	PhoneNumber    *string        `gorm:"index" json:"phoneNumber,omitempty"`        // Nullable
	LinkedID       *uint          `gorm:"index" json:"linkedId,omitempty"`           // Nullable, parent contact
	LinkPrecedence LinkPrecedence `gorm:"not null;default:primary" json:"linkPrecedence"`
	CreatedAt      int64          `gorm:"not null" json:"createdAt"` // Unix timestamp
	UpdatedAt      int64          `gorm:"not null" json:"updatedAt"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Contact) TableName() string {
	return "contacts"
}

func (c Contact) IsPrimary() bool {
	return c.LinkPrecedence == LinkPrecedencePrimary
}

// EmailValue returns the email or "" when the contact has none.
func (c Contact) EmailValue() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// PhoneValue returns the phone number or "" when the contact has none.
func (c Contact) PhoneValue() string {
	if c.PhoneNumber == nil {
		return ""
	}
	return *c.PhoneNumber
}
