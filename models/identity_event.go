package models

// IdentityEventType enumerates the changes a resolution can make to the
// contacts table.
type IdentityEventType string

const (
	EventContactCreated IdentityEventType = "contact.created" // new primary
	EventContactLinked  IdentityEventType = "contact.linked"  // new secondary appended to a chain tail
	EventChainsMerged   IdentityEventType = "chains.merged"   // junior root relinked under a senior tail
)

// IdentityEvent describes a single write performed while resolving an identity.
type IdentityEvent struct {
	Type             IdentityEventType `json:"type"`
	ContactID        uint              `json:"contact_id"`
	PrimaryContactID uint              `json:"primary_contact_id"`
	ParentContactID  *uint             `json:"parent_contact_id,omitempty"`
	Timestamp        int64             `json:"timestamp"`
}
