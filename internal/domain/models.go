// Package domain defines the persistence models of the document registry:
// users, registered documents, number reservations, the allocation ledger
// that keeps both record sets in one numbering namespace, and the audit log.
// The types are mapped with GORM and shared by the repository and service
// layers.
package domain

import "time"

// Role names a user's authorization level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// DocumentType is the direction of a registered document.
type DocumentType string

const (
	DocumentIn  DocumentType = "IN"
	DocumentOut DocumentType = "OUT"
)

// Valid reports whether t is one of the known document directions.
func (t DocumentType) Valid() bool {
	return t == DocumentIn || t == DocumentOut
}

// User is an account able to sign in. PasswordHash holds a bcrypt digest and
// is never serialized.
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name"       gorm:"type:varchar(255);not null"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(255);not null"`
	Role         Role      `json:"role"       gorm:"type:varchar(16);not null;default:'user';check:role IN ('user','admin')"`
	Department   string    `json:"department" gorm:"type:varchar(255);not null;index"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Document is a registered inbound or outbound document. Its Number is
// immutable once created and unique across documents and reservations.
//
// Attachments stores file paths only; the files themselves live elsewhere.
type Document struct {
	ID          string       `gorm:"type:char(36);primaryKey"`
	Number      string       `gorm:"type:varchar(32);not null;uniqueIndex:ux_documents_number"`
	Title       string       `gorm:"type:varchar(255);not null"`
	Type        DocumentType `gorm:"type:varchar(8);not null;check:type IN ('IN','OUT')"`
	Department  string       `gorm:"type:varchar(255);not null;index:idx_documents_department"`
	Sender      string       `gorm:"type:varchar(255)"`
	Recipient   string       `gorm:"type:varchar(255)"`
	Description string       `gorm:"type:text"`
	Attachments []string     `gorm:"serializer:json"`
	UserID      string       `gorm:"type:char(36);not null;index:idx_documents_user"`
	CreatedAt   time.Time    `gorm:"index:idx_documents_created"`
	UpdatedAt   time.Time

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }

// Reservation is a placeholder claim on a number that can later be promoted
// into a Document by a user of the same department. Expiry is computed at
// read time and never stored.
type Reservation struct {
	ID         string       `gorm:"type:char(36);primaryKey"`
	Number     string       `gorm:"type:varchar(32);not null;uniqueIndex:ux_reservations_number"`
	Type       DocumentType `gorm:"type:varchar(8);not null"`
	Department string       `gorm:"type:varchar(255);not null;index:idx_reservations_department"`
	UserID     string       `gorm:"type:char(36);not null;index:idx_reservations_user"`
	Used       bool         `gorm:"not null;default:false"`
	CreatedAt  time.Time    `gorm:"index:idx_reservations_created"`

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Reservation.
func (Reservation) TableName() string { return "reservations" }

// ClaimKind tells which record set currently holds an allocated number.
type ClaimKind string

const (
	ClaimReservation ClaimKind = "reservation"
	ClaimDocument    ClaimKind = "document"
)

// AllocatedNumber is the ledger row backing the shared numbering namespace.
// The primary key on Number makes the storage layer reject a second claim on
// the same number, whichever record set issues it.
type AllocatedNumber struct {
	Number    string    `gorm:"type:varchar(32);primaryKey"`
	Kind      ClaimKind `gorm:"type:varchar(16);not null;check:kind IN ('reservation','document')"`
	CreatedAt time.Time
}

// TableName returns the database table name for AllocatedNumber.
func (AllocatedNumber) TableName() string { return "allocated_numbers" }

// LogType classifies audit entries.
type LogType string

const (
	LogDocument LogType = "document"
	LogAuth     LogType = "auth"
	LogSystem   LogType = "system"
)

// Valid reports whether t is a known audit category.
func (t LogType) Valid() bool {
	return t == LogDocument || t == LogAuth || t == LogSystem
}

// AuditLog is an append-only record of a user action. The user fields are a
// snapshot taken when the entry was written, so entries survive user edits
// and deletion.
type AuditLog struct {
	ID             string    `json:"id"     gorm:"type:char(36);primaryKey"`
	Action         string    `json:"action" gorm:"type:text;not null"`
	Type           LogType   `json:"type"   gorm:"type:varchar(16);not null;check:type IN ('document','auth','system')"`
	UserID         string    `json:"-"      gorm:"type:char(36);index"`
	UserName       string    `json:"-"      gorm:"type:varchar(255);not null"`
	UserEmail      string    `json:"-"      gorm:"type:varchar(255);not null"`
	UserRole       string    `json:"-"      gorm:"type:varchar(16)"`
	UserDepartment string    `json:"-"      gorm:"type:varchar(255)"`
	Timestamp      time.Time `json:"timestamp" gorm:"not null;index:idx_audit_logs_ts"`
}

// TableName returns the database table name for AuditLog.
func (AuditLog) TableName() string { return "audit_logs" }
