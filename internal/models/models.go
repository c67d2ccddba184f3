package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Config represents the server's persisted settings
// This is a singleton model (only one row should exist)
type Config struct {
	BaseModel
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // Auto-generated on first start (64 hex chars)
}

// User represents a back-office account
type User struct {
	BaseModel
	Email          string    `json:"email" gorm:"unique;not null"`
	Username       string    `json:"username" gorm:"unique;not null"`
	PasswordHash   string    `json:"-" gorm:"not null"`
	Name           string    `json:"name"`
	DefaultStoreID *string   `json:"defaultStoreId"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// DefaultStore returns the default store ID or ""
func (u *User) DefaultStore() string {
	if u.DefaultStoreID == nil {
		return ""
	}
	return *u.DefaultStoreID
}

// RefreshToken is a long-lived credential exchanged for access tokens.
// Only the SHA-256 hash of the token is stored.
type RefreshToken struct {
	BaseModel
	UserID    string     `json:"userId" gorm:"index;not null"`
	TokenHash string     `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt time.Time  `json:"expiresAt" gorm:"index;not null"`
	RevokedAt *time.Time `json:"revokedAt"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Active reports whether the token can still be exchanged at now
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Record is one item of a back-office resource (a store, product, order...).
// Resource-specific fields live in Data.
type Record struct {
	BaseModel
	Resource  string         `json:"-" gorm:"index:idx_records_scope;not null"`
	OwnerID   string         `json:"-" gorm:"index:idx_records_scope;not null"`
	StoreID   string         `json:"storeId" gorm:"index"`
	Data      datatypes.JSON `json:"-"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Fields decodes Data into a map
func (r *Record) Fields() (map[string]any, error) {
	fields := map[string]any{}
	if len(r.Data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(r.Data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", r.ID, err)
	}
	return fields, nil
}

// SetFields encodes fields into Data, dropping the server-managed keys
func (r *Record) SetFields(fields map[string]any) error {
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		switch k {
		case "id", "storeId", "createdAt", "updatedAt":
			continue
		}
		clean[k] = v
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	r.Data = datatypes.JSON(data)
	return nil
}

// View flattens the record into the JSON object clients see
func (r *Record) View() (map[string]any, error) {
	view, err := r.Fields()
	if err != nil {
		return nil, err
	}
	view["id"] = r.ID
	view["createdAt"] = r.CreatedAt
	view["updatedAt"] = r.UpdatedAt
	if r.StoreID != "" {
		view["storeId"] = r.StoreID
	}
	return view, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Config{}, &RefreshToken{}, &Record{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
