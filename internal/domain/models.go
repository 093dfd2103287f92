// Package domain defines the persistence models for the pantry inventory:
// ingredients with their expiration dates and the chat users who receive
// expiry reminders. These types are mapped with GORM and form the core data
// layer of the bot.
package domain

import "time"

// DateLayout is the canonical calendar-date format for expiration dates.
// Dates are stored as text in this layout so lexical order equals date order.
const DateLayout = "2006-01-02"

// Ingredient is a tracked perishable item.
//
// Fields:
//   - ID: application-assigned integer key. Ids are kept contiguous (1..N)
//     and match the numbering users see in the inventory listing.
//   - Name: free-form item name, never empty.
//   - ExpirationDate: calendar date in DateLayout (no time component).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Ingredient struct {
	ID             int       `json:"id"              gorm:"primaryKey;autoIncrement:false"`
	Name           string    `json:"name"            gorm:"type:varchar(255);not null"`
	ExpirationDate string    `json:"expiration_date" gorm:"column:expiration_date;type:varchar(10);not null;index:idx_ingredients_expiry"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for Ingredient.
func (Ingredient) TableName() string { return "ingredients" }

// Expiry parses ExpirationDate in the given location. The boolean is false
// when the stored value is not a valid date.
func (i Ingredient) Expiry(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, i.ExpirationDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// User is a chat platform identity that has talked to the bot at least once.
// Every registered user receives broadcast expiry reminders. Rows are never
// updated or deleted.
type User struct {
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
