// README: Directory backed by a relational table through gorm.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"semas/internal/types"
)

// userRecord is the persisted row; Email is stored normalized.
type userRecord struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Role      string `gorm:"not null;default:'customer'"`
	Avatar    string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRecord) TableName() string {
	return "directory_users"
}

func (r userRecord) toUser() User {
	return User{
		ID:     types.ID(r.ID),
		Name:   r.Name,
		Email:  r.Email,
		Role:   Role(r.Role),
		Avatar: r.Avatar,
		Phone:  r.Phone,
	}
}

type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) Migrate() error {
	return d.db.AutoMigrate(&userRecord{})
}

// Seed inserts users that do not exist yet; existing rows are left as they are.
func (d *GormDirectory) Seed(ctx context.Context, users []User) error {
	for _, u := range users {
		rec := userRecord{
			ID:     string(u.ID),
			Name:   u.Name,
			Email:  NormalizeEmail(u.Email),
			Role:   string(u.Role),
			Avatar: u.Avatar,
			Phone:  u.Phone,
		}
		if err := d.db.WithContext(ctx).Where("id = ?", rec.ID).FirstOrCreate(&rec).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	return nil
}

func (d *GormDirectory) ByID(ctx context.Context, id types.ID) (User, bool, error) {
	var rec userRecord
	err := d.db.WithContext(ctx).Where("id = ?", string(id)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	return rec.toUser(), true, nil
}

func (d *GormDirectory) ByEmail(ctx context.Context, email string) (User, bool, error) {
	var rec userRecord
	err := d.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	return rec.toUser(), true, nil
}

func (d *GormDirectory) Add(ctx context.Context, u User) error {
	if u.ID == "" || u.Email == "" || !u.Role.Valid() {
		return ErrInvalidUser
	}
	rec := userRecord{
		ID:     string(u.ID),
		Name:   u.Name,
		Email:  NormalizeEmail(u.Email),
		Role:   string(u.Role),
		Avatar: u.Avatar,
		Phone:  u.Phone,
	}
	if err := d.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (d *GormDirectory) Remove(ctx context.Context, id types.ID) error {
	return d.db.WithContext(ctx).Delete(&userRecord{}, "id = ?", string(id)).Error
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
