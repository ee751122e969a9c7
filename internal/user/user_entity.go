package user

import (
	"time"

	"github.com/google/uuid"
)

// User rows are owned by the roster service; this subsystem only reads them.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Username  string    `gorm:"column:username;type:varchar(255);not null;uniqueIndex"`
	Avatar    string    `gorm:"column:avatar;type:text"` // opaque image reference, may be empty
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
