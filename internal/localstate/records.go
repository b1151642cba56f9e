package localstate

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Both tables hold exactly one row; the client process is the only writer.
const singletonRowID = 1

// CredentialRecord persists the access token and serialized user object.
type CredentialRecord struct {
	ID          int       `gorm:"column:id;primaryKey"`
	AccessToken string    `gorm:"column:access_token;not null"`
	UserJSON    string    `gorm:"column:user_json"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CartSnapshot persists the whitelisted cart slice so it survives restarts.
type CartSnapshot struct {
	ID          int       `gorm:"column:id;primaryKey"`
	Payload     string    `gorm:"column:payload"`
	Initialized bool      `gorm:"column:initialized;not null;default:false"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SaveCredential upserts the single credential row.
func (c *Client) SaveCredential(ctx context.Context, token string, userJSON []byte) error {
	record := CredentialRecord{
		ID:          singletonRowID,
		AccessToken: token,
		UserJSON:    string(userJSON),
	}
	return c.conn.WithContext(ctx).Save(&record).Error
}

// LoadCredential returns the stored token and user payload, or empty values
// when nothing has been persisted yet.
func (c *Client) LoadCredential(ctx context.Context) (string, []byte, error) {
	var record CredentialRecord
	err := c.conn.WithContext(ctx).First(&record, singletonRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return record.AccessToken, []byte(record.UserJSON), nil
}

// ClearCredential removes the stored credential row.
func (c *Client) ClearCredential(ctx context.Context) error {
	return c.conn.WithContext(ctx).Delete(&CredentialRecord{}, singletonRowID).Error
}

// SaveCartSnapshot upserts the persisted cart slice.
func (c *Client) SaveCartSnapshot(ctx context.Context, payload []byte, initialized bool) error {
	record := CartSnapshot{
		ID:          singletonRowID,
		Payload:     string(payload),
		Initialized: initialized,
	}
	return c.conn.WithContext(ctx).Save(&record).Error
}

// LoadCartSnapshot returns the persisted cart payload and initialized flag.
func (c *Client) LoadCartSnapshot(ctx context.Context) ([]byte, bool, error) {
	var record CartSnapshot
	err := c.conn.WithContext(ctx).First(&record, singletonRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(record.Payload), record.Initialized, nil
}

// ClearCartSnapshot removes the persisted cart slice.
func (c *Client) ClearCartSnapshot(ctx context.Context) error {
	return c.conn.WithContext(ctx).Delete(&CartSnapshot{}, singletonRowID).Error
}
