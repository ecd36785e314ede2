package model

import (
	"time"

	"gorm.io/gorm"
)

// Session is the server-side identity of a logged-in portal user.
// Only the HMAC digest of the session token is stored.
type Session struct {
	gorm.Model
	TokenDigest string    `json:"-" gorm:"column:token_digest;type:varchar(64);uniqueIndex"`
	Email       string    `json:"email" gorm:"column:email;type:varchar(191);index"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"column:expires_at;index"`
	ClientIP    string    `json:"client_ip" gorm:"column:client_ip;type:varchar(45)"`
	Browser     string    `json:"browser" gorm:"column:browser;type:varchar(512)"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// FindActiveSession loads the unexpired session with the given token digest.
func FindActiveSession(db *gorm.DB, digest string, now time.Time) (Session, error) {
	var s Session
	err := db.Where("token_digest = ? AND expires_at > ?", digest, now).First(&s).Error
	return s, err
}

// DeleteSession soft-deletes the session with the given token digest.
func DeleteSession(db *gorm.DB, digest string) (Session, error) {
	var s Session
	if err := db.Where("token_digest = ?", digest).First(&s).Error; err != nil {
		return s, err
	}
	return s, db.Delete(&s).Error
}

// PurgeExpiredSessions hard-deletes sessions that expired before now.
func PurgeExpiredSessions(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Unscoped().Where("expires_at <= ?", now).Delete(&Session{})
	return res.RowsAffected, res.Error
}

// DeleteUserSessions soft-deletes every session of email and returns their digests.
func DeleteUserSessions(db *gorm.DB, email string) ([]string, error) {
	var digests []string
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Session{}).Where("email = ?", email).Pluck("token_digest", &digests).Error; err != nil {
			return err
		}
		return tx.Where("email = ?", email).Delete(&Session{}).Error
	})
	return digests, err
}
