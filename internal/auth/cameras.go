package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrCameraIDRequired is returned when registering an empty camera id.
var ErrCameraIDRequired = errors.New("camera id required")

// Cameras persists registered cameras and their refresh tokens.
type Cameras struct {
	db *sql.DB
}

func NewCameras(db *sql.DB) *Cameras {
	return &Cameras{db: db}
}

// Register records a camera; registering twice is a no-op.
func (r *Cameras) Register(ctx context.Context, cameraID string) error {
	cameraID = strings.TrimSpace(cameraID)
	if cameraID == "" {
		return ErrCameraIDRequired
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO cameras (camera_id) VALUES ($1) ON CONFLICT (camera_id) DO NOTHING`, cameraID)
	return err
}

// SaveRefreshToken stores an issued refresh token.
func (r *Cameras) SaveRefreshToken(ctx context.Context, cameraID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO refresh_tokens (camera_id, token, expires_at) VALUES ($1, $2, $3)`,
		cameraID, token, expiresAt.UTC())
	return err
}

// RevokeTokens revokes every refresh token of a camera.
func (r *Cameras) RevokeTokens(ctx context.Context, cameraID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE camera_id = $1 AND revoked = FALSE`, cameraID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
