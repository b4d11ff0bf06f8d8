package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/taskman/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定ID（= Identity ID）のプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	profile := &model.Profile{}
	var prefsJSON []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, avatar_url, preferences, created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(
		&profile.ID, &profile.Email, &profile.FullName, &profile.AvatarURL,
		&prefsJSON, &profile.CreatedAt, &profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}

	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &profile.Preferences); err != nil {
			return nil, fmt.Errorf("failed to decode preferences: %w", err)
		}
	}
	if profile.Preferences == nil {
		profile.Preferences = map[string]any{}
	}

	return profile, nil
}

// InsertIgnoreExisting はプロフィールを作成する。
// 同一IDの行が既に存在する場合はON CONFLICT DO NOTHINGにより何もせずfalseを返す。
// 重複以外のエラー（制約違反など）はそのまま返すため、
// 無関係なエラーを冪等成功として飲み込むことはない。
func (r *PostgresProfileRepo) InsertIgnoreExisting(ctx context.Context, profile *model.Profile) (bool, error) {
	prefsJSON, err := encodePreferences(profile.Preferences)
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, full_name, avatar_url, preferences, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		profile.ID, profile.Email, profile.FullName, profile.AvatarURL,
		prefsJSON, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return false, translateWriteError(err, "failed to insert profile")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Update はプロフィールの表示名・アバターURL・設定を更新する。
// updated_atはストレージ層のBEFORE UPDATEトリガーが自動更新する。
func (r *PostgresProfileRepo) Update(ctx context.Context, profile *model.Profile) (bool, error) {
	prefsJSON, err := encodePreferences(profile.Preferences)
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET full_name = $2, avatar_url = $3, preferences = $4
		 WHERE id = $1`,
		profile.ID, profile.FullName, profile.AvatarURL, prefsJSON,
	)
	if err != nil {
		return false, translateWriteError(err, "failed to update profile")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// encodePreferences はpreferencesマップをJSONBカラム用にエンコードする。
// nilマップは空オブジェクトとして保存する。
func encodePreferences(prefs map[string]any) ([]byte, error) {
	if prefs == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preferences: %w", err)
	}
	return data, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
