// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は認証主体（登録ユーザー）を表す。
// メールアドレスとパスワードで認証し、ProfileとはIDで1対1に対応する。
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// TokenHashにはクライアントへ発行した不透明トークンのSHA-256ハッシュを保存する。
// 平文トークンはDBに保存しない。
type Session struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
