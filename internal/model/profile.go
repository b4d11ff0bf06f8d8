package model

import "time"

// Profile はIdentityと1対1で対応するアプリケーションプロフィールを表す。
// 主キーはIdentity.IDと同一の値を共有する（別個の生成キーを持たない）。
// プロビジョニングまたは修復プロシージャによってのみ作成され、
// 作成後は所有者本人のみが更新できる。
type Profile struct {
	ID          string
	Email       string
	FullName    string
	AvatarURL   string
	Preferences map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
