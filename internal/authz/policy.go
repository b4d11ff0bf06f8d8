// Package authz はテーブル×操作単位の宣言的アクセス制御ポリシーを提供する。
//
// ストレージ層の行レベルセキュリティに相当する判定を、
// (プリンシパル, テーブル, 操作, 行) → 許可/拒否 の純粋関数として実装する。
// デフォルトは拒否であり、いずれかのポリシーに一致した場合のみ許可される（論理和）。
// サービス層はリポジトリへのすべてのデータアクセス前にこの判定を通すこと。
package authz

import (
	"github.com/hitoshi/taskman/internal/model"
)

// Role はプリンシパルの権限区分を表す。
type Role string

const (
	// RoleAnonymous は未認証のプリンシパル。現行のポリシーセットでは一切の許可を持たない。
	RoleAnonymous Role = "anonymous"
	// RoleAuthenticated はセッションで認証された一般ユーザー。
	RoleAuthenticated Role = "authenticated"
	// RoleService はプロビジョニング専用の昇格プリンシパル。
	// エンドユーザーのセッションには決して露出しない。
	RoleService Role = "service"
)

// Principal はアクセス判定の主体を表す。
type Principal struct {
	Role   Role
	UserID string // RoleAuthenticatedの場合のみ設定される
}

// Anonymous は未認証プリンシパルを返す。
func Anonymous() Principal {
	return Principal{Role: RoleAnonymous}
}

// Authenticated は指定ユーザーIDの認証済みプリンシパルを返す。
func Authenticated(userID string) Principal {
	return Principal{Role: RoleAuthenticated, UserID: userID}
}

// Service はプロビジョニング用の昇格プリンシパルを返す。
func Service() Principal {
	return Principal{Role: RoleService}
}

// Operation はデータアクセスの操作種別を表す。
type Operation string

const (
	// OpSelect は行の読み取り。
	OpSelect Operation = "select"
	// OpInsert は行の作成。
	OpInsert Operation = "insert"
	// OpUpdate は行の更新。
	OpUpdate Operation = "update"
	// OpDelete は行の削除。
	OpDelete Operation = "delete"
)

// 管理対象テーブル名。
const (
	TableProfiles   = "profiles"
	TableCategories = "categories"
	TableTasks      = "tasks"
)

// Row は判定対象行の所有情報を表す。
// profilesテーブルでは行ID（= Identity ID）をOwnerIDとして扱う。
type Row struct {
	OwnerID string
}

// Policy は1つのアクセス許可規則を表す。
// Checkが真を返した場合のみ、このポリシーは該当操作を許可する。
type Policy struct {
	Name       string
	Table      string
	Operations []Operation
	Check      func(p Principal, row Row) bool
}

// appliesTo はこのポリシーが指定のテーブル×操作を対象とするかを判定する。
func (pl *Policy) appliesTo(table string, op Operation) bool {
	if pl.Table != table {
		return false
	}
	for _, o := range pl.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// PolicySet はテーブル×操作ごとのポリシーの集合。
// イミュータブルとして扱い、構築後の変更は行わない。
type PolicySet struct {
	policies []Policy
}

// NewPolicySet は指定されたポリシーからPolicySetを構築する。
func NewPolicySet(policies ...Policy) *PolicySet {
	return &PolicySet{policies: policies}
}

// ownerMatch は認証済みプリンシパルが行の所有者と一致するかを判定する。
func ownerMatch(p Principal, row Row) bool {
	return p.Role == RoleAuthenticated && p.UserID != "" && p.UserID == row.OwnerID
}

// isService はプリンシパルが昇格サービスロールかを判定する。
func isService(p Principal, row Row) bool {
	return p.Role == RoleService
}

// NewDefaultPolicySet はアプリケーション既定のポリシーセットを構築する。
//
// profiles:
//   - 本人のみ select / update 可能（行ID = プリンシパルID）。
//   - insert は本人（自己登録経路）またはサービスロール（プロビジョニング経路）。
//
// categories / tasks:
//   - 所有者一致で select / insert / update / delete を一括許可。
//   - categories の insert のみサービスロールにも許可（既定カテゴリのシード用）。
//
// サービスロールが持つ権限は profiles insert と categories insert の2つだけであり、
// それ以外の操作はサービスロールでも拒否される。
// 匿名プリンシパルへの許可は存在しない。
func NewDefaultPolicySet() *PolicySet {
	return NewPolicySet(
		Policy{
			Name:       "profile_owner_select_update",
			Table:      TableProfiles,
			Operations: []Operation{OpSelect, OpUpdate},
			Check:      ownerMatch,
		},
		Policy{
			Name:       "profile_self_insert",
			Table:      TableProfiles,
			Operations: []Operation{OpInsert},
			Check:      ownerMatch,
		},
		Policy{
			Name:       "profile_service_insert",
			Table:      TableProfiles,
			Operations: []Operation{OpInsert},
			Check:      isService,
		},
		Policy{
			Name:       "category_owner_all",
			Table:      TableCategories,
			Operations: []Operation{OpSelect, OpInsert, OpUpdate, OpDelete},
			Check:      ownerMatch,
		},
		Policy{
			Name:       "category_service_insert",
			Table:      TableCategories,
			Operations: []Operation{OpInsert},
			Check:      isService,
		},
		Policy{
			Name:       "task_owner_all",
			Table:      TableTasks,
			Operations: []Operation{OpSelect, OpInsert, OpUpdate, OpDelete},
			Check:      ownerMatch,
		},
	)
}

// Allows はプリンシパルが指定のテーブル×操作×行にアクセスできるかを判定する。
// いずれのポリシーにも一致しない場合は拒否する。
func (ps *PolicySet) Allows(p Principal, table string, op Operation, row Row) bool {
	for i := range ps.policies {
		pl := &ps.policies[i]
		if !pl.appliesTo(table, op) {
			continue
		}
		if pl.Check != nil && pl.Check(p, row) {
			return true
		}
	}
	return false
}

// Authorize はアクセス可否を判定し、拒否の場合はACCESS_DENIEDエラーを返す。
// このエラーは終端であり、呼び出し元は再試行してはならない。
func (ps *PolicySet) Authorize(p Principal, table string, op Operation, row Row) error {
	if ps.Allows(p, table, op, row) {
		return nil
	}
	return model.NewAccessDeniedError(table, string(op))
}
