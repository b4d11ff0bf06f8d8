// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService はユーザー入力のプレーンテキストフィールド
// （表示名、カテゴリ名、タスクのタイトル・説明）をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリのStrictPolicyを使用し、すべてのHTMLタグを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService は入力テキストのサニタイズ機能のインターフェースを定義する。
// 永続化される全フリーテキストフィールドの保存前に使用される。
// 文字数バリデーションはサニタイズ後の値に対して行うこと。
type InputSanitizerService interface {
	// SanitizeText は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// タグ除去後にHTMLエンティティを復元するため、"a & b" のような
	// 通常のテキストは変化しない。前後の空白は除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、<script>や<img>を含む
// あらゆるマークアップがテキストのみに縮退する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
func (s *inputSanitizer) SanitizeText(raw string) string {
	// StrictPolicyはタグ除去後のテキストをエンティティエスケープするため、
	// プレーンテキストとして保存できるよう復元する。
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
