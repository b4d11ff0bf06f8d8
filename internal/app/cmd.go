package app

// Command はtaskmanバイナリの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーとして起動する。デフォルト。
	CommandServe Command = "serve"
	// CommandWorker はセッション清掃ワーカーとして起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中APIの/healthを叩いて終了コードで結果を返す。
	// シェルを持たないdistrolessコンテナのヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// knownCommands はサブコマンド名からCommandへの対応表。
var knownCommands = map[string]Command{
	"serve":       CommandServe,
	"worker":      CommandWorker,
	"migrate":     CommandMigrate,
	"healthcheck": CommandHealthcheck,
}

// ParseCommand は先頭引数からサブコマンドを決定する。
// 引数なし・未知のサブコマンドはいずれもCommandServeに倒す。
// 2番目以降の引数は無視される。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := knownCommands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
