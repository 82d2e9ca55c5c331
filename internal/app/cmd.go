package app

// Command はアプリケーションの起動モードを表す。
// APIとワーカーを同一バイナリに同梱し、サブコマンドで切り替える。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	// 店舗・商品・レビュー・注文のHTTPエンドポイントを提供する。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	// 評価集計と論理削除済み商品のパージを定期実行する。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
