// Command taskboard はタスクボードのAPIサーバーと管理サブコマンドを提供する。
//
//	taskboard [serve]            APIサーバーを起動する
//	taskboard migrate [up|down|version]
//	taskboard healthcheck        コンテナのヘルスチェック
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/taskboard/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
