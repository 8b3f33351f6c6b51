// sync-aliases ghi alias nhân viên từ file quy tắc (RECONCILE_RULES_FILE).
package main

import (
	"flag"
	"os"

	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/app"
)

func main() {
	flag.Parse()
	os.Exit(app.RunJobMain(reconcilesvc.JobSyncAliases, app.Options{}))
}
