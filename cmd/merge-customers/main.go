// merge-customers gộp hồ sơ khách trùng id Facebook; hồ sơ bị gộp được chuyển vào
// backup_reconciliation_<ms>.
package main

import (
	"flag"
	"os"

	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/app"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "chỉ tính toán nhóm và hồ sơ canonical, không ghi")
	flag.Parse()
	os.Exit(app.RunJobMain(reconcilesvc.JobMergeCustomers, app.Options{DryRun: *dryRun}))
}
