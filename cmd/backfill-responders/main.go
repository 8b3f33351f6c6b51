// backfill-responders điền responderId cho tin nhắn và assignedEmployeeId cho hội thoại
// từ tên hiển thị. Chạy lại an toàn.
package main

import (
	"flag"
	"os"

	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/app"
)

func main() {
	flag.Parse()
	os.Exit(app.RunJobMain(reconcilesvc.JobBackfillResponders, app.Options{}))
}
