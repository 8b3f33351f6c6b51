// backfill-order-attribution gán closedById/conversationId cho đơn hàng theo tin nhắn
// gần nhất trước thời điểm đặt đơn. Nên chạy sau backfill-responders.
package main

import (
	"flag"
	"os"

	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/app"
)

func main() {
	flag.Parse()
	os.Exit(app.RunJobMain(reconcilesvc.JobBackfillOrderAttribution, app.Options{}))
}
