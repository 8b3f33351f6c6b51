// reconcile-ads-chats đối chiếu insight quảng cáo với hội thoại trong kỳ và liệt kê
// khách có dấu hiệu đã thanh toán.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	reconciledto "data_hub/internal/api/reconcile/dto"
	"data_hub/internal/app"
	"data_hub/internal/common"
	"data_hub/internal/global"
)

func main() {
	period := flag.String("period", time.Now().Format("2006-01"), "kỳ đối soát: YYYY-MM hoặc YYYY-MM-DD")
	flag.Parse()

	os.Exit(app.Main("reconcile-ads-chats", app.Options{}, func(ctx context.Context, a *app.App) error {
		q := reconciledto.AdsChatQuery{Period: *period}
		if err := global.Struct(q); err != nil {
			return common.WithDetails(common.ErrInvalidInput, err.Error())
		}
		report, err := a.Reports.AdsChatReport(ctx, q.Period)
		if err != nil {
			return err
		}
		report.Print(os.Stdout)
		return nil
	}))
}
