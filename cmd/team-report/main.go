// team-report in doanh thu, lead và tỉ lệ chuyển đổi theo nhân viên phụ trách.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	reconciledto "data_hub/internal/api/reconcile/dto"
	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/app"
)

func main() {
	from := flag.String("from", "", "ngày tham gia từ (YYYY-MM-DD)")
	to := flag.String("to", "", "ngày tham gia đến, bao gồm (YYYY-MM-DD)")
	flag.Parse()

	os.Exit(app.Main("team-report", app.Options{}, func(ctx context.Context, a *app.App) error {
		start, end, err := reconciledto.TeamReportQuery{From: *from, To: *to}.Range()
		if err != nil {
			return err
		}
		report, err := a.Reports.TeamReport(ctx, reconcilesvc.TeamReportOptions{From: start, To: end, Now: time.Now()})
		if err != nil {
			return err
		}
		report.Print(os.Stdout)
		return nil
	}))
}
