// Package app - khởi tạo dependency dùng chung cho CLI và server: cấu hình, store theo driver,
// lock, event bus, bộ quy tắc và các job đối soát.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"data_hub/config"
	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/common"
	"data_hub/internal/database"
	"data_hub/internal/events"
	"data_hub/internal/global"
	"data_hub/internal/lock"
	"data_hub/internal/logger"
	"data_hub/internal/ruleset"
	"data_hub/internal/store/filestore"
	"data_hub/internal/store/mongostore"
	"data_hub/internal/store/sqlstore"
)

// Options tuỳ chọn theo lần chạy (cờ CLI)
type Options struct {
	// DryRun merge-customers chỉ tính toán, không ghi
	DryRun bool
}

// Backend store đã mở. Mỗi driver chỉ cung cấp một phần các port; job nào thiếu port thì không đăng ký.
type Backend interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
}

// App dependency đã khởi tạo
type App struct {
	Config    *config.Configuration
	Rules     *ruleset.Rules
	Backend   Backend
	Locker    reconcilesvc.Locker
	Publisher reconcilesvc.Publisher
	Service   *reconcilesvc.ReconcileService
	Reports   *reconcilesvc.ReportService

	closers []func(ctx context.Context) error
}

// New khởi tạo toàn bộ dependency. Lỗi trả về là lỗi setup: CLI in ra và thoát khác 0.
func New(ctx context.Context, cfg *config.Configuration, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, common.WithDetails(common.ErrConfiguration, err.Error())
	}
	global.InitValidator()

	rules, err := ruleset.Load(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Rules: rules}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.Background())
		}
	}()

	if a.Backend, err = OpenBackend(ctx, cfg); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Backend.Close)

	if a.Locker, err = a.openLocker(ctx); err != nil {
		return nil, err
	}
	if a.Publisher, err = OpenPublisher(ctx, cfg); err != nil {
		return nil, err
	}
	publisher := a.Publisher
	a.closers = append(a.closers, func(context.Context) error { return publisher.Close() })

	a.Service = reconcilesvc.NewReconcileService(a.Locker, a.Publisher)
	if err := a.registerJobs(opts); err != nil {
		return nil, err
	}
	a.Reports = a.newReportService()

	ok = true
	logger.GetAppLogger().WithFields(map[string]interface{}{
		"store": cfg.StoreDriver,
		"bus":   cfg.EventBus,
		"jobs":  a.Service.JobNames(),
	}).Info("🔁 [RECONCILE] Khởi tạo dependency thành công")
	return a, nil
}

// OpenBackend mở store theo STORE_DRIVER
func OpenBackend(ctx context.Context, cfg *config.Configuration) (Backend, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, err := database.GetInstance(ctx, cfg)
		if err != nil {
			return nil, err
		}
		names := global.DefaultCollectionNames()
		store := mongostore.New(client, cfg.MongoDB_DBName_Data, names, cfg.MongoDB_UseTransactions)
		if err := database.CreateReconcileIndexes(ctx, store.Database(), names); err != nil {
			logger.GetAppLogger().WithError(err).Warn("Không tạo được index đối soát, tiếp tục chạy")
		}
		return store, nil
	case config.StoreDriverPostgres, config.StoreDriverSQLite:
		driver := sqlstore.DriverPostgres
		if cfg.StoreDriver == config.StoreDriverSQLite {
			driver = sqlstore.DriverSQLite
		}
		store, err := sqlstore.Open(ctx, driver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreDriverFile:
		store, err := filestore.Open(cfg.ProfileDataDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, common.WithDetails(common.ErrConfiguration, fmt.Sprintf("unknown STORE_DRIVER %q", cfg.StoreDriver))
	}
}

// OpenPublisher mở event bus theo EVENT_BUS
func OpenPublisher(ctx context.Context, cfg *config.Configuration) (reconcilesvc.Publisher, error) {
	switch cfg.EventBus {
	case config.EventBusAMQP:
		p, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.EventBusNATS:
		p, err := events.NewNATSPublisher(ctx, cfg.NatsURL, cfg.NatsStream)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "", config.EventBusNone:
		return events.NoopPublisher{}, nil
	default:
		return nil, common.WithDetails(common.ErrConfiguration, fmt.Sprintf("unknown EVENT_BUS %q", cfg.EventBus))
	}
}

// openLocker Redis nếu có REDIS_URL, ngược lại lock trong tiến trình
func (a *App) openLocker(ctx context.Context) (reconcilesvc.Locker, error) {
	if a.Config.RedisURL == "" {
		return lock.NewLocalLocker(), nil
	}
	l, err := lock.NewRedisLocker(ctx, a.Config.RedisURL, a.Config.LockTTL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return l.Close() })
	return l, nil
}

// registerJobs đăng ký job theo các port mà backend cung cấp
func (a *App) registerJobs(opts Options) error {
	resolver := a.Rules.ResolverOptions(a.Config.PageName)
	b := a.Backend

	var jobs []reconcilesvc.Job
	employees, hasEmployees := b.(reconcilesvc.EmployeeStore)
	messages, hasMessages := b.(reconcilesvc.MessageStore)
	conversations, hasConversations := b.(reconcilesvc.ConversationStore)
	orders, hasOrders := b.(reconcilesvc.OrderStore)
	profiles, hasProfiles := b.(reconcilesvc.ProfileStore)

	if hasEmployees && hasMessages && hasConversations {
		jobs = append(jobs, &reconcilesvc.ResponderBackfillJob{
			Employees: employees, Messages: messages, Conversations: conversations, Resolver: resolver,
		})
	}
	if hasOrders && hasMessages && hasConversations {
		jobs = append(jobs, &reconcilesvc.OrderAttributionJob{
			Orders: orders, Messages: messages, Conversations: conversations,
			Locker: a.Locker, Publisher: a.Publisher,
			Options: reconcilesvc.AttributionOptions{FallbackMargin: a.Config.AttributionFallbackMargin},
		})
	}
	if hasProfiles {
		jobs = append(jobs, &reconcilesvc.ProfileMergeJob{
			Profiles: profiles, Locker: a.Locker, Publisher: a.Publisher,
			Options: a.Rules.MergeOptions(), DryRun: opts.DryRun,
		})
	}
	if hasEmployees {
		jobs = append(jobs, &reconcilesvc.AliasSyncJob{Employees: employees, Mappings: a.Rules.Aliases})
	}

	for _, job := range jobs {
		if err := a.Service.Register(job); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) newReportService() *reconcilesvc.ReportService {
	r := &reconcilesvc.ReportService{
		Resolver:     a.Rules.ResolverOptions(a.Config.PageName),
		AdsChatRules: a.Rules.AdsChatRules(a.Config.PageName),
		Now:          time.Now,
	}
	if s, ok := a.Backend.(reconcilesvc.EmployeeStore); ok {
		r.Employees = s
	}
	if s, ok := a.Backend.(reconcilesvc.ProfileStore); ok {
		r.Profiles = s
	}
	if s, ok := a.Backend.(reconcilesvc.AdsChatSource); ok {
		r.AdsChat = s
	}
	return r
}

// RunAndPrint chạy job qua service và in summary
func (a *App) RunAndPrint(ctx context.Context, job string, w io.Writer) error {
	summary, err := a.Service.RunJob(ctx, job)
	if err != nil {
		if errors.Is(err, common.ErrUnknownJob) {
			return common.WithDetails(common.ErrConfiguration,
				fmt.Sprintf("job %s không chạy được với STORE_DRIVER=%s", job, a.Config.StoreDriver))
		}
		return err
	}
	summary.Print(w)
	return nil
}

// Close đóng mọi kết nối theo thứ tự ngược lại
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
