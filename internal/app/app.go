package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/care-scheduling/internal/api"
	"github.com/hackgods/care-scheduling/internal/appointment"
	"github.com/hackgods/care-scheduling/internal/availability"
	"github.com/hackgods/care-scheduling/internal/config"
	"github.com/hackgods/care-scheduling/internal/db"
	"github.com/hackgods/care-scheduling/internal/events"
	"github.com/hackgods/care-scheduling/internal/notify"
	"github.com/hackgods/care-scheduling/internal/professional"
	redisclient "github.com/hackgods/care-scheduling/internal/redis"
	"github.com/hackgods/care-scheduling/internal/storage/memory"
	"github.com/hackgods/care-scheduling/internal/tracking"
)

// Registry is the write side of the professional directory, used by seeding.
type Registry interface {
	professional.Directory
	Save(ctx context.Context, p professional.Professional) error
}

// App holds the wired services of one process.
type App struct {
	Appointments *appointment.Service
	Availability *availability.Service
	Tracking     *tracking.Service
	Directory    Registry
	Dispatcher   *events.Dispatcher[appointment.Event]
	Dependencies []api.Dependency

	closers []func()
}

// New connects the configured storage and Redis and wires the services on top.
func New(ctx context.Context, cfg config.Config, log *logrus.Logger) (*App, error) {
	a := &App{}

	var (
		apptStore   appointment.Store
		recordStore tracking.Store
	)

	switch cfg.StorageDriver {
	case config.StorageMemory:
		a.Directory = memory.NewDirectory()
		apptStore = memory.NewAppointmentStore()
		recordStore = memory.NewTrackingStore()
		log.Warn("using in-memory storage, data is lost on exit")
	default:
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		log.Info("connected to Postgres")

		if cfg.ApplySchema {
			if err := db.ApplySchema(ctx, pool); err != nil {
				a.Close()
				return nil, fmt.Errorf("apply schema: %w", err)
			}
			log.Info("schema applied")
		}

		a.Directory = professional.NewPgRepository(pool)
		apptStore = appointment.NewPgRepository(pool)
		recordStore = tracking.NewPgRepository(pool)
		a.Dependencies = append(a.Dependencies, api.Dependency{Name: "postgres", Pinger: pool})
	}

	var notifiers notify.Multi
	notifiers = append(notifiers, notify.NewLogNotifier(log))

	var opts []appointment.Option
	if cfg.RedisEnabled {
		rdb, err := redisclient.NewRedisClient(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := rdb.Close(); err != nil {
				log.WithError(err).Warn("error closing redis")
			}
		})
		log.Info("connected to Redis")

		notifiers = append(notifiers, notify.NewRedisNotifier(rdb, cfg.NotifyChannel, log))
		if cfg.BookingLock {
			opts = append(opts, appointment.WithLocker(redisclient.NewProfessionalLocker(rdb, cfg.LockTTL)))
		}
		a.Dependencies = append(a.Dependencies, api.Dependency{Name: "redis", Pinger: redisPinger(rdb), Optional: true})
	}

	a.Dispatcher = events.NewDispatcher[appointment.Event](log, cfg.SideEffectTimeout)
	a.Tracking = tracking.NewService(recordStore, log)
	a.Appointments = appointment.NewService(apptStore, a.Directory, a.Dispatcher, cfg, log, opts...)
	a.Availability = availability.NewService(a.Directory, a.Appointments, cfg.Location)

	a.Dispatcher.Subscribe(appointment.EventConfirmed, "tracking-projection", a.Tracking.HandleConfirmed)
	a.Dispatcher.SubscribeAll("notifier", appointment.NotifyHandler(notifiers))

	return a, nil
}

// Close waits for in-flight event consumers, then releases connections in reverse order.
func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func redisPinger(rdb *redis.Client) api.PingFunc {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
