package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/letterbox/letterbox/internal/config"
	"github.com/letterbox/letterbox/internal/dedup"
	"github.com/letterbox/letterbox/internal/event_bus"
	"github.com/letterbox/letterbox/internal/scheduler"
	"github.com/letterbox/letterbox/internal/utils"
	"github.com/letterbox/letterbox/pkg/calendar"
	"github.com/letterbox/letterbox/pkg/letter"
	"github.com/letterbox/letterbox/pkg/notification"
	"github.com/letterbox/letterbox/pkg/notifier"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	DB       *pgxpool.Pool
	Clock    utils.Clock
	EventBus *event_bus.EventBus
	Guard    dedup.Guard

	LetterRepo    letter.Repository
	LetterService letter.Service
	LetterHandler *letter.Handler

	CalendarService *calendar.Service
	CalendarHandler *calendar.Handler

	NotificationRepo    notification.Repository
	NotificationService notification.Service
	NotificationHandler *notification.Handler

	Scheduler  *scheduler.Registry
	JobHandler *scheduler.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
// guard decides whether reminders are deduplicated; pass dedup.AllowAll{} to disable.
func BuildDependencies(db *pgxpool.Pool, guard dedup.Guard, bus *event_bus.EventBus, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.DB = db
	deps.Clock = &utils.SystemClock{}
	deps.EventBus = bus
	deps.Guard = guard

	deps.LetterRepo = letter.NewRepository(db)
	deps.LetterService = letter.NewService(deps.LetterRepo, deps.EventBus)
	deps.LetterHandler = letter.NewHandler(deps.LetterService)

	deps.CalendarService = calendar.NewService(calendar.NewLetterSources(deps.LetterRepo), deps.Clock, cfg.Calendar.UpcomingDefaultLimit)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService, deps.Clock, cfg.Calendar.MaxLimit)

	deps.NotificationRepo = notification.NewRepository(db)
	deps.NotificationService = notification.NewService(deps.NotificationRepo, deps.EventBus, deps.Clock)
	deps.NotificationHandler = notification.NewHandler(deps.NotificationService)

	deps.Scheduler = scheduler.New(cfg.Scheduler.Timezone, deps.EventBus)
	deps.JobHandler = scheduler.NewHandler(deps.Scheduler)
	registerJobs(deps, cfg.Scheduler)

	return deps
}

func registerJobs(deps *Dependencies, cfg config.Scheduler) {
	jobs := []scheduler.Job{
		notifier.NewUpcomingEventsJob(cfg.UpcomingCheck, cfg.UpcomingWindowDays, deps.CalendarService, deps.NotificationService, deps.Guard, deps.Clock),
		notifier.NewOverdueInvitationsJob(cfg.OverdueCheck, deps.LetterRepo, deps.NotificationService, deps.Guard, deps.Clock),
		notifier.NewWeeklySummaryJob(cfg.WeeklySummary, deps.LetterRepo, deps.NotificationService, deps.Clock),
	}
	for _, job := range jobs {
		// failures are logged by the registry and the job is skipped
		_ = deps.Scheduler.Register(job)
	}
}
