/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	adaptersin "tier-scanner/adapters/in"
	adaptersout "tier-scanner/adapters/out"
	"tier-scanner/common"
	"tier-scanner/config"
	"tier-scanner/domain/entities"
	portsout "tier-scanner/domain/ports/out"
	"tier-scanner/domain/services"
	"tier-scanner/domain/services/admission"
	"tier-scanner/domain/services/notification"
	"tier-scanner/domain/services/orchestrator"
	"tier-scanner/domain/services/scan"
	"tier-scanner/domain/services/stages"
	"tier-scanner/domain/services/stats"
	scannerhttp "tier-scanner/http"
	"tier-scanner/logging"
	"tier-scanner/metrics"
	"tier-scanner/pkg/awsutils"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"
	"github.com/uber-go/tally/v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

const (
	eventBuffer     = 256
	shutdownTimeout = 30 * time.Second
	virusTotalKey   = "virustotal"
)

// infrastructure holds what is shared between the pipeline and the HTTP
// surface, and has to be closed on the way out.
type infrastructure struct {
	cache   *adaptersout.AWSCache
	db      *sql.DB
	closers []io.Closer
}

func (i *infrastructure) Close(logger logging.Logger) {
	for index := len(i.closers) - 1; index >= 0; index-- {
		if err := i.closers[index].Close(); err != nil {
			logger.Warnw("Failed to close resource", "error", err)
		}
	}
}

//nolint:cyclop
func Start(ctx context.Context) error {
	runtime.GOMAXPROCS(runtime.NumCPU())

	appConfig, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Enable Datadog tracer
	tracer.Start()
	defer tracer.Stop()

	// Enable Datadog Profiler
	if err = profiler.Start(); err != nil {
		return err
	}
	defer profiler.Stop()

	logger, err := logging.NewZapLogger(appConfig.Scanner.DebugLog)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	var metricsHandler http.Handler
	var metricsScope tally.Scope
	var metricsClose io.Closer

	if appConfig.HTTPServer.Metrics {
		metricsScope, metricsHandler, metricsClose = metrics.NewPrometheusScope()
		defer metricsClose.Close()
	} else {
		metricsScope, metricsHandler, _ = metrics.NewNoopScope()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var client awsutils.Clients
	awsSession, err := client.Session(awsutils.SessionConfig{
		Region:    appConfig.Aws.Region,
		Endpoint:  appConfig.Aws.Resolver,
		AccessKey: appConfig.Aws.AccessKey,
		SecretKey: appConfig.Aws.SecretKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize aws client. Error: %s, Region: %s, Resolver: %s", err, appConfig.Aws.Region, appConfig.Aws.Resolver)
	}

	infra := &infrastructure{}
	defer infra.Close(logger)

	if appConfig.Redis.URL != "" {
		infra.cache = adaptersout.NewCache(appConfig.Redis.URL, appConfig.Redis.Password, appConfig.Redis.UseTLS)
		infra.closers = append(infra.closers, infra.cache)
	}

	retryPolicy := adaptersout.NewRetryPolicy(appConfig.Scanner.MaxAttempts, appConfig.Scanner.RetryBaseDelay, appConfig.Scanner.RetryMaxDelay)

	queue, reaper := newJobQueue(appConfig, infra, retryPolicy, logger)

	store, err := newResultStore(ctx, appConfig, infra)
	if err != nil {
		return err
	}

	// Storages
	remoteStorageFactory := adaptersout.NewRemoteStorageFactory().
		Register(adaptersout.StorageS3, adaptersout.NewS3Storage(awsSession, nil))

	if appConfig.Minio.Endpoint != "" {
		minioStorage, err := adaptersout.NewMinioStorage(ctx, adaptersout.MinioConfig{
			Endpoint:  appConfig.Minio.Endpoint,
			Region:    appConfig.Minio.Region,
			AccessKey: appConfig.Minio.AccessKey,
			SecretKey: appConfig.Minio.SecretKey,
			UseSSL:    appConfig.Minio.UseSSL,
			Buckets:   appConfig.Minio.Buckets,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize minio storage. Error: %s", err)
		}

		remoteStorageFactory.Register(adaptersout.StorageMinio, minioStorage)
	}

	localStorageFactory := adaptersout.NewLocalStorageFactory(appConfig.Scanner.MaxStorageSize)
	localSource := afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), appConfig.Scanner.LocalRoot))
	stagingService := services.NewStagingService(localStorageFactory, remoteStorageFactory, localSource, logger)

	// Scanners
	registry, err := newRegistry(appConfig, infra, logger)
	if err != nil {
		return err
	}

	// Admission
	policies, err := appConfig.TierPolicies()
	if err != nil {
		return err
	}

	tiers, err := admission.NewTierTable(policies)
	if err != nil {
		return err
	}

	warnUnregistered(policies, registry, logger)

	tracker := stats.NewTracker()
	gatekeeper := admission.NewGatekeeper(tiers, tracker, queue, store, logger)

	// Notifications
	broadcaster := notification.NewBroadcaster(tracker, appConfig.Notification.SubscriberBuffer, metricsScope, logger)
	notificationHandler := notification.NewNotificationHandler(broadcaster, tracker, logger)
	dispatcher := notification.NewDispatcher(tracker, newNotificationJobs(appConfig, awsSession, infra, tracker, remoteStorageFactory, logger), logger)

	// Channels
	events := make(chan *entities.Event, eventBuffer)

	scanOrchestrator := orchestrator.NewOrchestrator(queue, store, stagingService, registry, dispatcher, events, orchestrator.Config{
		Workers:      appConfig.Scanner.Workers,
		PollInterval: appConfig.Scanner.PollInterval,
	}, metricsScope, logger)

	// The event stage outlives the workers, so the last results still reach
	// the subscribers and the external systems.
	pipelineCtx, stopPipeline := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPipeline()

	notificationStage := stages.NewStage[entities.Event, entities.Empty](notificationHandler, events, nil, logger)
	notificationStage.Process(pipelineCtx)
	notificationsDone := dispatcher.HandleAsync(pipelineCtx, time.Duration(appConfig.Notification.UpdateInterval)*time.Second)

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		scanOrchestrator.Run(ctx)
	}()

	if reaper != nil {
		reaper.OnExhausted(scanOrchestrator.Abandon)
		go reaper.RunReaper(ctx, appConfig.Queue.ReaperInterval)
	}

	go reloadTiersOnHangup(ctx, tiers, logger)

	// Controllers
	sqsService := awsutils.SQS{}
	sqsService.Init(awsSession, nil)

	queueController := adaptersin.NewQueueController(appConfig.Aws.Queue, gatekeeper, &sqsService, metricsScope, logger)
	go queueController.AsyncScan(ctx)

	queryService := services.NewScanQueryService(store, queue, tracker, logger)
	submissionController := adaptersin.NewSubmissionController(gatekeeper, metricsScope, logger)
	resultController := adaptersin.NewResultController(queryService, logger)
	eventController := adaptersin.NewEventController(broadcaster, appConfig.Notification.KeepAlive, logger)

	fiberConfig := scannerhttp.FiberConfig{
		MaxRequestSize:    appConfig.HTTPServer.MaxRequestSize,
		AuthorizationKeys: appConfig.HTTPServer.AuthorizationKeys,
		Profiler:          appConfig.HTTPServer.Profiler,
		Swagger:           appConfig.HTTPServer.Swagger,
		Metrics:           adaptor.HTTPHandler(metricsHandler),
		RequestLogger: func(c *fiber.Ctx) error {
			err := c.Next()
			// Prevent generating lots of requests because of healthcheck
			if !strings.HasPrefix(c.Path(), "/healthcheck/") && !strings.HasPrefix(c.Path(), "/metrics") {
				logger.Infow("Received webapi request", "caller", scannerhttp.CallerFromContext(c), "ip", c.IP(),
					"method", c.Method(), "path", c.Path(), "response_status", c.Response().StatusCode())
			}
			return err
		},
		Readiness: readiness(infra, logger),
		Liveness: func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
		Handlers: []scannerhttp.Handler{
			{HTTPMethod: fiber.MethodPost, Path: "/scans", HandlerFunc: submissionController.Submit},
			{HTTPMethod: fiber.MethodGet, Path: "/scans/:id", HandlerFunc: resultController.GetResult},
			{HTTPMethod: fiber.MethodDelete, Path: "/scans/:id", HandlerFunc: submissionController.Cancel},
			{HTTPMethod: fiber.MethodGet, Path: "/files/:id/history", HandlerFunc: resultController.GetFileHistory},
			{HTTPMethod: fiber.MethodGet, Path: "/queue", HandlerFunc: resultController.GetQueueStatus},
			{HTTPMethod: fiber.MethodGet, Path: "/stats", HandlerFunc: resultController.GetStats},
			{HTTPMethod: fiber.MethodGet, Path: "/events", HandlerFunc: eventController.Stream},
		},
	}

	app, err := scannerhttp.CreateFiberApp(fiberConfig, logger)
	if err != nil {
		stop()
		<-workersDone
		return fmt.Errorf("failed to initialize fiber framework. Error: %s", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(fmt.Sprintf(":%d", appConfig.HTTPServer.Port))
	}()

	select {
	case err = <-serverErr:
		logger.Errorw("HTTP server stopped", "error", err)
		stop()
	case <-ctx.Done():
		logger.Infow("Shutdown requested")
	}

	// Open event streams only end once the broadcaster closes them.
	broadcaster.Close()

	if shutdownErr := app.ShutdownWithTimeout(shutdownTimeout); shutdownErr != nil {
		logger.Warnw("HTTP server shutdown failed", "error", shutdownErr)
	}

	<-workersDone
	stopPipeline()
	<-notificationStage.Done()
	<-notificationsDone

	logger.Infow("Shutdown completed")

	return err
}

func newJobQueue(appConfig config.AppConfig, infra *infrastructure, policy adaptersout.RetryPolicy, logger logging.Logger) (portsout.JobQueue, *adaptersout.RedisJobQueue) {
	if appConfig.Queue.Backend == config.QueueRedis {
		queue := adaptersout.NewRedisJobQueue(infra.cache.Client(), infra.cache, appConfig.Queue.Prefix, policy, appConfig.Queue.Lease, logger)
		return queue, queue
	}

	return adaptersout.NewMemoryJobQueue(policy), nil
}

func newResultStore(ctx context.Context, appConfig config.AppConfig, infra *infrastructure) (portsout.ResultStore, error) {
	if appConfig.Store.Driver == config.StoreMemory {
		return adaptersout.NewMemoryResultStore(), nil
	}

	db, err := adaptersout.ConnectSQL(ctx, appConfig.Store.Driver, appConfig.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to result store. Error: %s", err)
	}

	infra.db = db
	infra.closers = append(infra.closers, db)

	return adaptersout.NewSQLResultStore(ctx, db, appConfig.Store.Driver)
}

func newRegistry(appConfig config.AppConfig, infra *infrastructure, logger logging.Logger) (*scan.Registry, error) {
	scanners := []scan.Scanner{
		scan.NewBasicValidation(logger),
		scan.NewHeuristicScanner(logger),
	}

	if appConfig.Scanner.Clamd.Address != "" {
		scanners = append(scanners, scan.NewSignatureScanner(adaptersout.NewClamdEngine(appConfig.Scanner.Clamd.Address), logger))
	}

	ruleScanner, err := scan.NewRuleScanner(appConfig.Scanner.Rules.Dir, appConfig.Scanner.Rules.ScanLimit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rule scanner. Error: %s", err)
	}

	scanners = append(scanners, ruleScanner)

	if reputation := newReputation(appConfig, infra, logger); reputation != nil {
		scanners = append(scanners, scan.NewReputationScanner(reputation, logger))
	}

	return scan.NewRegistry(appConfig.Scanner.Timeouts.ByScanner(), logger, scanners...), nil
}

func newReputation(appConfig config.AppConfig, infra *infrastructure, logger logging.Logger) portsout.ReputationService {
	limits := common.RateLimitConfig{
		Hour:   appConfig.Scanner.Virustotal.HourLimit,
		Minute: appConfig.Scanner.Virustotal.MinuteLimit,
		Key:    virusTotalKey,
	}

	// The budget is shared by every daemon when redis is around.
	var rateLimiter portsout.RateLimiter = common.NewLocalRateLimiter(limits)
	if infra.cache != nil {
		rateLimiter = common.NewRateLimiter(appConfig.Redis.URL, appConfig.Redis.Password, appConfig.Redis.UseTLS, limits)
	}

	virusTotal := adaptersout.NewVirusTotalReputation(appConfig.Scanner.Virustotal.APIkey, rateLimiter)
	if !virusTotal.IsAvailable() {
		logger.Infow("No VirusTotal API key configured, reputation scanner disabled")
		return nil
	}

	if infra.cache == nil {
		return virusTotal
	}

	return adaptersout.NewCachedReputation(virusTotal, infra.cache, logger)
}

func newNotificationJobs(appConfig config.AppConfig, awsSession *session.Session, infra *infrastructure, tracker *stats.Tracker,
	remoteStorageFactory portsout.RemoteStorageFactory, logger logging.Logger) []notification.Job {
	var viewers []portsout.Viewer

	if appConfig.Notification.Slack.Webhook != "" || appConfig.Notification.Slack.AppToken != "" {
		slack := appConfig.Notification.Slack
		viewers = append(viewers, adaptersout.NewSlackViewer(slack.AppToken, slack.Webhook, slack.ChannelID))
	}

	if len(appConfig.Notification.Phones) != 0 {
		viewers = append(viewers, adaptersout.NewSMSViewer(awsSession, appConfig.Notification.Phones))
	}

	jobs := []notification.Job{
		notification.NewAuditJob([]portsout.AuditSink{adaptersout.NewLogAuditSink(logger)}, logger),
		notification.NewEmergencyService(viewers, logger),
	}

	if infra.cache != nil {
		repository := adaptersout.NewCacheStatsRepository(infra.cache, logger)
		jobs = append(jobs, notification.NewStatsReport(tracker, repository, viewers, logger))
	}

	if appConfig.Notification.Quarantine.Bucket != "" {
		jobs = append(jobs, notification.NewQuarantineJob(notification.QuarantineConfig{
			StorageType: appConfig.Notification.Quarantine.StorageType,
			Bucket:      appConfig.Notification.Quarantine.Bucket,
		}, remoteStorageFactory, logger))
	}

	return jobs
}

func warnUnregistered(policies []entities.TierPolicy, registry *scan.Registry, logger logging.Logger) {
	registered := make(map[entities.ScannerID]bool)
	for _, id := range registry.Registered() {
		registered[id] = true
	}

	for _, policy := range policies {
		for _, id := range policy.AllowedScanners {
			if !registered[id] {
				logger.Warnw("Tier uses a scanner that is not configured, its jobs will report it as error", "tier", policy.Name, "scanner", id)
			}
		}
	}
}

// reloadTiersOnHangup swaps the tier table on SIGHUP. Admitted jobs keep the
// policy they were admitted with.
func reloadTiersOnHangup(ctx context.Context, tiers *admission.TierTable, logger logging.Logger) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			appConfig, err := config.LoadConfig()
			if err != nil {
				logger.Errorw("Failed to reload configuration", "error", err)
				continue
			}

			policies, err := appConfig.TierPolicies()
			if err == nil {
				err = tiers.Replace(policies)
			}

			if err != nil {
				logger.Errorw("Failed to reload tiers", "error", err)
				continue
			}

			logger.Infow("Tier table reloaded", "tiers", tiers.Names())
		}
	}
}

func readiness(infra *infrastructure, logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if infra.cache != nil {
			if err := infra.cache.Ping(c.UserContext()); err != nil {
				logger.Errorw("Failed to connect to the cache.", "error", err)
				return c.Status(fiber.StatusServiceUnavailable).SendString(fmt.Sprintf("Redis not connectable. %s", err))
			}
		}

		if infra.db != nil {
			if err := infra.db.PingContext(c.UserContext()); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorw("Failed to connect to the result store.", "error", err)
				return c.Status(fiber.StatusServiceUnavailable).SendString(fmt.Sprintf("Result store not connectable. %s", err))
			}
		}

		return c.SendStatus(fiber.StatusOK)
	}
}
