package cron

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/customeros/txwatch/config"
	"github.com/customeros/txwatch/interfaces"
	txerrors "github.com/customeros/txwatch/internal/errors"
	"github.com/customeros/txwatch/internal/logger"
	"github.com/customeros/txwatch/internal/tracing"
	"github.com/customeros/txwatch/internal/utils"
)

// CONSTANTS
const (
	// GroupLedger is the group for attempt ledger jobs
	GroupLedger = "ledger"

	// AppSourceCron marks contexts started by a scheduled job
	AppSourceCron = "cron"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupLedger: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg       *config.Config
	log       logger.Logger
	cron      *cronv3.Cron
	k8s       kubernetes.Interface
	stopCh    chan struct{}
	stopOnce  sync.Once
	jobIDs    map[string]cronv3.EntryID
	processor interfaces.Processor
	attempts  interfaces.TransactionAttemptRepository
}

func NewCronManager(cfg *config.Config, log logger.Logger, k8s kubernetes.Interface, processor interfaces.Processor, attempts interfaces.TransactionAttemptRepository) *CronManager {
	return &CronManager{
		cfg:       cfg,
		log:       log,
		k8s:       k8s,
		stopCh:    make(chan struct{}),
		jobIDs:    make(map[string]cronv3.EntryID),
		processor: processor,
		attempts:  attempts,
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	// If k8s client is nil or we're in local development, start in local mode
	if cm.k8s == nil || cm.cfg.AppConfig.LocalDev {
		cm.log.Info("Starting cron manager in local mode")
		return cm.StartCron()
	}

	// Create the leader election lock
	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      "txwatch-cron-leader",
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	// Channel to track leader election errors
	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					if err := cm.StartCron(); err != nil {
						cm.log.Errorf("Failed to start crons as leader: %v", err)
					}
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-cm.stopCh
			cancel()
		}()
		le.Run(ctx)
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		return cm.StartCron()
	case <-time.After(5 * time.Second):
		// Leader election seems to be working, continue normally
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		if cm.cron != nil {
			cm.log.Info("Stopping cron manager")
			ctx := cm.cron.Stop()
			// Wait for jobs to finish
			<-ctx.Done()
		}
		close(cm.stopCh)
	})
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	cronConfig := cm.cfg.Cron

	// Register heartbeat job
	if cronConfig.CronScheduleHeartbeat != "" {
		podName := cm.cfg.AppConfig.PodName
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			return errors.Wrap(err, "could not add heartbeat cron job")
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	if cronConfig.CronSchedulePoll != "" {
		id, err := c.AddFunc(cronConfig.CronSchedulePoll, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.pollMailbox()
		})
		if err != nil {
			return errors.Wrap(err, "could not add mailbox poll cron job")
		}
		cm.jobIDs["poll_mailbox"] = id
		cm.log.Infof("Registered mailbox poll job with schedule: %s", cronConfig.CronSchedulePoll)
	}

	if cronConfig.CronScheduleLedgerCleanup != "" && cm.attempts != nil {
		id, err := c.AddFunc(cronConfig.CronScheduleLedgerCleanup, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupLedger].Lock()
			defer jobLocks.locks[GroupLedger].Unlock()
			cm.cleanupLedger()
		})
		if err != nil {
			return errors.Wrap(err, "could not add ledger cleanup cron job")
		}
		cm.jobIDs["ledger_cleanup"] = id
		cm.log.Infof("Registered ledger cleanup job with schedule: %s", cronConfig.CronScheduleLedgerCleanup)
	}

	return nil
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() error {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	if err := cm.registerJobs(c); err != nil {
		return err
	}
	c.Start()
	cm.cron = c

	if cm.cfg.Cron.RunPollOnStart {
		go func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.pollMailbox()
		}()
	}
	return nil
}

func (cm *CronManager) pollMailbox() {
	ctx := utils.SetAppSourceInContext(context.Background(), AppSourceCron)

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.pollMailbox")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	_, err := cm.processor.RunCycle(ctx)
	if errors.Is(err, txerrors.ErrCycleInProgress) {
		cm.log.Debug("Previous cycle still running, skipping this tick")
		return
	}
	if err != nil {
		// already logged by the processor, the next tick retries
		tracing.TraceErr(span, err)
	}
}

func (cm *CronManager) cleanupLedger() {
	ctx := utils.SetAppSourceInContext(context.Background(), AppSourceCron)

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.cleanupLedger")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	cutoff := utils.Now().Add(-cm.cfg.Cron.LedgerRetention)
	deleted, err := cm.attempts.DeleteConcludedBefore(ctx, cutoff)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to clean up attempt ledger: %v", err)
		return
	}

	cm.log.Infof("Removed %d concluded attempts older than %s", deleted, cutoff.Format(time.RFC3339))
}
