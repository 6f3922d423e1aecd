package servers

import (
	"context"
	"fmt"
	"time"

	"geminify/interfaces"
)

const jobTimeout = 30 * time.Second

// Job は定期実行するメンテナンス処理です。
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// SchedulerServer は cron でジョブを実行する Server です。
type SchedulerServer struct {
	sched interfaces.Scheduler
	jobs  []Job
	log   interfaces.Logger
}

func NewSchedulerServer(sched interfaces.Scheduler, log interfaces.Logger, jobs ...Job) *SchedulerServer {
	return &SchedulerServer{sched: sched, jobs: jobs, log: log}
}

func (s *SchedulerServer) Name() string { return "scheduler" }

func (s *SchedulerServer) Start() error {
	for _, job := range s.jobs {
		job := job
		if _, err := s.sched.AddFunc(job.Spec, func() { s.runJob(job) }); err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", job.Spec, job.Name, err)
		}
		s.log.Info("ジョブを登録しました", "job", job.Name, "spec", job.Spec)
	}
	s.sched.Start()
	return nil
}

func (s *SchedulerServer) runJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("ジョブが失敗しました", "job", job.Name, "error", err)
		return
	}
	s.log.Debug("ジョブが完了しました", "job", job.Name, "duration_ms", time.Since(start).Milliseconds())
}

// Stop は実行中のジョブの完了を待ってから戻ります。
func (s *SchedulerServer) Stop(ctx context.Context) error {
	select {
	case <-s.sched.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
