package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// OTPPurger removes expired one-time passwords.
type OTPPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionCleaner drops idle in-memory sessions.
type SessionCleaner interface {
	CleanupExpired() int
}

// HousekeepingJob periodically purges expired OTPs and idle sessions.
type HousekeepingJob struct {
	otps     OTPPurger
	sessions SessionCleaner
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewHousekeepingJob creates a new housekeeping job. A non-positive interval
// defaults to five minutes.
func NewHousekeepingJob(otps OTPPurger, sessions SessionCleaner, interval time.Duration) *HousekeepingJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &HousekeepingJob{
		otps:     otps,
		sessions: sessions,
		interval: interval,
	}
}

// Start begins the housekeeping loop
func (j *HousekeepingJob) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		log.Println("Housekeeping job already running")
		return
	}

	j.running = true
	j.stop = make(chan struct{})
	j.done = make(chan struct{})
	log.Printf("🧹 Starting housekeeping job (every %s)", j.interval)

	go j.loop(j.stop, j.done)
}

// Stop halts the loop and waits for any in-progress sweep to finish.
func (j *HousekeepingJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	close(j.stop)
	done := j.done
	j.mu.Unlock()

	<-done
	log.Println("Housekeeping job stopped")
}

func (j *HousekeepingJob) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			j.RunOnce(context.Background())
		}
	}
}

// RunOnce performs a single sweep.
func (j *HousekeepingJob) RunOnce(ctx context.Context) {
	if j.otps != nil {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		purged, err := j.otps.PurgeExpired(ctx)
		cancel()
		if err != nil {
			log.Printf("❌ Failed to purge expired OTPs: %v", err)
		} else if purged > 0 {
			log.Printf("🧹 Purged %d expired OTPs", purged)
		}
	}

	if j.sessions != nil {
		if removed := j.sessions.CleanupExpired(); removed > 0 {
			log.Printf("🧹 Removed %d idle sessions", removed)
		}
	}
}
