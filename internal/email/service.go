package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"time"

	"workshops/internal/logger"
	"workshops/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey   = "emails"
	failedKey  = "emails:failed"
	maxTries   = 3
	popTimeout = 2 * time.Second
)

var ErrNoRecipient = errors.New("email recipient is empty")

// Message is one outgoing email. Type labels the template for metrics.
type Message struct {
	To      string `json:"to"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
	Type    string `json:"type"`
}

type EmailJob struct {
	ID      string    `json:"id"`
	Message Message   `json:"message"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// sendFunc delivers a rendered RFC 822 message.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	redis      *redis.Client
	from       string
	fromName   string
	smtpHost   string
	smtpPort   string
	smtpUser   string
	smtpPass   string
	send       sendFunc
	retryDelay time.Duration
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:       fromEmail,
		fromName:   fromName,
		smtpHost:   smtpHost,
		smtpPort:   smtpPort,
		smtpUser:   smtpUser,
		smtpPass:   smtpPass,
		send:       smtp.SendMail,
		retryDelay: 5 * time.Second,
	}
}

// Send queues msg for the worker. Callers treat a failure as non-fatal.
func (s *Service) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	job := EmailJob{
		ID:      uuid.NewString(),
		Message: msg,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Errorf("Failed to queue email to %s: %v", msg.To, err)
		metrics.RecordEmail(msg.Type, "queue_error")
		return err
	}

	metrics.RecordEmail(msg.Type, "queued")
	logger.Info("email queued", "job_id", job.ID, "type", msg.Type, "to", msg.To)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Email service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, popTimeout, queueKey).Result()
	if err != nil {
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	logger.Debug("sending email", "job_id", job.ID, "to", job.Message.To, "attempt", job.Tries)
	if err := s.sendNow(job); err != nil {
		logger.Error("email delivery failed", "job_id", job.ID, "to", job.Message.To, "error", err)

		if job.Tries < maxTries {
			if s.retryDelay > 0 {
				time.Sleep(s.retryDelay)
			}
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, string(data))
			logger.Infof("Retrying email to %s (attempt %d)", job.Message.To, job.Tries+1)
		} else {
			logger.Errorf("Email to %s failed after %d attempts", job.Message.To, maxTries)
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Message.Type, "sent")
	logger.Info("email sent", "job_id", job.ID, "to", job.Message.To)
}

func (s *Service) sendNow(job EmailJob) error {
	body := buildMIME(s.fromName, s.from, job.Message, job.ID)

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return s.send(addr, auth, s.from, []string{job.Message.To}, body)
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, string(data))
	metrics.RecordEmail(job.Message.Type, "failed")
	logger.Errorf("Email moved to failed queue: %s", job.Message.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.SetEmailQueueLength(length)
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
